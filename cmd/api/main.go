package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/background"
	"github.com/seannyti/kfcweb/internal/backup"
	"github.com/seannyti/kfcweb/internal/config"
	"github.com/seannyti/kfcweb/internal/database"
	"github.com/seannyti/kfcweb/internal/handlers"
	middlewareCustom "github.com/seannyti/kfcweb/internal/middleware"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/repositories"
	"github.com/seannyti/kfcweb/internal/routes"
	"github.com/seannyti/kfcweb/internal/services"
	"github.com/seannyti/kfcweb/internal/settings"
	pkgauth "github.com/seannyti/kfcweb/pkg/auth"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
	pkglogger "github.com/seannyti/kfcweb/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	activityLogRepo := repositories.NewActivityLogRepository(db)
	backupRepo := repositories.NewBackupRepository(db)
	backupSettingsRepo := repositories.NewBackupSettingsRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	// Site settings come from the companion settings API, with safe
	// defaults when it is unreachable.
	settingsClient := settings.NewHTTPClient(cfg.Settings.BaseURL, cfg.Settings.Timeout, logger)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	activityLogger := services.NewActivityLogger(activityLogRepo, logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.FrontendURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, settingsClient, tokenManager, emailService, activityLogger, auditLogger, logger)
	verificationService := services.NewVerificationService(userRepo, emailService, activityLogger, logger)
	adminService := services.NewAdminService(userRepo, activityLogRepo, settingsClient, emailService, activityLogger, logger)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, activityLogger, logger)

	// Backup engine and scheduler
	backupEngine, err := backup.NewEngine(cfg.Backup.Directory, backupRepo, userRepo, activityLogRepo, activityLogger, logger)
	if err != nil {
		logger.Error("failed to initialize backup engine", slog.Any("error", err))
		os.Exit(1)
	}
	backupScheduler := backup.NewScheduler(backupEngine, backupSettingsRepo, logger)

	// Activity log retention
	cleanupManager := background.NewCleanupManager(activityLogRepo, logger, 24*time.Hour, cfg.Backup.RetentionDays)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, cfg.Admin, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	cookieConfig := auth.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: "lax",
	}
	ipConfig := &pkghttp.IPConfig{}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, verificationService, cookieConfig, ipConfig, int(cfg.Auth.AccessTokenExpiry.Seconds()))
	adminHandler := handlers.NewAdminHandler(adminService)
	backupHandler := handlers.NewBackupHandler(backupEngine, backupScheduler)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService, userRepo)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, backupHandler, apiKeyHandler, tokenManager, userRepo, settingsClient, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start background work
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	schedulerCtx, schedulerCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := backupScheduler.Start(schedulerCtx); err != nil {
		logger.Error("failed to start backup scheduler", slog.Any("error", err))
	}
	schedulerCancel()

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()
	backupScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Let in-flight activity writes land before the process exits.
	activityLogger.Wait()

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first SuperAdmin if admin credentials are
// configured. The account is pre-verified so it can log in immediately.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("no admin credentials configured, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, cfg.Email)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:         cfg.Email,
		PasswordHash:  hashedPassword,
		Name:          "Administrator",
		Role:          models.RoleSuperAdmin,
		EmailVerified: true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
