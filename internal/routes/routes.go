package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/handlers"
	"github.com/seannyti/kfcweb/internal/middleware"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/repositories"
	"github.com/seannyti/kfcweb/internal/settings"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	backupHandler *handlers.BackupHandler,
	apiKeyHandler *handlers.APIKeyHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	settingsClient settings.Client,
	logger *slog.Logger,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	maintenance := middleware.Maintenance(settingsClient, logger)

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(maintenance)

		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", authHandler.Register)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/refresh", authHandler.RefreshToken)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/resend-verification", authHandler.ResendVerification)
		r.Get("/auth/verify-email", authHandler.VerifyEmail)
	})

	// Protected routes - authentication required. Maintenance mode runs
	// after authentication so admin sessions can pass through.
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(maintenance)

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/logout", authHandler.Logout)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))

			r.Get("/admin/users", adminHandler.ListUsers)
			r.Get("/admin/stats", adminHandler.GetStats)
			r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
			r.Post("/admin/users/{id}/lock", adminHandler.LockUser)
			r.Post("/admin/users/{id}/unlock", adminHandler.UnlockUser)
			r.Put("/admin/users/{id}/role", adminHandler.ChangeRole)
			r.Put("/admin/users/{id}/name", adminHandler.UpdateName)
			r.Post("/admin/users/{id}/reset-password", adminHandler.ResetPassword)
			r.Post("/admin/users/{id}/verify", adminHandler.MarkVerified)
			r.Get("/admin/activity", adminHandler.ActivityLogs)

			r.Get("/admin/backups", backupHandler.List)
			r.Post("/admin/backups", backupHandler.Create)
			r.Get("/admin/backups/latest", backupHandler.Latest)
			r.Get("/admin/backups/schedule", backupHandler.GetSchedule)
			r.Put("/admin/backups/schedule", backupHandler.UpdateSchedule)
			r.Get("/admin/backups/{id}/download", backupHandler.Download)
			r.Delete("/admin/backups/{id}", backupHandler.Delete)

			r.Get("/admin/api-keys", apiKeyHandler.List)
			r.Post("/admin/api-keys", apiKeyHandler.Create)
			r.Post("/admin/api-keys/{id}/toggle", apiKeyHandler.Toggle)
			r.Delete("/admin/api-keys/{id}", apiKeyHandler.Delete)
		})
	})
}
