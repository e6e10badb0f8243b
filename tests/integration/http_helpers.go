package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/backup"
	"github.com/seannyti/kfcweb/internal/database"
	"github.com/seannyti/kfcweb/internal/handlers"
	middlewareCustom "github.com/seannyti/kfcweb/internal/middleware"
	"github.com/seannyti/kfcweb/internal/repositories"
	"github.com/seannyti/kfcweb/internal/routes"
	"github.com/seannyti/kfcweb/internal/services"
	"github.com/seannyti/kfcweb/internal/settings"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
	pkglogger "github.com/seannyti/kfcweb/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To    string
	Name  string
	Token string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendVerificationEmail records the email
func (m *MockEmailService) SendVerificationEmail(ctx context.Context, toEmail, toName, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: toEmail, Name: toName, Token: token})
	return nil
}

// SendPasswordChangedEmail records the email
func (m *MockEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, toName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: toEmail, Name: toName})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server         *httptest.Server
	DB             *database.DB
	EmailService   *MockEmailService
	Settings       *settings.StaticClient
	ActivityLogger *services.ActivityLogger
	BackupEngine   *backup.Engine
	BackupDir      string

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	userRepo := repositories.NewUserRepository(db)
	activityLogRepo := repositories.NewActivityLogRepository(db)
	backupRepo := repositories.NewBackupRepository(db)
	backupSettingsRepo := repositories.NewBackupSettingsRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	mockEmail := &MockEmailService{}
	settingsClient := &settings.StaticClient{Snapshot: settings.Defaults()}

	tokenManager := auth.NewTokenManager(
		"test-secret-32-characters-long-for-testing",
		15*time.Minute,
		7*24*time.Hour,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	activityLogger := services.NewActivityLogger(activityLogRepo, logger)

	authService := services.NewAuthService(userRepo, settingsClient, tokenManager, mockEmail, activityLogger, auditLogger, logger)
	verificationService := services.NewVerificationService(userRepo, mockEmail, activityLogger, logger)
	adminService := services.NewAdminService(userRepo, activityLogRepo, settingsClient, mockEmail, activityLogger, logger)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, activityLogger, logger)

	backupDir, err := os.MkdirTemp("", "kfcweb-backups-*")
	if err != nil {
		return nil, err
	}
	backupEngine, err := backup.NewEngine(backupDir, backupRepo, userRepo, activityLogRepo, activityLogger, logger)
	if err != nil {
		os.RemoveAll(backupDir)
		return nil, err
	}
	backupScheduler := backup.NewScheduler(backupEngine, backupSettingsRepo, logger)

	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, verificationService, auth.CookieConfig{}, ipConfig, int((15 * time.Minute).Seconds()))
	adminHandler := handlers.NewAdminHandler(adminService)
	backupHandler := handlers.NewBackupHandler(backupEngine, backupScheduler)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService, userRepo)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, adminHandler, backupHandler, apiKeyHandler, tokenManager, userRepo, settingsClient, logger)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:         server,
		DB:             db,
		EmailService:   mockEmail,
		Settings:       settingsClient,
		ActivityLogger: activityLogger,
		BackupEngine:   backupEngine,
		BackupDir:      backupDir,
		logger:         logger,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.ActivityLogger != nil {
		ts.ActivityLogger.Wait()
	}
	if ts.BackupDir != "" {
		os.RemoveAll(ts.BackupDir)
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts access/refresh tokens from auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", err
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}

	return accessToken, refreshToken, nil
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
