package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
)

// mockAuthService implements AuthServiceInterface with function fields.
type mockAuthService struct {
	RegisterFunc     func(ctx context.Context, email, password, name, clientIP string) (*services.UserResponse, error)
	LoginFunc        func(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	GetUserFunc      func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name, clientIP string) (*services.UserResponse, error) {
	return m.RegisterFunc(ctx, email, password, name, clientIP)
}

func (m *mockAuthService) Login(ctx context.Context, email, password, clientIP string) (*services.AuthResponse, error) {
	return m.LoginFunc(ctx, email, password, clientIP)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*services.UserResponse, error) {
	return m.GetUserFunc(ctx, userID)
}

// mockVerificationService implements VerificationServiceInterface.
type mockVerificationService struct {
	VerifyFunc func(ctx context.Context, token string) error
	ResendFunc func(ctx context.Context, email string) error
}

func (m *mockVerificationService) Verify(ctx context.Context, token string) error {
	return m.VerifyFunc(ctx, token)
}

func (m *mockVerificationService) Resend(ctx context.Context, email string) error {
	return m.ResendFunc(ctx, email)
}

// mockBackupEngine implements BackupEngineInterface.
type mockBackupEngine struct {
	CreateBackupFunc func(ctx context.Context, backupType string) (*models.Backup, error)
	ListFunc         func(ctx context.Context) ([]*models.Backup, error)
	LatestFunc       func(ctx context.Context) (*models.Backup, error)
	DeleteBackupFunc func(ctx context.Context, id string) error
	FilePathFunc     func(ctx context.Context, id string) (string, error)
}

func (m *mockBackupEngine) CreateBackup(ctx context.Context, backupType string) (*models.Backup, error) {
	return m.CreateBackupFunc(ctx, backupType)
}

func (m *mockBackupEngine) List(ctx context.Context) ([]*models.Backup, error) {
	return m.ListFunc(ctx)
}

func (m *mockBackupEngine) Latest(ctx context.Context) (*models.Backup, error) {
	return m.LatestFunc(ctx)
}

func (m *mockBackupEngine) DeleteBackup(ctx context.Context, id string) error {
	return m.DeleteBackupFunc(ctx, id)
}

func (m *mockBackupEngine) FilePath(ctx context.Context, id string) (string, error) {
	return m.FilePathFunc(ctx, id)
}

// mockBackupScheduler implements BackupSchedulerInterface.
type mockBackupScheduler struct {
	SettingsFunc       func(ctx context.Context) (*models.BackupSettings, error)
	UpdateScheduleFunc func(ctx context.Context, enabled bool, frequency, scheduledTime string) (*models.BackupSettings, error)
}

func (m *mockBackupScheduler) Settings(ctx context.Context) (*models.BackupSettings, error) {
	return m.SettingsFunc(ctx)
}

func (m *mockBackupScheduler) UpdateSchedule(ctx context.Context, enabled bool, frequency, scheduledTime string) (*models.BackupSettings, error) {
	return m.UpdateScheduleFunc(ctx, enabled, frequency, scheduledTime)
}

// mockAPIKeyService implements APIKeyServiceInterface.
type mockAPIKeyService struct {
	CreateFunc func(ctx context.Context, actor *models.User, name string, expiresAt *time.Time) (*services.CreatedAPIKey, error)
	ListFunc   func(ctx context.Context) ([]*models.APIKey, error)
	ToggleFunc func(ctx context.Context, actor *models.User, id string) (*models.APIKey, error)
	DeleteFunc func(ctx context.Context, actor *models.User, id string) error
}

func (m *mockAPIKeyService) Create(ctx context.Context, actor *models.User, name string, expiresAt *time.Time) (*services.CreatedAPIKey, error) {
	return m.CreateFunc(ctx, actor, name, expiresAt)
}

func (m *mockAPIKeyService) List(ctx context.Context) ([]*models.APIKey, error) {
	return m.ListFunc(ctx)
}

func (m *mockAPIKeyService) Toggle(ctx context.Context, actor *models.User, id string) (*models.APIKey, error) {
	return m.ToggleFunc(ctx, actor, id)
}

func (m *mockAPIKeyService) Delete(ctx context.Context, actor *models.User, id string) error {
	return m.DeleteFunc(ctx, actor, id)
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withClaims attaches authenticated-user claims to the request context.
func withClaims(r *http.Request, userID string, role models.Role) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Type: models.TokenTypeAccess, Role: role}
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, claims))
}

// withURLParam attaches a chi route parameter to the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody unmarshals the recorded response body.
func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}
