package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	pkgauth "github.com/seannyti/kfcweb/pkg/auth"
	pkglogger "github.com/seannyti/kfcweb/pkg/logger"
)

// MockUserRepository implements UserRepository with function fields so each
// test stubs only what it exercises.
type MockUserRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.User, error)
	ListFunc                   func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc                 func(ctx context.Context, user *models.User) (*models.User, error)
	DeleteFunc                 func(ctx context.Context, id string) error
	UpdateNameFunc             func(ctx context.Context, id, name string) (*models.User, error)
	UpdateRoleFunc             func(ctx context.Context, id string, role models.Role) (*models.User, error)
	UpdatePasswordHashFunc     func(ctx context.Context, id, passwordHash string) error
	SetVerificationTokenFunc   func(ctx context.Context, id, token string, expiry time.Time) error
	GetByVerificationTokenFunc func(ctx context.Context, token string) (*models.User, error)
	MarkVerifiedFunc           func(ctx context.Context, id string) error
	RecordFailedLoginFunc      func(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (int, *time.Time, error)
	RecordSuccessfulLoginFunc  func(ctx context.Context, id, ip string, at time.Time) error
	LockFunc                   func(ctx context.Context, id string, until time.Time) error
	UnlockFunc                 func(ctx context.Context, id string) error
	CountFunc                  func(ctx context.Context) (int, error)
	CountByRoleFunc            func(ctx context.Context, role models.Role) (int, error)
	CountVerifiedFunc          func(ctx context.Context) (int, error)
	CountLockedFunc            func(ctx context.Context, now time.Time) (int, error)
}

var errMockNotImplemented = errors.New("mock: not implemented")

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	if m.UpdateNameFunc != nil {
		return m.UpdateNameFunc(ctx, id, name)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, passwordHash)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, id, token, expiry)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if m.GetByVerificationTokenFunc != nil {
		return m.GetByVerificationTokenFunc(ctx, token)
	}
	return nil, errMockNotImplemented
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id string) error {
	if m.MarkVerifiedFunc != nil {
		return m.MarkVerifiedFunc(ctx, id)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (int, *time.Time, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, maxAttempts, lockoutEnd)
	}
	return 0, nil, errMockNotImplemented
}

func (m *MockUserRepository) RecordSuccessfulLogin(ctx context.Context, id, ip string, at time.Time) error {
	if m.RecordSuccessfulLoginFunc != nil {
		return m.RecordSuccessfulLoginFunc(ctx, id, ip, at)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) Lock(ctx context.Context, id string, until time.Time) error {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, id, until)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) Unlock(ctx context.Context, id string) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, id)
	}
	return errMockNotImplemented
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, errMockNotImplemented
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, errMockNotImplemented
}

func (m *MockUserRepository) CountVerified(ctx context.Context) (int, error) {
	if m.CountVerifiedFunc != nil {
		return m.CountVerifiedFunc(ctx)
	}
	return 0, errMockNotImplemented
}

func (m *MockUserRepository) CountLocked(ctx context.Context, now time.Time) (int, error) {
	if m.CountLockedFunc != nil {
		return m.CountLockedFunc(ctx, now)
	}
	return 0, errMockNotImplemented
}

// MockEmailService implements EmailService with function fields.
type MockEmailService struct {
	SendVerificationEmailFunc    func(ctx context.Context, toEmail, toName, token string) error
	SendPasswordChangedEmailFunc func(ctx context.Context, toEmail, toName string) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, toEmail, toName, token string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, toEmail, toName, token)
	}
	return nil
}

func (m *MockEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, toName string) error {
	if m.SendPasswordChangedEmailFunc != nil {
		return m.SendPasswordChangedEmailFunc(ctx, toEmail, toName)
	}
	return nil
}

// RecordingActivity captures recorded entries for assertions. Record is
// synchronous, so tests can inspect Entries immediately.
type RecordingActivity struct {
	mu      sync.Mutex
	Entries []ActivityEntry
}

func (r *RecordingActivity) Record(entry ActivityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, entry)
}

func (r *RecordingActivity) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// MockActivityLogRepository implements ActivityLogRepository with function fields.
type MockActivityLogRepository struct {
	CreateFunc  func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error)
	ListFunc    func(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error)
	CleanupFunc func(ctx context.Context, olderThanDays int) (int64, error)
}

func (m *MockActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockActivityLogRepository) List(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, category, limit)
	}
	return nil, errMockNotImplemented
}

func (m *MockActivityLogRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, olderThanDays)
	}
	return 0, errMockNotImplemented
}

// MockAPIKeyRepository implements APIKeyRepository with function fields.
type MockAPIKeyRepository struct {
	CreateFunc         func(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.APIKey, error)
	GetByHashFunc      func(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListFunc           func(ctx context.Context) ([]*models.APIKey, error)
	SetActiveFunc      func(ctx context.Context, id string, active bool) error
	UpdateLastUsedFunc func(ctx context.Context, id string) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, key)
	}
	return key, nil
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errMockNotImplemented
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, keyHash)
	}
	return nil, errMockNotImplemented
}

func (m *MockAPIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, errMockNotImplemented
}

func (m *MockAPIKeyRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return errMockNotImplemented
}

func (m *MockAPIKeyRepository) UpdateLastUsed(ctx context.Context, id string) error {
	if m.UpdateLastUsedFunc != nil {
		return m.UpdateLastUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockAPIKeyRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errMockNotImplemented
}

// discardLogger drops all output. Service tests assert on returned errors,
// not log lines.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

const testPassword = "Str0ng!Passw0rd"

// NewTestUser builds a verified user with a real bcrypt hash of testPassword.
func NewTestUser(role models.Role) *models.User {
	hash, err := pkgauth.HashPassword(testPassword)
	if err != nil {
		panic(err)
	}

	now := time.Now()
	return &models.User{
		ID:            uuid.New().String(),
		Email:         "user@example.com",
		PasswordHash:  hash,
		Name:          "Test User",
		Role:          role,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewUnverifiedTestUser builds a user with an outstanding verification token.
func NewUnverifiedTestUser(token string, expiry time.Time) *models.User {
	user := NewTestUser(models.RoleUser)
	user.EmailVerified = false
	user.VerificationToken = &token
	user.VerificationTokenExpiry = &expiry
	return user
}

// NewLockedTestUser builds a verified user locked until the given time.
func NewLockedTestUser(until time.Time) *models.User {
	user := NewTestUser(models.RoleUser)
	user.FailedLoginAttempts = 5
	user.LockoutEnd = &until
	return user
}

func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-for-service-tests-0123456789", time.Hour, 7*24*time.Hour)
}
