package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/settings"
	pkgauth "github.com/seannyti/kfcweb/pkg/auth"
	pkglogger "github.com/seannyti/kfcweb/pkg/logger"
)

// lockoutDuration is the fixed window applied when the failed-attempt
// counter reaches the configured maximum.
const lockoutDuration = 30 * time.Minute

// verificationTokenTTL bounds how long an emailed verification link works.
const verificationTokenTTL = 24 * time.Hour

// UserRepository defines the persistence operations the auth services need.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	MarkVerified(ctx context.Context, id string) error
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (int, *time.Time, error)
	RecordSuccessfulLogin(ctx context.Context, id, ip string, at time.Time) error
	Lock(ctx context.Context, id string, until time.Time) error
	Unlock(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role models.Role) (int, error)
	CountVerified(ctx context.Context) (int, error)
	CountLocked(ctx context.Context, now time.Time) (int, error)
}

// AuthService handles registration, login and token refresh.
type AuthService struct {
	repo        UserRepository
	settings    settings.Client
	tm          *auth.TokenManager
	email       EmailService
	activity    ActivityRecorder
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

func NewAuthService(
	repo UserRepository,
	settingsClient settings.Client,
	tm *auth.TokenManager,
	email EmailService,
	activity ActivityRecorder,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		settings:    settingsClient,
		tm:          tm,
		email:       email,
		activity:    activity,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"email_verified"`
	CreatedAt     string  `json:"created_at"`
	LastLoginAt   *string `json:"last_login_at,omitempty"`
}

// AuthResponse represents the response from login and refresh operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// Register creates a new unverified account. No session is issued; the user
// must verify their email and then log in.
func (s *AuthService) Register(ctx context.Context, email, password, name, clientIP string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, models.BadRequestf("email is required")
	}
	if name == "" {
		return nil, models.BadRequestf("name is required")
	}

	snapshot := s.settings.Get(ctx)

	if !snapshot.AllowRegistration {
		return nil, models.Forbiddenf("New user registration is currently disabled")
	}

	// Enumerate every violated rule at once.
	if violations := pkgauth.ValidatePassword(password, snapshot.PasswordPolicy()); len(violations) > 0 {
		return nil, models.BadRequestf("%s", strings.Join(violations, "; "))
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		s.logger.Info("registration failed: user already exists",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.Conflictf("User with this email already exists")
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := pkgauth.GenerateVerificationToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	expiry := time.Now().Add(verificationTokenTTL)

	user := &models.User{
		Email:                   email,
		PasswordHash:            hashedPassword,
		Name:                    name,
		Role:                    models.RoleUser,
		EmailVerified:           false,
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
	}
	if clientIP != "" {
		user.LastLoginIP = &clientIP
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.Conflictf("User with this email already exists")
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Email delivery failure must not roll back the account; the user can
	// request a resend.
	if err := s.email.SendVerificationEmail(ctx, createdUser.Email, createdUser.Name, token); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", createdUser.ID),
			slog.Any("error", err))
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, clientIP, nil)
	s.activity.Record(ActivityEntry{
		Category: models.ActivityUser,
		Action:   "User registered",
		UserID:   createdUser.ID,
		UserName: createdUser.Name,
		IP:       clientIP,
	})

	return userModelToResponse(createdUser), nil
}

// Login authenticates a user and returns a token pair. Failed attempts feed
// the lockout counter; the error messages are user-facing.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.Unauthorizedf("Invalid email or password")
	}

	snapshot := s.settings.Get(ctx)
	now := time.Now()

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     clientIP,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.Unauthorizedf("Invalid email or password")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Admin-tier accounts may only log in from allow-listed addresses. This
	// check runs before the password so a credential guess from a bad
	// network learns nothing.
	if user.Role.IsPrivileged() && !snapshot.IPAllowed(clientIP) {
		s.logger.Warn("privileged login attempt from unauthorized IP",
			slog.String("user_id", user.ID),
			slog.String("ip", clientIP))
		s.activity.Record(ActivityEntry{
			Category: models.ActivitySecurity,
			Action:   "Blocked admin login from unauthorized IP",
			UserID:   user.ID,
			UserName: user.Name,
			IP:       clientIP,
		})
		return nil, models.Unauthorizedf("Access denied from this IP address")
	}

	if !user.EmailVerified {
		s.logger.Info("login blocked: email not verified", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     clientIP,
			FailureReason: "email_not_verified",
			Success:       false,
		})
		return nil, &models.Error{
			Kind:    models.ErrEmailNotVerified,
			Message: "Please verify your email address before logging in",
		}
	}

	// A locked account rejects before the password check and does not
	// consume an attempt.
	if lockedUntil, locked := user.LockedUntil(now); locked {
		remainingMinutes := int(math.Ceil(lockedUntil.Sub(now).Minutes()))
		s.logger.Warn("login attempt for locked account", slog.String("user_id", user.ID))
		return nil, &models.Error{
			Kind:    models.ErrAccountLocked,
			Message: fmt.Sprintf("Account is locked. Try again in %d minutes", remainingMinutes),
		}
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.handleFailedPassword(ctx, user, snapshot, clientIP, now)
	}

	if err := s.repo.RecordSuccessfulLogin(ctx, user.ID, clientIP, now); err != nil {
		s.logger.Error("failed to record successful login",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("ip", clientIP))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})
	s.activity.Record(ActivityEntry{
		Category: models.ActivityUser,
		Action:   "User logged in",
		UserID:   user.ID,
		UserName: user.Name,
		IP:       clientIP,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// handleFailedPassword bumps the counter atomically and picks the right
// user-facing message depending on whether the increment crossed the
// lockout threshold.
func (s *AuthService) handleFailedPassword(ctx context.Context, user *models.User, snapshot settings.Settings, clientIP string, now time.Time) error {
	attempts, _, err := s.repo.RecordFailedLogin(ctx, user.ID, snapshot.MaxLoginAttempts, now.Add(lockoutDuration))
	if err != nil {
		s.logger.Error("failed to record failed login",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        user.ID,
		IPAddress:     clientIP,
		FailureReason: "invalid_credentials",
		Success:       false,
	})

	attemptsRemaining := snapshot.MaxLoginAttempts - attempts
	if attemptsRemaining > 0 {
		return models.Unauthorizedf("Invalid email or password. %d attempts remaining", attemptsRemaining)
	}

	s.logger.Warn("account locked due to too many failed attempts",
		slog.String("user_id", user.ID))
	s.activity.Record(ActivityEntry{
		Category: models.ActivitySecurity,
		Action:   "Account locked after repeated failed logins",
		UserID:   user.ID,
		UserName: user.Name,
		IP:       clientIP,
	})

	return &models.Error{
		Kind:    models.ErrAccountLocked,
		Message: "Account locked due to too many failed login attempts",
	}
}

// RefreshToken exchanges a valid refresh token for a new token pair. The
// user row is re-read so a deleted or demoted account cannot keep rotating
// sessions.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.Unauthorizedf("Invalid refresh token")
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.Unauthorizedf("Invalid refresh token")
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.Unauthorizedf("Invalid refresh token")
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Unauthorizedf("Invalid refresh token")
		}
		s.logger.Error("failed to get user for token refresh",
			slog.String("user_id", claims.UserID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// A locked account cannot rotate sessions either.
	if _, locked := user.LockedUntil(time.Now()); locked {
		return nil, models.Unauthorizedf("Invalid refresh token")
	}

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// GetUser returns the profile for an authenticated user.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// userModelToResponse converts a user model to its response DTO.
func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role.String(),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}
