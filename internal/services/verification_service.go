package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/seannyti/kfcweb/internal/models"
	pkgauth "github.com/seannyti/kfcweb/pkg/auth"
)

// VerificationService owns the email-verification token lifecycle.
type VerificationService struct {
	repo     UserRepository
	email    EmailService
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewVerificationService(repo UserRepository, email EmailService, activity ActivityRecorder, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		repo:     repo,
		email:    email,
		activity: activity,
		logger:   logger,
	}
}

// Verify marks the account behind a verification token as verified. An
// expired token is not cleared; the user must request a resend, which
// replaces it.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	if token = strings.TrimSpace(token); token == "" {
		return models.BadRequestf("Verification token is required")
	}

	user, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.BadRequestf("Invalid verification token")
		}
		s.logger.Error("failed to look up verification token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Distinct from an invalid token: the account is fine, the link is
	// just stale. Callers can treat this as success-adjacent.
	if user.EmailVerified {
		return &models.Error{
			Kind:    models.ErrAlreadyVerified,
			Message: "Email is already verified",
		}
	}

	if user.VerificationTokenExpiry == nil || user.VerificationTokenExpiry.Before(time.Now()) {
		return &models.Error{
			Kind:    models.ErrTokenExpired,
			Message: "Verification link has expired. Please request a new one",
		}
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		s.logger.Error("failed to mark user verified",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	s.activity.Record(ActivityEntry{
		Category: models.ActivityUser,
		Action:   "Email verified",
		UserID:   user.ID,
		UserName: user.Name,
	})

	return nil
}

// Resend issues a fresh verification token and emails it. The previous
// token is replaced, so old links stop working. Unlike registration, a
// send failure here surfaces to the caller: the whole point of the call
// is the email.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.BadRequestf("Email is required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.BadRequestf("User not found")
		}
		s.logger.Error("failed to get user for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified {
		return &models.Error{
			Kind:    models.ErrAlreadyVerified,
			Message: "Email is already verified",
		}
	}

	token, err := pkgauth.GenerateVerificationToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		s.logger.Error("failed to store verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendVerificationEmail(ctx, user.Email, user.Name, token); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("verification email resent", slog.String("user_id", user.ID))
	s.activity.Record(ActivityEntry{
		Category: models.ActivityUser,
		Action:   "Verification email resent",
		UserID:   user.ID,
		UserName: user.Name,
	})

	return nil
}
