package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seannyti/kfcweb/internal/models"
)

func newVerificationService(repo UserRepository, email EmailService, activity ActivityRecorder) *VerificationService {
	if email == nil {
		email = &MockEmailService{}
	}
	if activity == nil {
		activity = &RecordingActivity{}
	}
	return NewVerificationService(repo, email, activity, discardLogger())
}

func TestVerify_Success(t *testing.T) {
	user := NewUnverifiedTestUser("valid-token", time.Now().Add(time.Hour))
	var verifiedID string

	repo := &MockUserRepository{
		GetByVerificationTokenFunc: func(ctx context.Context, token string) (*models.User, error) {
			if token == "valid-token" {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
		MarkVerifiedFunc: func(ctx context.Context, id string) error {
			verifiedID = id
			return nil
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Verify(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, verifiedID)
}

func TestVerify_InvalidToken(t *testing.T) {
	repo := &MockUserRepository{
		GetByVerificationTokenFunc: func(ctx context.Context, token string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Verify(context.Background(), "unknown-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.EqualError(t, err, "Invalid verification token")
}

func TestVerify_EmptyToken(t *testing.T) {
	svc := newVerificationService(&MockUserRepository{}, nil, nil)

	err := svc.Verify(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestVerify_AlreadyVerifiedIsDistinct(t *testing.T) {
	user := NewTestUser(models.RoleUser)
	token := "stale-token"
	user.VerificationToken = &token

	repo := &MockUserRepository{
		GetByVerificationTokenFunc: func(ctx context.Context, tok string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Verify(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAlreadyVerified)
	assert.NotErrorIs(t, err, models.ErrBadRequest, "already-verified is not the same as an invalid token")
}

func TestVerify_ExpiredTokenNotCleared(t *testing.T) {
	user := NewUnverifiedTestUser("expired-token", time.Now().Add(-time.Minute))

	repo := &MockUserRepository{
		GetByVerificationTokenFunc: func(ctx context.Context, token string) (*models.User, error) {
			return user, nil
		},
		MarkVerifiedFunc: func(ctx context.Context, id string) error {
			t.Fatal("an expired token must not verify the account")
			return nil
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Verify(context.Background(), "expired-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
	assert.EqualError(t, err, "Verification link has expired. Please request a new one")
}

func TestResend_IssuesFreshToken(t *testing.T) {
	user := NewUnverifiedTestUser("old-token", time.Now().Add(-time.Hour))
	var storedToken, sentToken string

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		SetVerificationTokenFunc: func(ctx context.Context, id, token string, expiry time.Time) error {
			storedToken = token
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiry, time.Minute)
			return nil
		},
	}
	email := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, toEmail, toName, token string) error {
			sentToken = token
			return nil
		},
	}

	svc := newVerificationService(repo, email, nil)

	err := svc.Resend(context.Background(), user.Email)
	require.NoError(t, err)
	assert.NotEmpty(t, storedToken)
	assert.NotEqual(t, "old-token", storedToken, "resend replaces the outstanding token")
	assert.Equal(t, storedToken, sentToken)
}

func TestResend_UnknownEmail(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Resend(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.EqualError(t, err, "User not found")
}

func TestResend_AlreadyVerified(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return NewTestUser(models.RoleUser), nil
		},
	}

	svc := newVerificationService(repo, nil, nil)

	err := svc.Resend(context.Background(), "user@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAlreadyVerified)
}

func TestResend_SendFailureSurfaces(t *testing.T) {
	user := NewUnverifiedTestUser("old-token", time.Now().Add(-time.Hour))

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		SetVerificationTokenFunc: func(ctx context.Context, id, token string, expiry time.Time) error {
			return nil
		},
	}
	email := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, toEmail, toName, token string) error {
			return assert.AnError
		},
	}

	svc := newVerificationService(repo, email, nil)

	// Unlike registration, a resend exists only to deliver the email, so
	// a send failure is the caller's problem.
	err := svc.Resend(context.Background(), user.Email)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
