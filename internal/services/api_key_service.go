package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
)

// APIKeyRepository defines the persistence slice the API key service needs.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	List(ctx context.Context) ([]*models.APIKey, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdateLastUsed(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// APIKeyService manages machine credentials for cross-API access.
type APIKeyService struct {
	repo     APIKeyRepository
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewAPIKeyService(repo APIKeyRepository, activity ActivityRecorder, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{
		repo:     repo,
		activity: activity,
		logger:   logger,
	}
}

// CreatedAPIKey pairs the stored record with the plaintext key. The
// plaintext is returned exactly once, at creation.
type CreatedAPIKey struct {
	Key      *models.APIKey `json:"apiKey"`
	PlainKey string         `json:"key"`
}

// Create issues a new API key. expiresAt may be nil for a non-expiring key.
func (s *APIKeyService) Create(ctx context.Context, actor *models.User, name string, expiresAt *time.Time) (*CreatedAPIKey, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, models.BadRequestf("Key name is required")
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, models.BadRequestf("Expiry must be in the future")
	}

	plainKey, hash, masked, err := auth.GenerateAPIKey()
	if err != nil {
		s.logger.Error("failed to generate api key", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	key := &models.APIKey{
		Name:      name,
		MaskedKey: masked,
		KeyHash:   hash,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if actor != nil {
		key.CreatedBy = &actor.ID
	}

	created, err := s.repo.Create(ctx, key)
	if err != nil {
		s.logger.Error("failed to store api key", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("api key created",
		slog.String("key_id", created.ID),
		slog.String("name", created.Name))
	if actor != nil {
		s.activity.Record(ActivityEntry{
			Category: models.ActivityAdmin,
			Action:   "Created API key",
			UserID:   actor.ID,
			UserName: actor.Name,
			Details:  "key: " + created.Name,
		})
	}

	return &CreatedAPIKey{Key: created, PlainKey: plainKey}, nil
}

// List returns all keys, newest first. Only masked forms are included.
func (s *APIKeyService) List(ctx context.Context) ([]*models.APIKey, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list api keys", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return keys, nil
}

// Validate checks a presented key and returns its record when the key is
// well-formed, known, active, and unexpired. The last-used timestamp is
// updated on a background goroutine; validation never waits on it.
func (s *APIKeyService) Validate(ctx context.Context, presented string) (*models.APIKey, error) {
	secret, err := auth.SplitAPIKey(presented)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	key, err := s.repo.GetByHash(ctx, auth.HashAPIKeySecret(secret))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up api key", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !key.IsActive || key.Expired(time.Now()) {
		return nil, models.ErrUnauthorized
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.UpdateLastUsed(ctx, key.ID); err != nil {
			s.logger.Error("failed to update api key last used",
				slog.String("key_id", key.ID),
				slog.Any("error", err))
		}
	}()

	return key, nil
}

// Toggle flips a key between active and revoked without deleting it.
func (s *APIKeyService) Toggle(ctx context.Context, actor *models.User, id string) (*models.APIKey, error) {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get api key", slog.String("key_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetActive(ctx, id, !key.IsActive); err != nil {
		s.logger.Error("failed to toggle api key", slog.String("key_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	key.IsActive = !key.IsActive

	action := "Deactivated API key"
	if key.IsActive {
		action = "Activated API key"
	}
	if actor != nil {
		s.activity.Record(ActivityEntry{
			Category: models.ActivityAdmin,
			Action:   action,
			UserID:   actor.ID,
			UserName: actor.Name,
			Details:  "key: " + key.Name,
		})
	}

	return key, nil
}

// Delete removes a key permanently.
func (s *APIKeyService) Delete(ctx context.Context, actor *models.User, id string) error {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get api key", slog.String("key_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete api key", slog.String("key_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("api key deleted", slog.String("key_id", id), slog.String("name", key.Name))
	if actor != nil {
		s.activity.Record(ActivityEntry{
			Category: models.ActivityAdmin,
			Action:   "Deleted API key",
			UserID:   actor.ID,
			UserName: actor.Name,
			Details:  "key: " + key.Name,
		})
	}

	return nil
}
