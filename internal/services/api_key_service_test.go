package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seannyti/kfcweb/internal/auth"
	"github.com/seannyti/kfcweb/internal/models"
)

func newAPIKeyService(repo APIKeyRepository) *APIKeyService {
	return NewAPIKeyService(repo, &RecordingActivity{}, discardLogger())
}

func TestAPIKeyCreate(t *testing.T) {
	var stored *models.APIKey
	repo := &MockAPIKeyRepository{
		CreateFunc: func(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
			key.ID = "key-1"
			key.CreatedAt = time.Now()
			stored = key
			return key, nil
		},
	}

	actor := NewTestUser(models.RoleAdmin)
	svc := newAPIKeyService(repo)

	created, err := svc.Create(context.Background(), actor, "CI pipeline", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.PlainKey, "kfc_"))
	assert.Len(t, created.PlainKey, 4+64)

	require.NotNil(t, stored)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, created.PlainKey, stored.KeyHash, "plaintext is never stored")

	secret := strings.TrimPrefix(created.PlainKey, "kfc_")
	assert.Equal(t, auth.HashAPIKeySecret(secret), stored.KeyHash)
	assert.Equal(t, "kfc_"+secret[:8]+"..."+secret[len(secret)-8:], stored.MaskedKey)

	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, actor.ID, *stored.CreatedBy)
}

func TestAPIKeyCreate_Validation(t *testing.T) {
	svc := newAPIKeyService(&MockAPIKeyRepository{})

	_, err := svc.Create(context.Background(), nil, "  ", nil)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Create(context.Background(), nil, "stale", &past)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAPIKeyValidate(t *testing.T) {
	var mu sync.Mutex
	var stored *models.APIKey
	lastUsedDone := make(chan struct{}, 1)

	repo := &MockAPIKeyRepository{
		CreateFunc: func(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
			key.ID = "key-1"
			mu.Lock()
			stored = key
			mu.Unlock()
			return key, nil
		},
		GetByHashFunc: func(ctx context.Context, keyHash string) (*models.APIKey, error) {
			mu.Lock()
			defer mu.Unlock()
			if stored != nil && stored.KeyHash == keyHash {
				return stored, nil
			}
			return nil, models.ErrNotFound
		},
		UpdateLastUsedFunc: func(ctx context.Context, id string) error {
			lastUsedDone <- struct{}{}
			return nil
		},
	}

	svc := newAPIKeyService(repo)

	created, err := svc.Create(context.Background(), nil, "CI pipeline", nil)
	require.NoError(t, err)

	key, err := svc.Validate(context.Background(), created.PlainKey)
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.ID)

	select {
	case <-lastUsedDone:
	case <-time.After(time.Second):
		t.Fatal("expected last-used update after successful validation")
	}
}

func TestAPIKeyValidate_Rejections(t *testing.T) {
	active := &models.APIKey{
		ID:       "key-1",
		Name:     "CI pipeline",
		KeyHash:  auth.HashAPIKeySecret(strings.Repeat("a", 64)),
		IsActive: true,
	}

	repo := &MockAPIKeyRepository{
		GetByHashFunc: func(ctx context.Context, keyHash string) (*models.APIKey, error) {
			if keyHash == active.KeyHash {
				return active, nil
			}
			return nil, models.ErrNotFound
		},
	}

	svc := newAPIKeyService(repo)

	cases := []struct {
		name string
		key  string
	}{
		{"missing prefix", strings.Repeat("a", 64)},
		{"wrong length", "kfc_tooshort"},
		{"unknown key", "kfc_" + strings.Repeat("b", 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Validate(context.Background(), tc.key)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}

	t.Run("inactive key", func(t *testing.T) {
		active.IsActive = false
		defer func() { active.IsActive = true }()

		_, err := svc.Validate(context.Background(), "kfc_"+strings.Repeat("a", 64))
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("expired key", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		active.ExpiresAt = &past
		defer func() { active.ExpiresAt = nil }()

		_, err := svc.Validate(context.Background(), "kfc_"+strings.Repeat("a", 64))
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestAPIKeyToggle(t *testing.T) {
	key := &models.APIKey{ID: "key-1", Name: "CI pipeline", IsActive: true}

	var setTo *bool
	repo := &MockAPIKeyRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.APIKey, error) {
			if id == key.ID {
				return key, nil
			}
			return nil, models.ErrNotFound
		},
		SetActiveFunc: func(ctx context.Context, id string, active bool) error {
			setTo = &active
			return nil
		},
	}

	svc := newAPIKeyService(repo)

	toggled, err := svc.Toggle(context.Background(), nil, "key-1")
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	require.NotNil(t, setTo)
	assert.False(t, *setTo)

	_, err = svc.Toggle(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAPIKeyDelete(t *testing.T) {
	key := &models.APIKey{ID: "key-1", Name: "CI pipeline", IsActive: true}

	var deletedID string
	repo := &MockAPIKeyRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.APIKey, error) {
			if id == key.ID {
				return key, nil
			}
			return nil, models.ErrNotFound
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	svc := newAPIKeyService(repo)

	err := svc.Delete(context.Background(), nil, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", deletedID)

	err = svc.Delete(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
