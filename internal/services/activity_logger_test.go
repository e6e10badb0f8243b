package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seannyti/kfcweb/internal/models"
)

func TestActivityLogger_RecordPersistsAsync(t *testing.T) {
	var mu sync.Mutex
	var created []*models.ActivityLog

	repo := &MockActivityLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
			mu.Lock()
			defer mu.Unlock()
			created = append(created, log)
			return log, nil
		},
	}

	logger := NewActivityLogger(repo, discardLogger())

	logger.Record(ActivityEntry{
		Category: models.ActivityUser,
		Action:   "User logged in",
		UserID:   "user-1",
		UserName: "Test User",
		IP:       "10.0.0.5",
	})
	logger.Record(ActivityEntry{
		Category: models.ActivitySystem,
		Action:   "Backup completed",
	})
	logger.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 2)

	byAction := make(map[string]*models.ActivityLog, len(created))
	for _, log := range created {
		byAction[log.Action] = log
	}

	login := byAction["User logged in"]
	require.NotNil(t, login)
	assert.Equal(t, models.ActivityUser, login.Category)
	require.NotNil(t, login.UserID)
	assert.Equal(t, "user-1", *login.UserID)
	require.NotNil(t, login.IPAddress)
	assert.Equal(t, "10.0.0.5", *login.IPAddress)
	assert.False(t, login.Timestamp.IsZero())

	backup := byAction["Backup completed"]
	require.NotNil(t, backup)
	assert.Nil(t, backup.UserID, "system events carry no user")
}

func TestActivityLogger_PersistenceFailureIsSwallowed(t *testing.T) {
	repo := &MockActivityLogRepository{
		CreateFunc: func(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
			return nil, assert.AnError
		},
	}

	logger := NewActivityLogger(repo, discardLogger())

	// Must not panic or block; the failure goes to the structured log only.
	logger.Record(ActivityEntry{Category: models.ActivitySecurity, Action: "Blocked admin login from unauthorized IP"})
	logger.Wait()
}
