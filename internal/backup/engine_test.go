package backup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
)

type mockStore struct {
	CreateFunc       func(ctx context.Context, backup *models.Backup) (*models.Backup, error)
	UpdateStatusFunc func(ctx context.Context, id string, status string, sizeInBytes int64) error
	GetByIDFunc      func(ctx context.Context, id string) (*models.Backup, error)
	ListFunc         func(ctx context.Context) ([]*models.Backup, error)
	LatestFunc       func(ctx context.Context) (*models.Backup, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *mockStore) Create(ctx context.Context, backup *models.Backup) (*models.Backup, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, backup)
	}
	backup.ID = "backup-1"
	return backup, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, id string, status string, sizeInBytes int64) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, sizeInBytes)
	}
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*models.Backup, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *mockStore) List(ctx context.Context) ([]*models.Backup, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) Latest(ctx context.Context) (*models.Backup, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx)
	}
	return nil, models.ErrNotFound
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockUserExporter struct {
	AllFunc func(ctx context.Context) ([]*models.User, error)
}

func (m *mockUserExporter) All(ctx context.Context) ([]*models.User, error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx)
	}
	return []*models.User{{ID: "user-1", Email: "user@example.com", Name: "Test User", Role: models.RoleUser}}, nil
}

type mockActivityExporter struct {
	ListFunc func(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error)
}

func (m *mockActivityExporter) List(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, category, limit)
	}
	return []*models.ActivityLog{{ID: "log-1", Action: "User logged in", Timestamp: time.Now()}}, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(entry services.ActivityEntry) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, store *mockStore) *Engine {
	t.Helper()
	engine, err := NewEngine(t.TempDir(), store, &mockUserExporter{}, &mockActivityExporter{}, noopRecorder{}, discardLogger())
	require.NoError(t, err)
	return engine
}

func TestCreateBackup_WritesArtifact(t *testing.T) {
	var statuses []string
	store := &mockStore{
		UpdateStatusFunc: func(ctx context.Context, id string, status string, sizeInBytes int64) error {
			statuses = append(statuses, status)
			if status == models.BackupStatusCompleted {
				assert.Positive(t, sizeInBytes)
			}
			return nil
		},
	}

	engine := newTestEngine(t, store)

	backup, err := engine.CreateBackup(context.Background(), models.BackupTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.BackupStatusCompleted, backup.Status)
	assert.Equal(t, []string{models.BackupStatusCompleted}, statuses)
	assert.Regexp(t, `^UsersDb_backup_\d{4}_\d{2}_\d{2}_\d{2}_\d{2}_\d{2}\.json$`, backup.FileName)
	assert.Positive(t, backup.SizeInBytes)

	data, err := os.ReadFile(filepath.Join(engine.dir, backup.FileName))
	require.NoError(t, err)

	var parsed struct {
		DatabaseName string            `json:"databaseName"`
		Users        []json.RawMessage `json:"users"`
		ActivityLogs []json.RawMessage `json:"activityLogs"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "KnudsonFamilyConstructionUsersDb", parsed.DatabaseName)
	assert.Len(t, parsed.Users, 1)
	assert.Len(t, parsed.ActivityLogs, 1)
}

func TestCreateBackup_InvalidType(t *testing.T) {
	engine := newTestEngine(t, &mockStore{})

	_, err := engine.CreateBackup(context.Background(), "hourly")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestCreateBackup_ExportFailureMarksFailed(t *testing.T) {
	var failedRecorded bool
	store := &mockStore{
		UpdateStatusFunc: func(ctx context.Context, id string, status string, sizeInBytes int64) error {
			assert.Equal(t, models.BackupStatusFailed, status)
			failedRecorded = true
			return nil
		},
	}

	engine, err := NewEngine(t.TempDir(), store, &mockUserExporter{
		AllFunc: func(ctx context.Context) ([]*models.User, error) {
			return nil, assert.AnError
		},
	}, &mockActivityExporter{}, noopRecorder{}, discardLogger())
	require.NoError(t, err)

	_, err = engine.CreateBackup(context.Background(), models.BackupTypeManual)
	require.Error(t, err)
	assert.True(t, failedRecorded, "a failed export must flip the record to failed")

	entries, err := os.ReadDir(engine.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact should remain after a failed export")
}

func TestDeleteBackup_RemovesFileAndRecord(t *testing.T) {
	record := &models.Backup{ID: "backup-1", FileName: "UsersDb_backup_2026_01_01_02_00_00.json"}

	var recordDeleted bool
	store := &mockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Backup, error) {
			if id == record.ID {
				return record, nil
			}
			return nil, models.ErrNotFound
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			recordDeleted = true
			return nil
		},
	}

	engine := newTestEngine(t, store)

	path := filepath.Join(engine.dir, record.FileName)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	require.NoError(t, engine.DeleteBackup(context.Background(), record.ID))
	assert.True(t, recordDeleted)
	assert.NoFileExists(t, path)
}

func TestDeleteBackup_MissingFileStillDeletesRecord(t *testing.T) {
	record := &models.Backup{ID: "backup-1", FileName: "gone.json"}

	var recordDeleted bool
	store := &mockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Backup, error) {
			return record, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			recordDeleted = true
			return nil
		},
	}

	engine := newTestEngine(t, store)

	require.NoError(t, engine.DeleteBackup(context.Background(), record.ID))
	assert.True(t, recordDeleted, "a stale record with no file should still be deletable")
}

func TestDeleteBackup_UnknownRecord(t *testing.T) {
	engine := newTestEngine(t, &mockStore{})

	err := engine.DeleteBackup(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFilePath(t *testing.T) {
	record := &models.Backup{ID: "backup-1", FileName: "UsersDb_backup_2026_01_01_02_00_00.json"}

	store := &mockStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Backup, error) {
			if id == record.ID {
				return record, nil
			}
			return nil, models.ErrNotFound
		},
	}

	engine := newTestEngine(t, store)

	t.Run("unknown record", func(t *testing.T) {
		_, err := engine.FilePath(context.Background(), "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("record without file", func(t *testing.T) {
		_, err := engine.FilePath(context.Background(), record.ID)
		assert.ErrorIs(t, err, models.ErrBackupFileMissing)
	})

	t.Run("record with file", func(t *testing.T) {
		path := filepath.Join(engine.dir, record.FileName)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		got, err := engine.FilePath(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})
}

func TestLatest(t *testing.T) {
	store := &mockStore{
		LatestFunc: func(ctx context.Context) (*models.Backup, error) {
			return &models.Backup{ID: "backup-9", Status: models.BackupStatusCompleted}, nil
		},
	}

	engine := newTestEngine(t, store)

	latest, err := engine.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backup-9", latest.ID)
}
