package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/services"
)

// databaseName labels backup artifacts and records. The API owns a single
// logical database, so the value is fixed.
const databaseName = "KnudsonFamilyConstructionUsersDb"

// activityLogExportLimit caps how many recent activity entries ride along
// in each snapshot.
const activityLogExportLimit = 1000

// Store is the backup-record persistence the engine needs.
type Store interface {
	Create(ctx context.Context, backup *models.Backup) (*models.Backup, error)
	UpdateStatus(ctx context.Context, id string, status string, sizeInBytes int64) error
	GetByID(ctx context.Context, id string) (*models.Backup, error)
	List(ctx context.Context) ([]*models.Backup, error)
	Latest(ctx context.Context) (*models.Backup, error)
	Delete(ctx context.Context, id string) error
}

// UserExporter supplies the full user set for a snapshot.
type UserExporter interface {
	All(ctx context.Context) ([]*models.User, error)
}

// ActivityExporter supplies recent activity entries for a snapshot.
type ActivityExporter interface {
	List(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error)
}

// Engine creates and manages JSON snapshot artifacts on local disk, with a
// database record tracking each one.
type Engine struct {
	dir      string
	store    Store
	users    UserExporter
	logs     ActivityExporter
	activity services.ActivityRecorder
	logger   *slog.Logger
}

func NewEngine(dir string, store Store, users UserExporter, logs ActivityExporter, activity services.ActivityRecorder, logger *slog.Logger) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	logger.Info("backup directory ready", slog.String("dir", dir))

	return &Engine{
		dir:      dir,
		store:    store,
		users:    users,
		logs:     logs,
		activity: activity,
		logger:   logger,
	}, nil
}

// artifact is the on-disk snapshot layout.
type artifact struct {
	ExportDate   time.Time             `json:"exportDate"`
	DatabaseName string                `json:"databaseName"`
	Users        []*models.User        `json:"users"`
	ActivityLogs []*models.ActivityLog `json:"activityLogs"`
}

// CreateBackup exports all users plus recent activity to a JSON file. The
// record is inserted as in-progress before the file is written, so a crash
// mid-export leaves an inspectable row rather than an orphan file.
func (e *Engine) CreateBackup(ctx context.Context, backupType string) (*models.Backup, error) {
	if backupType != models.BackupTypeManual && backupType != models.BackupTypeAutomatic {
		return nil, models.BadRequestf("Invalid backup type")
	}

	fileName := fmt.Sprintf("UsersDb_backup_%s.json", time.Now().UTC().Format("2006_01_02_15_04_05"))

	record, err := e.store.Create(ctx, &models.Backup{
		Name:         fileName,
		FileName:     fileName,
		CreatedAt:    time.Now(),
		Type:         backupType,
		DatabaseName: databaseName,
		Status:       models.BackupStatusInProgress,
	})
	if err != nil {
		e.logger.Error("failed to create backup record", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	size, err := e.writeArtifact(ctx, fileName)
	if err != nil {
		e.logger.Error("backup failed",
			slog.String("backup_id", record.ID),
			slog.String("file", fileName),
			slog.Any("error", err))

		if statusErr := e.store.UpdateStatus(ctx, record.ID, models.BackupStatusFailed, 0); statusErr != nil {
			e.logger.Error("failed to mark backup failed",
				slog.String("backup_id", record.ID),
				slog.Any("error", statusErr))
		}
		record.Status = models.BackupStatusFailed
		return nil, fmt.Errorf("backup creation failed: %w", err)
	}

	if err := e.store.UpdateStatus(ctx, record.ID, models.BackupStatusCompleted, size); err != nil {
		e.logger.Error("failed to mark backup completed",
			slog.String("backup_id", record.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	record.Status = models.BackupStatusCompleted
	record.SizeInBytes = size

	e.logger.Info("backup created",
		slog.String("backup_id", record.ID),
		slog.String("file", fileName),
		slog.Int64("size_bytes", size))
	e.activity.Record(services.ActivityEntry{
		Category: models.ActivitySystem,
		Action:   "Database backup created",
		Details:  fmt.Sprintf("%s (%s)", fileName, backupType),
	})

	return record, nil
}

// writeArtifact exports the snapshot and returns its size. A partial file
// left by a failed export is removed best-effort.
func (e *Engine) writeArtifact(ctx context.Context, fileName string) (int64, error) {
	users, err := e.users.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to export users: %w", err)
	}

	logs, err := e.logs.List(ctx, "", activityLogExportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to export activity logs: %w", err)
	}

	data, err := json.MarshalIndent(artifact{
		ExportDate:   time.Now().UTC(),
		DatabaseName: databaseName,
		Users:        users,
		ActivityLogs: logs,
	}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to serialize backup: %w", err)
	}

	path := filepath.Join(e.dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			e.logger.Warn("failed to remove incomplete backup file",
				slog.String("path", path),
				slog.Any("error", removeErr))
		}
		return 0, fmt.Errorf("failed to write backup file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat backup file: %w", err)
	}

	return info.Size(), nil
}

// List returns all backup records, newest first.
func (e *Engine) List(ctx context.Context) ([]*models.Backup, error) {
	backups, err := e.store.List(ctx)
	if err != nil {
		e.logger.Error("failed to list backups", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return backups, nil
}

// Latest returns the most recent completed backup.
func (e *Engine) Latest(ctx context.Context) (*models.Backup, error) {
	backup, err := e.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		e.logger.Error("failed to get latest backup", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return backup, nil
}

// DeleteBackup removes the record and its artifact. A missing file is fine;
// the record is stale and deleting it is the repair.
func (e *Engine) DeleteBackup(ctx context.Context, id string) error {
	backup, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		e.logger.Error("failed to get backup", slog.String("backup_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	path := filepath.Join(e.dir, backup.FileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Error("failed to delete backup file",
			slog.String("path", path),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := e.store.Delete(ctx, id); err != nil {
		e.logger.Error("failed to delete backup record", slog.String("backup_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	e.logger.Info("backup deleted", slog.String("backup_id", id), slog.String("file", backup.FileName))
	return nil
}

// FilePath resolves the on-disk path for a backup download. A record whose
// file has gone missing reports ErrBackupFileMissing, distinct from an
// unknown record.
func (e *Engine) FilePath(ctx context.Context, id string) (string, error) {
	backup, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		e.logger.Error("failed to get backup", slog.String("backup_id", id), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	path := filepath.Join(e.dir, backup.FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.ErrBackupFileMissing
		}
		return "", fmt.Errorf("failed to stat backup file: %w", err)
	}

	return path, nil
}
