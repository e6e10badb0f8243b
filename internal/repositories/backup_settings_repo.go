package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seannyti/kfcweb/internal/database"
	"github.com/seannyti/kfcweb/internal/models"
)

// BackupSettingsRepository manages the single backup schedule row.
type BackupSettingsRepository struct {
	pool *pgxpool.Pool
}

func NewBackupSettingsRepository(db *database.DB) *BackupSettingsRepository {
	return &BackupSettingsRepository{pool: db.Pool}
}

// singletonID pins the table to one row. Upserts conflict on it.
const singletonID = 1

// Get returns the schedule, seeding a disabled daily schedule when the row
// does not exist yet.
func (r *BackupSettingsRepository) Get(ctx context.Context) (*models.BackupSettings, error) {
	var settings models.BackupSettings

	err := r.pool.QueryRow(ctx, `
		SELECT id, auto_backup_enabled, frequency, scheduled_time, last_backup_at, updated_at
		FROM backup_settings WHERE id = $1
	`, singletonID).Scan(
		&settings.ID, &settings.AutoBackupEnabled, &settings.Frequency,
		&settings.ScheduledTime, &settings.LastBackupAt, &settings.UpdatedAt,
	)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if mapped == models.ErrNotFound {
			return r.Upsert(ctx, &models.BackupSettings{
				AutoBackupEnabled: false,
				Frequency:         models.BackupFrequencyDaily,
				ScheduledTime:     "02:00",
			})
		}
		return nil, mapped
	}

	return &settings, nil
}

// Upsert writes the schedule row, creating it on first use.
func (r *BackupSettingsRepository) Upsert(ctx context.Context, settings *models.BackupSettings) (*models.BackupSettings, error) {
	settings.ID = singletonID
	settings.UpdatedAt = time.Now()

	var saved models.BackupSettings
	err := r.pool.QueryRow(ctx, `
		INSERT INTO backup_settings (id, auto_backup_enabled, frequency, scheduled_time, last_backup_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			auto_backup_enabled = EXCLUDED.auto_backup_enabled,
			frequency = EXCLUDED.frequency,
			scheduled_time = EXCLUDED.scheduled_time,
			updated_at = EXCLUDED.updated_at
		RETURNING id, auto_backup_enabled, frequency, scheduled_time, last_backup_at, updated_at
	`, settings.ID, settings.AutoBackupEnabled, settings.Frequency,
		settings.ScheduledTime, settings.LastBackupAt, settings.UpdatedAt,
	).Scan(
		&saved.ID, &saved.AutoBackupEnabled, &saved.Frequency,
		&saved.ScheduledTime, &saved.LastBackupAt, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &saved, nil
}

// SetLastBackup stamps the time of the latest successful automatic run.
func (r *BackupSettingsRepository) SetLastBackup(ctx context.Context, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE backup_settings SET last_backup_at = $1, updated_at = $2 WHERE id = $3
	`, at, time.Now(), singletonID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}
