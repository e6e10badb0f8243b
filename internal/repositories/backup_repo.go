package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seannyti/kfcweb/internal/database"
	"github.com/seannyti/kfcweb/internal/models"
)

// BackupRepository handles backup record data access
type BackupRepository struct {
	pool *pgxpool.Pool
}

// NewBackupRepository creates a new BackupRepository
func NewBackupRepository(db *database.DB) *BackupRepository {
	return &BackupRepository{pool: db.Pool}
}

const backupColumns = `id, name, file_name, size_in_bytes, created_at, type, database_name, status`

func scanBackupRow(row rowScanner) (*models.Backup, error) {
	var backup models.Backup

	err := row.Scan(
		&backup.ID, &backup.Name, &backup.FileName, &backup.SizeInBytes,
		&backup.CreatedAt, &backup.Type, &backup.DatabaseName, &backup.Status,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &backup, nil
}

func scanBackupRows(rows pgx.Rows) ([]*models.Backup, error) {
	defer rows.Close()

	backups := make([]*models.Backup, 0)

	for rows.Next() {
		backup, err := scanBackupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		backups = append(backups, backup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup rows: %w", err)
	}

	return backups, nil
}

// Create inserts a backup record. The engine creates the row before writing
// the artifact so in-flight backups are visible.
func (r *BackupRepository) Create(ctx context.Context, backup *models.Backup) (*models.Backup, error) {
	if backup.ID == "" {
		backup.ID = uuid.New().String()
	}

	query := `
		INSERT INTO backups (id, name, file_name, size_in_bytes, created_at, type, database_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + backupColumns

	return scanBackupRow(r.pool.QueryRow(ctx, query,
		backup.ID, backup.Name, backup.FileName, backup.SizeInBytes,
		backup.CreatedAt, backup.Type, backup.DatabaseName, backup.Status,
	))
}

// UpdateStatus records the outcome of a backup run.
func (r *BackupRepository) UpdateStatus(ctx context.Context, id string, status string, sizeInBytes int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE backups SET status = $1, size_in_bytes = $2 WHERE id = $3`,
		status, sizeInBytes, id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *BackupRepository) GetByID(ctx context.Context, id string) (*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE id = $1`
	return scanBackupRow(r.pool.QueryRow(ctx, query, id))
}

// List returns all backup records, newest first.
func (r *BackupRepository) List(ctx context.Context) ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}

	return scanBackupRows(rows)
}

// Latest returns the most recent completed backup.
func (r *BackupRepository) Latest(ctx context.Context) (*models.Backup, error) {
	query := `
		SELECT ` + backupColumns + `
		FROM backups
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanBackupRow(r.pool.QueryRow(ctx, query, models.BackupStatusCompleted))
}

func (r *BackupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
