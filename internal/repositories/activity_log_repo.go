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

// ActivityLogRepository handles activity log data access
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{pool: db.Pool}
}

const activityLogColumns = `id, timestamp, category, action, user_id, user_name, ip_address, details`

func scanActivityLogRow(row rowScanner) (*models.ActivityLog, error) {
	var log models.ActivityLog

	err := row.Scan(
		&log.ID, &log.Timestamp, &log.Category, &log.Action,
		&log.UserID, &log.UserName, &log.IPAddress, &log.Details,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanActivityLogRows(rows pgx.Rows) ([]*models.ActivityLog, error) {
	defer rows.Close()

	logs := make([]*models.ActivityLog, 0)

	for rows.Next() {
		log, err := scanActivityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log rows: %w", err)
	}

	return logs, nil
}

// Create appends an activity log entry.
func (r *ActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `
		INSERT INTO activity_logs (id, timestamp, category, action, user_id, user_name, ip_address, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + activityLogColumns

	result, err := scanActivityLogRow(r.pool.QueryRow(ctx, query,
		log.ID, log.Timestamp, log.Category, log.Action,
		log.UserID, log.UserName, log.IPAddress, log.Details,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log: %w", err)
	}

	return result, nil
}

// List retrieves recent entries, newest first, optionally filtered by category.
func (r *ActivityLogRepository) List(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error) {
	if category != "" {
		query := `
			SELECT ` + activityLogColumns + `
			FROM activity_logs
			WHERE category = $1
			ORDER BY timestamp DESC
			LIMIT $2
		`
		rows, err := r.pool.Query(ctx, query, category, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to query activity logs: %w", err)
		}
		return scanActivityLogRows(rows)
	}

	query := `
		SELECT ` + activityLogColumns + `
		FROM activity_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	return scanActivityLogRows(rows)
}

// Cleanup removes activity logs older than the specified number of days
func (r *ActivityLogRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM activity_logs
		WHERE timestamp < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.pool.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup activity logs: %w", err)
	}

	return result.RowsAffected(), nil
}
