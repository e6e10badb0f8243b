package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seannyti/kfcweb/internal/database"
	"github.com/seannyti/kfcweb/internal/models"
)

// APIKeyRepository handles API key data access
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(db *database.DB) *APIKeyRepository {
	return &APIKeyRepository{pool: db.Pool}
}

const apiKeyColumns = `id, name, masked_key, key_hash, is_active, created_at, last_used_at, created_by, expires_at`

func scanAPIKeyRow(row rowScanner) (*models.APIKey, error) {
	var key models.APIKey

	err := row.Scan(
		&key.ID, &key.Name, &key.MaskedKey, &key.KeyHash, &key.IsActive,
		&key.CreatedAt, &key.LastUsedAt, &key.CreatedBy, &key.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &key, nil
}

func scanAPIKeyRows(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	keys := make([]*models.APIKey, 0)

	for rows.Next() {
		key, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api key rows: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	key.CreatedAt = time.Now()

	query := `
		INSERT INTO api_keys (id, name, masked_key, key_hash, is_active, created_at, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + apiKeyColumns

	return scanAPIKeyRow(r.pool.QueryRow(ctx, query,
		key.ID, key.Name, key.MaskedKey, key.KeyHash, key.IsActive,
		key.CreatedAt, key.CreatedBy, key.ExpiresAt,
	))
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return scanAPIKeyRow(r.pool.QueryRow(ctx, query, id))
}

// GetByHash looks up a key by its SHA-256 digest. Only the digest is stored;
// the plaintext key is shown once at creation.
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	return scanAPIKeyRow(r.pool.QueryRow(ctx, query, keyHash))
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}

	return scanAPIKeyRows(rows)
}

func (r *APIKeyRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE api_keys SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
