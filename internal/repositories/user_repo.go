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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, email, password_hash, name, role, email_verified,
	verification_token, verification_token_expiry,
	last_login_at, last_login_ip, failed_login_attempts, lockout_end,
	created_at, updated_at`

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &user.EmailVerified,
		&user.VerificationToken, &user.VerificationTokenExpiry,
		&user.LastLoginAt, &user.LastLoginIP, &user.FailedLoginAttempts, &user.LockoutEnd,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role, email_verified,
			verification_token, verification_token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.EmailVerified,
		user.VerificationToken, user.VerificationTokenExpiry, user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserRepository) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	query := `UPDATE users SET name = $1, updated_at = now() WHERE id = $2 RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, name, id))
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	query := `UPDATE users SET role = $1, updated_at = now() WHERE id = $2 RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, role, id))
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetVerificationToken stores a fresh verification token, replacing any
// previous one so only the latest emailed link works.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verification_token = $1, verification_token_expiry = $2, updated_at = now()
		WHERE id = $3
	`, token, expiry, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetByVerificationToken finds the user holding a verification token.
func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, token))
}

// MarkVerified flips the verified flag and clears the token.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email_verified = TRUE, verification_token = NULL, verification_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedLogin bumps the failed attempt counter in a single statement so
// concurrent failures cannot lose increments. When the incremented counter
// reaches maxAttempts the row is locked until lockoutEnd.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (int, *time.Time, error) {
	var attempts int
	var lockedUntil *time.Time

	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    lockout_end = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE lockout_end
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts, lockout_end
	`, id, maxAttempts, lockoutEnd).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return attempts, lockedUntil, nil
}

// RecordSuccessfulLogin resets the failure counter, clears any lockout and
// stamps the login time and source address.
func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id, ip string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, lockout_end = NULL,
		    last_login_at = $1, last_login_ip = $2, updated_at = now()
		WHERE id = $3
	`, at, ip, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Lock sets an explicit lockout until the given time.
func (r *UserRepository) Lock(ctx context.Context, id string, until time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET lockout_end = $1, updated_at = now() WHERE id = $2`,
		until, id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Unlock clears the lockout and the failure counter.
func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET lockout_end = NULL, failed_login_attempts = 0, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *UserRepository) CountVerified(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email_verified`).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *UserRepository) CountLocked(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE lockout_end IS NOT NULL AND lockout_end > $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// All returns every user, oldest first. Used by the backup engine.
func (r *UserRepository) All(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}
