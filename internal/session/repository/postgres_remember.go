package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sessionguard/internal/session/domain"
)

const rememberColumns = `id, user_id, token_hash, is_active, expires_at, usage_count, last_used_at, created_at`

// PostgresRememberTokenRepository implements RememberTokenRepository on the remember_tokens table.
type PostgresRememberTokenRepository struct {
	db *sql.DB
}

// NewPostgresRememberTokenRepository returns a remember-token repository that uses the given db.
func NewPostgresRememberTokenRepository(db *sql.DB) *PostgresRememberTokenRepository {
	return &PostgresRememberTokenRepository{db: db}
}

// GetByHash returns the token stored under tokenHash, or nil if not found.
func (r *PostgresRememberTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RememberToken, error) {
	var t domain.RememberToken
	var lastUsed sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT `+rememberColumns+` FROM remember_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.IsActive, &t.ExpiresAt, &t.UsageCount, &lastUsed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.LastUsedAt = nullTimeToPtr(lastUsed)
	return &t, nil
}

// Create persists the token record. Only the hash is written.
func (r *PostgresRememberTokenRepository) Create(ctx context.Context, t *domain.RememberToken) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO remember_tokens (`+rememberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.TokenHash, t.IsActive, t.ExpiresAt, t.UsageCount, timeToNullTime(t.LastUsedAt), t.CreatedAt,
	)
	return err
}

// RecordUse increments usage_count and sets last_used_at on an active token.
func (r *PostgresRememberTokenRepository) RecordUse(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE remember_tokens SET usage_count = usage_count + 1, last_used_at = $2 WHERE id = $1 AND is_active`,
		id, at,
	)
	return affectedOne(res, err)
}

// Deactivate revokes the token if it is still active.
func (r *PostgresRememberTokenRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE remember_tokens SET is_active = false WHERE id = $1 AND is_active`, id)
	return affectedOne(res, err)
}

// DeactivateAllByUser revokes every active token of the user.
func (r *PostgresRememberTokenRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE remember_tokens SET is_active = false WHERE user_id = $1 AND is_active`, userID)
	return affected(res, err)
}

// DeactivateExpired revokes active tokens past their expiry.
func (r *PostgresRememberTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE remember_tokens SET is_active = false WHERE is_active AND expires_at <= $1`, now)
	return affected(res, err)
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
