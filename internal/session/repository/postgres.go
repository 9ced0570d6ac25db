package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sessionguard/internal/session/domain"
)

const sessionColumns = `id, token_hash, user_id, device_type, browser, browser_version, os, os_version,
	user_agent, ip_address, location, is_active, expires_at, last_activity_at, created_at`

// PostgresRepository implements Repository on the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByTokenHash returns the session whose token hashes to tokenHash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	return scanSession(row)
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.TokenHash, s.UserID, s.DeviceType, s.Browser, s.BrowserVersion, s.OS, s.OSVersion,
		s.UserAgent, s.IPAddress, sql.NullString{String: s.Location, Valid: s.Location != ""},
		s.IsActive, s.ExpiresAt, s.LastActivityAt, s.CreatedAt,
	)
	return err
}

// ListActiveByUser returns the user's active sessions, least recently active first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND is_active ORDER BY last_activity_at ASC, created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountActiveByUser counts active, unexpired sessions for the user.
func (r *PostgresRepository) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND is_active AND expires_at > $2`, userID, now,
	).Scan(&n)
	return n, err
}

// Touch updates activity and expiry of an active session.
func (r *PostgresRepository) Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2, expires_at = $3 WHERE id = $1 AND is_active`,
		id, lastActivityAt, expiresAt,
	)
	return affectedOne(res, err)
}

// Deactivate marks the session inactive if it is still active.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = false WHERE id = $1 AND is_active`, id)
	return affectedOne(res, err)
}

// DeactivateAllByUser marks all of the user's active sessions inactive and returns how many changed.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = false WHERE user_id = $1 AND is_active`, userID)
	return affected(res, err)
}

// DeactivateExpired marks active sessions past their expiry inactive.
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = false WHERE is_active AND expires_at <= $1`, now)
	return affected(res, err)
}

// CountDistinctIPsSince counts distinct IPs of sessions created at or after since.
func (r *PostgresRepository) CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM sessions WHERE user_id = $1 AND created_at >= $2`, userID, since,
	).Scan(&n)
	return n, err
}

// HasSessionFromIP reports whether any session for the user was created from ip.
func (r *PostgresRepository) HasSessionFromIP(ctx context.Context, userID, ip string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE user_id = $1 AND ip_address = $2)`, userID, ip,
	).Scan(&ok)
	return ok, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var location sql.NullString
	err := row.Scan(
		&s.ID, &s.TokenHash, &s.UserID, &s.DeviceType, &s.Browser, &s.BrowserVersion, &s.OS, &s.OSVersion,
		&s.UserAgent, &s.IPAddress, &location, &s.IsActive, &s.ExpiresAt, &s.LastActivityAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if location.Valid {
		s.Location = location.String
	}
	return &s, nil
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func affectedOne(res sql.Result, err error) (bool, error) {
	n, err := affected(res, err)
	return n > 0, err
}
