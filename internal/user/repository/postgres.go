package repository

import (
	"context"
	"database/sql"
	"errors"

	"sessionguard/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetPolicy returns the stored policy for userID, or nil if none is stored.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetPolicy(ctx context.Context, userID string) (*domain.SessionPolicy, error) {
	var p domain.SessionPolicy
	err := r.db.QueryRowContext(ctx, `SELECT user_id, session_timeout, max_concurrent_sessions, remember_me_enabled, updated_at
		FROM user_session_policies WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.SessionTimeout, &p.MaxConcurrentSessions, &p.RememberMeEnabled, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertPolicy inserts or replaces the user's policy.
func (r *PostgresRepository) UpsertPolicy(ctx context.Context, p *domain.SessionPolicy) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_session_policies
		(user_id, session_timeout, max_concurrent_sessions, remember_me_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			session_timeout = EXCLUDED.session_timeout,
			max_concurrent_sessions = EXCLUDED.max_concurrent_sessions,
			remember_me_enabled = EXCLUDED.remember_me_enabled,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.SessionTimeout, p.MaxConcurrentSessions, p.RememberMeEnabled, p.UpdatedAt,
	)
	return err
}
