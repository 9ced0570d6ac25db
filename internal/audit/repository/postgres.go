package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"sessionguard/internal/audit/domain"
)

const eventColumns = `id, user_id, event_type, ip_address, user_agent, risk_score, is_blocked, block_reason, metadata, resolved, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO security_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, string(e.Type), e.IPAddress, e.UserAgent, e.RiskScore, e.IsBlocked,
		nullString(e.BlockReason), nullString(e.Metadata), e.Resolved, e.CreatedAt,
	)
	return err
}

// CountByUserAndTypes counts events for the user whose type is in types, created at or after since.
func (r *PostgresRepository) CountByUserAndTypes(ctx context.Context, userID string, types []domain.EventType, since time.Time) (int, error) {
	if len(types) == 0 {
		return 0, nil
	}
	args := []any{userID, since}
	marks := make([]string, len(types))
	for i, t := range types {
		args = append(args, string(t))
		marks[i] = "$" + strconv.Itoa(i+3)
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events
		WHERE user_id = $1 AND created_at >= $2 AND event_type IN (`+strings.Join(marks, ", ")+`)`, args...,
	).Scan(&n)
	return n, err
}

// ListByUser returns the user's events, newest first.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.SecurityEvent, error) {
	var pageLimit any // NULL means no limit
	if limit > 0 {
		pageLimit = limit
	}
	offset = max(offset, 0)
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM security_events
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, pageLimit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SecurityEvent
	for rows.Next() {
		var e domain.SecurityEvent
		var typ string
		var reason, meta sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.IPAddress, &e.UserAgent, &e.RiskScore, &e.IsBlocked,
			&reason, &meta, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.BlockReason = reason.String
		e.Metadata = meta.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
