package repository

import (
	"context"
	"time"

	"sessionguard/internal/session/domain"
)

// Repository defines persistence for sessions.
// Lookups return (nil, nil) on a miss; errors are reserved for storage failures.
// Deactivate-style methods are atomic conditional updates ("where id = ? and is_active") and
// report whether this call performed the transition.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// ListActiveByUser returns active sessions ordered by LastActivityAt ascending (least recent first).
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// CountActiveByUser counts active sessions whose expiry is after now.
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error)
	// Touch sets LastActivityAt and ExpiresAt on an active session. Concurrent touches are last-writer-wins.
	Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID string) (int, error)
	// DeactivateExpired deactivates active sessions whose expiry is at or before now.
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
	// CountDistinctIPsSince counts distinct IP addresses across the user's sessions created at or after since.
	CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error)
	// HasSessionFromIP reports whether the user has ever had a session from ip.
	HasSessionFromIP(ctx context.Context, userID, ip string) (bool, error)
}

// RememberTokenRepository defines persistence for remember-me tokens, looked up by hash only.
type RememberTokenRepository interface {
	GetByHash(ctx context.Context, tokenHash string) (*domain.RememberToken, error)
	Create(ctx context.Context, t *domain.RememberToken) error
	// RecordUse increments UsageCount and sets LastUsedAt on an active token.
	RecordUse(ctx context.Context, id string, at time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID string) (int, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}
