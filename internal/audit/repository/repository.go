package repository

import (
	"context"
	"time"

	"sessionguard/internal/audit/domain"
)

// Repository defines persistence for security events. Events are append-only.
type Repository interface {
	Create(ctx context.Context, e *domain.SecurityEvent) error
	// CountByUserAndTypes counts the user's events of any of the given types created at or after since.
	CountByUserAndTypes(ctx context.Context, userID string, types []domain.EventType, since time.Time) (int, error)
	// ListByUser returns the user's events, newest first, paginated by limit and offset.
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.SecurityEvent, error)
}
