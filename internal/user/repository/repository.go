package repository

import (
	"context"

	"sessionguard/internal/user/domain"
)

// Repository defines persistence for per-user session policies.
// GetPolicy returns (nil, nil) when the user has no stored policy; callers then apply configured defaults.
type Repository interface {
	GetPolicy(ctx context.Context, userID string) (*domain.SessionPolicy, error)
	UpsertPolicy(ctx context.Context, p *domain.SessionPolicy) error
}
