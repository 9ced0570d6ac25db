package repository

import (
	"context"
	"sync"

	"sessionguard/internal/user/domain"
)

// MemoryRepository keeps session policies in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	policies map[string]domain.SessionPolicy
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{policies: make(map[string]domain.SessionPolicy)}
}

func (r *MemoryRepository) GetPolicy(ctx context.Context, userID string) (*domain.SessionPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryRepository) UpsertPolicy(ctx context.Context, p *domain.SessionPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.UserID] = *p
	return nil
}
