package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sessionguard/internal/audit/domain"
)

// MemoryRepository keeps security events in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *MemoryRepository) CountByUserAndTypes(ctx context.Context, userID string, types []domain.EventType, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.events {
		e := &r.events[i]
		if e.UserID != userID || e.CreatedAt.Before(since) {
			continue
		}
		for _, t := range types {
			if e.Type == t {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.SecurityEvent
	for i := range r.events {
		if r.events[i].UserID == userID {
			e := r.events[i]
			all = append(all, &e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	offset = max(offset, 0)
	if int(offset) >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && int(limit) < len(all) {
		all = all[:limit]
	}
	return all, nil
}
