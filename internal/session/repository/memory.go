package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sessionguard/internal/session/domain"
)

// MemoryRepository is an in-memory Repository. It is used when no database is configured and in tests.
// Every method holds the mutex for its whole read-modify-write, so conditional updates are atomic.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s2 := *s
		return &s2, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.TokenHash == tokenHash {
			s2 := *s
			return &s2, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			s2 := *s
			out = append(out, &s2)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].LastActivityAt.Before(out[j].LastActivityAt)
	})
	return out, nil
}

func (r *MemoryRepository) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.LastActivityAt = lastActivityAt
	s.ExpiresAt = expiresAt
	return true, nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (r *MemoryRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ips := make(map[string]struct{})
	for _, s := range r.m {
		if s.UserID == userID && !s.CreatedAt.Before(since) {
			ips[s.IPAddress] = struct{}{}
		}
	}
	return len(ips), nil
}

func (r *MemoryRepository) HasSessionFromIP(ctx context.Context, userID, ip string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID && s.IPAddress == ip {
			return true, nil
		}
	}
	return false, nil
}

// MemoryRememberTokenRepository is an in-memory RememberTokenRepository keyed by token hash.
type MemoryRememberTokenRepository struct {
	mu     sync.Mutex
	byHash map[string]*domain.RememberToken
}

// NewMemoryRememberTokenRepository returns an empty in-memory remember-token repository.
func NewMemoryRememberTokenRepository() *MemoryRememberTokenRepository {
	return &MemoryRememberTokenRepository{byHash: make(map[string]*domain.RememberToken)}
}

func (r *MemoryRememberTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RememberToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byHash[tokenHash]; ok {
		t2 := *t
		return &t2, nil
	}
	return nil, nil
}

func (r *MemoryRememberTokenRepository) Create(ctx context.Context, t *domain.RememberToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t2 := *t
	r.byHash[t.TokenHash] = &t2
	return nil
}

func (r *MemoryRememberTokenRepository) RecordUse(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findLocked(id)
	if t == nil || !t.IsActive {
		return false, nil
	}
	t.UsageCount++
	used := at
	t.LastUsedAt = &used
	return true, nil
}

func (r *MemoryRememberTokenRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.findLocked(id)
	if t == nil || !t.IsActive {
		return false, nil
	}
	t.IsActive = false
	return true, nil
}

func (r *MemoryRememberTokenRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.byHash {
		if t.UserID == userID && t.IsActive {
			t.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRememberTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.byHash {
		if t.IsActive && !t.ExpiresAt.After(now) {
			t.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRememberTokenRepository) findLocked(id string) *domain.RememberToken {
	for _, t := range r.byHash {
		if t.ID == id {
			return t
		}
	}
	return nil
}
