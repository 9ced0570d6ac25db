package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"sessionguard/internal/user/domain"
)

const policyKeyPrefix = "sessionguard:policy:"

// RedisClient is the subset of *redis.Client used by CachedRepository.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedRepository is a read-through Redis cache in front of another Repository.
// The wrapped repository is authoritative: cache failures are logged and bypassed.
// Absent policies are not cached, so defaults always come from configuration.
type CachedRepository struct {
	next   Repository
	client RedisClient
	ttl    time.Duration
}

// NewCachedRepository wraps next with a Redis cache whose entries live for ttl.
func NewCachedRepository(next Repository, client RedisClient, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, client: client, ttl: ttl}
}

type cachedPolicy struct {
	UserID                string    `json:"user_id"`
	SessionTimeout        int       `json:"session_timeout"`
	MaxConcurrentSessions int       `json:"max_concurrent_sessions"`
	RememberMeEnabled     bool      `json:"remember_me_enabled"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (r *CachedRepository) GetPolicy(ctx context.Context, userID string) (*domain.SessionPolicy, error) {
	key := policyKeyPrefix + userID
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c cachedPolicy
		if jerr := json.Unmarshal(raw, &c); jerr == nil {
			return &domain.SessionPolicy{
				UserID:                c.UserID,
				SessionTimeout:        c.SessionTimeout,
				MaxConcurrentSessions: c.MaxConcurrentSessions,
				RememberMeEnabled:     c.RememberMeEnabled,
				UpdatedAt:             c.UpdatedAt,
			}, nil
		}
		log.Printf("user: dropping corrupt cached policy for %s", userID)
	case !errors.Is(err, redis.Nil):
		log.Printf("user: policy cache get %s: %v", userID, err)
	}

	p, err := r.next.GetPolicy(ctx, userID)
	if err != nil || p == nil {
		return p, err
	}
	payload, _ := json.Marshal(cachedPolicy{
		UserID:                p.UserID,
		SessionTimeout:        p.SessionTimeout,
		MaxConcurrentSessions: p.MaxConcurrentSessions,
		RememberMeEnabled:     p.RememberMeEnabled,
		UpdatedAt:             p.UpdatedAt,
	})
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		log.Printf("user: policy cache set %s: %v", userID, err)
	}
	return p, nil
}

// UpsertPolicy writes through to the wrapped repository and then drops the cached entry.
func (r *CachedRepository) UpsertPolicy(ctx context.Context, p *domain.SessionPolicy) error {
	if err := r.next.UpsertPolicy(ctx, p); err != nil {
		return err
	}
	if err := r.client.Del(ctx, policyKeyPrefix+p.UserID).Err(); err != nil {
		log.Printf("user: policy cache invalidate %s: %v", p.UserID, err)
	}
	return nil
}
