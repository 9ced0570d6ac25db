package service

import (
	"context"
	"time"

	"sessionguard/internal/user/domain"
)

// PolicyRepo is the minimal policy repository needed by the policy service.
type PolicyRepo interface {
	GetPolicy(ctx context.Context, userID string) (*domain.SessionPolicy, error)
	UpsertPolicy(ctx context.Context, p *domain.SessionPolicy) error
}

// Defaults are the policy values applied when a user has no stored policy.
type Defaults struct {
	SessionTimeout        int
	MaxConcurrentSessions int
	RememberMeEnabled     bool
}

// PolicyService resolves a user's effective session policy and applies bounded updates.
type PolicyService struct {
	repo     PolicyRepo
	defaults Defaults
	now      func() time.Time
}

// NewPolicyService returns a PolicyService over repo. Zero-valued numeric defaults fall back to the domain defaults.
func NewPolicyService(repo PolicyRepo, defaults Defaults) *PolicyService {
	if defaults.SessionTimeout <= 0 {
		defaults.SessionTimeout = domain.DefaultSessionTimeout
	}
	if defaults.MaxConcurrentSessions <= 0 {
		defaults.MaxConcurrentSessions = domain.DefaultMaxConcurrent
	}
	return &PolicyService{repo: repo, defaults: defaults, now: func() time.Time { return time.Now().UTC() }}
}

// Effective returns the stored policy for userID, or the configured defaults when none is stored.
func (s *PolicyService) Effective(ctx context.Context, userID string) (domain.SessionPolicy, error) {
	p, err := s.repo.GetPolicy(ctx, userID)
	if err != nil {
		return domain.SessionPolicy{}, err
	}
	if p == nil {
		return domain.SessionPolicy{
			UserID:                userID,
			SessionTimeout:        s.defaults.SessionTimeout,
			MaxConcurrentSessions: s.defaults.MaxConcurrentSessions,
			RememberMeEnabled:     s.defaults.RememberMeEnabled,
		}, nil
	}
	return *p, nil
}

// MaxConcurrentSessions returns the user's effective concurrent-session limit.
func (s *PolicyService) MaxConcurrentSessions(ctx context.Context, userID string) (int, error) {
	p, err := s.Effective(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.MaxConcurrentSessions, nil
}

// Update applies prefs on top of the effective policy and stores the result.
// Returns an error wrapping domain.ErrOutOfBounds, without writing, when a value is out of range.
func (s *PolicyService) Update(ctx context.Context, userID string, prefs domain.Preferences) (domain.SessionPolicy, error) {
	current, err := s.Effective(ctx, userID)
	if err != nil {
		return domain.SessionPolicy{}, err
	}
	next := current.Apply(prefs)
	if err := next.Validate(); err != nil {
		return domain.SessionPolicy{}, err
	}
	next.UserID = userID
	next.UpdatedAt = s.now()
	if err := s.repo.UpsertPolicy(ctx, &next); err != nil {
		return domain.SessionPolicy{}, err
	}
	return next, nil
}
