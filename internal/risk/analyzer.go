// Package risk scores session-creation attempts from a user's recent security history and decides whether to block them.
package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/risk/domain"
)

// ErrSignalUnavailable is returned (wrapped) when a signal could not be read. The accompanying assessment is blocked.
var ErrSignalUnavailable = errors.New("risk: signal unavailable")

// EventCounter counts a user's security events by type.
type EventCounter interface {
	CountSince(ctx context.Context, userID string, types []auditdomain.EventType, since time.Time) (int, error)
}

// SessionStats reads session-derived signals.
type SessionStats interface {
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error)
	CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error)
	HasSessionFromIP(ctx context.Context, userID, ip string) (bool, error)
}

// LimitSource returns the user's effective concurrent-session limit.
type LimitSource interface {
	MaxConcurrentSessions(ctx context.Context, userID string) (int, error)
}

// Config tunes the lookback windows and the hard-block threshold.
type Config struct {
	FailedLoginWindow     time.Duration
	ActivityWindow        time.Duration
	HardBlockFailedLogins int
}

// DefaultConfig returns the windows and threshold used when none are configured.
func DefaultConfig() Config {
	return Config{
		FailedLoginWindow:     15 * time.Minute,
		ActivityWindow:        24 * time.Hour,
		HardBlockFailedLogins: 5,
	}
}

// suspiciousTypes are the event types counted as suspicious activity.
var suspiciousTypes = []auditdomain.EventType{
	auditdomain.EventSuspiciousActivity,
	auditdomain.EventSessionBlocked,
}

// Analyzer produces an Assessment for each session-creation attempt.
type Analyzer struct {
	events     EventCounter
	sessions   SessionStats
	limits     LimitSource
	policy     BlockPolicy
	heuristics []Heuristic
	cfg        Config
	now        func() time.Time
}

// NewAnalyzer returns an Analyzer using DefaultHeuristics. policy may be nil, in which case a
// ThresholdPolicy at DefaultBlockScore is used.
func NewAnalyzer(events EventCounter, sessions SessionStats, limits LimitSource, policy BlockPolicy, cfg Config) *Analyzer {
	if policy == nil {
		policy = ThresholdPolicy{Score: DefaultBlockScore}
	}
	def := DefaultConfig()
	if cfg.FailedLoginWindow <= 0 {
		cfg.FailedLoginWindow = def.FailedLoginWindow
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = def.ActivityWindow
	}
	if cfg.HardBlockFailedLogins <= 0 {
		cfg.HardBlockFailedLogins = def.HardBlockFailedLogins
	}
	return &Analyzer{
		events:     events,
		sessions:   sessions,
		limits:     limits,
		policy:     policy,
		heuristics: DefaultHeuristics,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithHeuristics returns a copy of a that scores with hs instead of DefaultHeuristics.
func (a *Analyzer) WithHeuristics(hs ...Heuristic) *Analyzer {
	cp := *a
	cp.heuristics = hs
	return &cp
}

// Analyze scores an attempt by userID from ip.
// The failed-login count is read first; at or above the hard-block threshold the attempt is blocked
// without reading any other signal. Any read failure returns a blocked assessment together with an
// error wrapping ErrSignalUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, userID, ip, userAgent string) (domain.Assessment, error) {
	now := a.now()

	failed, err := a.events.CountSince(ctx, userID, []auditdomain.EventType{auditdomain.EventLoginFailed}, now.Add(-a.cfg.FailedLoginWindow))
	if err != nil {
		return failClosed(fmt.Errorf("%w: failed logins: %w", ErrSignalUnavailable, err))
	}
	if failed >= a.cfg.HardBlockFailedLogins {
		return domain.Assessment{
			RiskScore:   domain.MaxScore,
			IsBlocked:   true,
			BlockReason: domain.ReasonTooManyFailedLogins,
			Factors:     []string{"Multiple failed login attempts"},
		}, nil
	}

	sig := Signals{FailedLogins: failed}
	since := now.Add(-a.cfg.ActivityWindow)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.events.CountSince(gctx, userID, suspiciousTypes, since)
		if err != nil {
			return fmt.Errorf("suspicious activity: %w", err)
		}
		sig.SuspiciousEvents = n
		return nil
	})
	g.Go(func() error {
		n, err := a.sessions.CountActiveByUser(gctx, userID, now)
		if err != nil {
			return fmt.Errorf("active sessions: %w", err)
		}
		sig.ActiveSessions = n
		return nil
	})
	g.Go(func() error {
		n, err := a.limits.MaxConcurrentSessions(gctx, userID)
		if err != nil {
			return fmt.Errorf("session limit: %w", err)
		}
		sig.MaxConcurrentSessions = n
		return nil
	})
	g.Go(func() error {
		n, err := a.sessions.CountDistinctIPsSince(gctx, userID, since)
		if err != nil {
			return fmt.Errorf("distinct ips: %w", err)
		}
		sig.DistinctIPs = n
		return nil
	})
	g.Go(func() error {
		seen, err := a.sessions.HasSessionFromIP(gctx, userID, ip)
		if err != nil {
			return fmt.Errorf("known ip: %w", err)
		}
		sig.IPSeenBefore = seen
		return nil
	})
	if err := g.Wait(); err != nil {
		return failClosed(fmt.Errorf("%w: %w", ErrSignalUnavailable, err))
	}

	score, factors := Score(sig, a.heuristics)
	out := domain.Assessment{RiskScore: score, Factors: factors}
	block, err := a.policy.ShouldBlock(ctx, Decision{
		UserID: userID, IP: ip, UserAgent: userAgent, RiskScore: score, Factors: factors, Signals: sig,
	})
	if err != nil {
		return failClosed(fmt.Errorf("%w: block policy: %w", ErrSignalUnavailable, err))
	}
	if block {
		out.IsBlocked = true
		out.BlockReason = scoreReason(score)
	}
	return out, nil
}

func failClosed(err error) (domain.Assessment, error) {
	return domain.Assessment{
		RiskScore:   domain.MaxScore,
		IsBlocked:   true,
		BlockReason: domain.ReasonSignalsUnavailable,
		Factors:     []string{"Risk signals unavailable"},
	}, err
}
