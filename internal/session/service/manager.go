// Package service implements the session lifecycle: risk-gated creation, sliding-window validation,
// eviction, invalidation and remember-me tokens.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/clientip"
	devicedomain "sessionguard/internal/device/domain"
	riskdomain "sessionguard/internal/risk/domain"
	"sessionguard/internal/security"
	"sessionguard/internal/session/domain"
	userdomain "sessionguard/internal/user/domain"
)

// DefaultRememberTokenTTL is the remember-token lifetime when none is configured.
const DefaultRememberTokenTTL = 30 * 24 * time.Hour

// SessionRepo is the session persistence needed by the manager.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Touch(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID string) (int, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

// RememberTokenRepo is the remember-token persistence needed by the manager.
type RememberTokenRepo interface {
	GetByHash(ctx context.Context, tokenHash string) (*domain.RememberToken, error)
	Create(ctx context.Context, t *domain.RememberToken) error
	RecordUse(ctx context.Context, id string, at time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID string) (int, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

// EventRecorder appends security events.
type EventRecorder interface {
	Record(ctx context.Context, e *auditdomain.SecurityEvent) error
	RecordBestEffort(ctx context.Context, e *auditdomain.SecurityEvent)
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.SecurityEvent, error)
}

// RiskAnalyzer scores a session-creation attempt.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, userID, ip, userAgent string) (riskdomain.Assessment, error)
}

// PolicyResolver reads and updates per-user session policy.
type PolicyResolver interface {
	Effective(ctx context.Context, userID string) (userdomain.SessionPolicy, error)
	Update(ctx context.Context, userID string, prefs userdomain.Preferences) (userdomain.SessionPolicy, error)
}

// DeviceParser derives device information from a User-Agent string.
type DeviceParser interface {
	ParseDeviceInfo(userAgent string) devicedomain.Info
}

// Config tunes remember-token behaviour.
type Config struct {
	RememberTokenTTL time.Duration
	// RotateRememberOnUse revokes a remember token once it has been exchanged; the caller then issues a new one.
	RotateRememberOnUse bool
}

// Created is the result of CreateUserSession. The plaintext tokens are only ever returned here.
type Created struct {
	Session       *domain.Session
	SessionToken  string
	RememberToken string // empty unless remember-me was requested and allowed
}

// Manager orchestrates the session lifecycle. It holds no per-user state; concurrent safety comes
// from the repositories' conditional updates.
type Manager struct {
	sessions  SessionRepo
	remember  RememberTokenRepo
	events    EventRecorder
	risk      RiskAnalyzer
	policies  PolicyResolver
	devices   DeviceParser
	cfg       Config
	now       func() time.Time
	newID     func() string
	telemetry instruments
}

// NewManager returns a Manager with the given dependencies.
func NewManager(
	sessions SessionRepo,
	remember RememberTokenRepo,
	events EventRecorder,
	risk RiskAnalyzer,
	policies PolicyResolver,
	devices DeviceParser,
	cfg Config,
) *Manager {
	if cfg.RememberTokenTTL <= 0 {
		cfg.RememberTokenTTL = DefaultRememberTokenTTL
	}
	return &Manager{
		sessions:  sessions,
		remember:  remember,
		events:    events,
		risk:      risk,
		policies:  policies,
		devices:   devices,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
		telemetry: newInstruments(),
	}
}

// RotatesRememberTokens reports whether a successful ValidateRememberToken revokes the token.
func (m *Manager) RotatesRememberTokens() bool {
	return m.cfg.RotateRememberOnUse
}

// CreateUserSession analyses the attempt and, unless blocked, persists a new session for userID.
// Blocked attempts are recorded and return a *BlockedError (matching ErrBlocked); no session is written.
// When the user is at the concurrent-session limit, the least recently active sessions are evicted first.
// A remember token is minted only if rememberMe is requested and the user's policy allows it.
func (m *Manager) CreateUserSession(ctx context.Context, userID string, req clientip.Request, rememberMe bool, location string) (_ *Created, err error) {
	ctx, span := m.telemetry.tracer.Start(ctx, "session.CreateUserSession",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.Bool("remember_me", rememberMe)))
	defer func() { endSpan(span, err) }()

	ip := clientip.GetClientIP(req)
	userAgent := req.Header("User-Agent")
	device := m.devices.ParseDeviceInfo(userAgent)
	span.SetAttributes(attribute.String("client.address", ip), attribute.String("device.type", device.DeviceType))

	assessment, err := m.risk.Analyze(ctx, userID, ip, userAgent)
	if m.telemetry.riskScore != nil {
		m.telemetry.riskScore.Record(ctx, int64(assessment.RiskScore))
	}
	span.SetAttributes(attribute.Int("risk.score", assessment.RiskScore), attribute.Bool("risk.blocked", assessment.IsBlocked))
	if err != nil {
		add(ctx, m.telemetry.blocked, 1)
		return nil, errors.Join(blockedError(assessment), persistence("analyze risk", err))
	}
	if assessment.IsBlocked {
		add(ctx, m.telemetry.blocked, 1)
		blocked := blockedError(assessment)
		recErr := m.events.Record(ctx, &auditdomain.SecurityEvent{
			UserID:      userID,
			Type:        auditdomain.EventSessionBlocked,
			IPAddress:   ip,
			UserAgent:   userAgent,
			RiskScore:   assessment.RiskScore,
			IsBlocked:   true,
			BlockReason: assessment.BlockReason,
			Metadata:    metadata(map[string]any{"factors": assessment.Factors}),
		})
		if recErr != nil {
			return nil, errors.Join(blocked, persistence("record blocked attempt", recErr))
		}
		return nil, blocked
	}

	policy, err := m.policies.Effective(ctx, userID)
	if err != nil {
		return nil, persistence("read session policy", err)
	}
	if err := m.evictForNewSession(ctx, userID, policy.MaxConcurrentSessions); err != nil {
		return nil, err
	}

	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	now := m.now()
	s := &domain.Session{
		ID:             m.newID(),
		TokenHash:      security.HashToken(token),
		UserID:         userID,
		DeviceType:     device.DeviceType,
		Browser:        device.Browser,
		BrowserVersion: device.BrowserVersion,
		OS:             device.OS,
		OSVersion:      device.OSVersion,
		UserAgent:      userAgent,
		IPAddress:      ip,
		Location:       location,
		IsActive:       true,
		ExpiresAt:      now.Add(policy.Timeout()),
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, persistence("create session", err)
	}
	add(ctx, m.telemetry.created, 1)
	span.SetAttributes(attribute.String("session.id", s.ID))
	m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
		UserID:    userID,
		Type:      auditdomain.EventSessionCreated,
		IPAddress: ip,
		UserAgent: userAgent,
		RiskScore: assessment.RiskScore,
		Metadata:  metadata(map[string]any{"session_id": s.ID, "device_type": s.DeviceType, "factors": assessment.Factors}),
	})

	out := &Created{Session: s, SessionToken: token}
	if rememberMe && policy.RememberMeEnabled {
		rt, err := m.issueRememberToken(ctx, userID, now)
		if err != nil {
			// The caller never sees the session token, so the session must not outlive this call.
			if _, derr := m.sessions.Deactivate(ctx, s.ID); derr != nil {
				err = errors.Join(err, persistence("roll back session", derr))
			}
			return nil, err
		}
		out.RememberToken = rt
	}
	return out, nil
}

// evictForNewSession makes room for one more session under limit. Expired rows found along the way are
// deactivated as expired and do not count toward the limit.
func (m *Manager) evictForNewSession(ctx context.Context, userID string, limit int) error {
	active, err := m.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return persistence("list active sessions", err)
	}
	now := m.now()
	live := active[:0]
	for _, s := range active {
		if s.IsExpired(now) {
			if err := m.expire(ctx, s); err != nil {
				return err
			}
			continue
		}
		live = append(live, s)
	}
	for len(live) > 0 && len(live) >= limit {
		oldest := live[0]
		live = live[1:]
		ok, err := m.sessions.Deactivate(ctx, oldest.ID)
		if err != nil {
			return persistence("evict session", err)
		}
		if !ok {
			continue
		}
		add(ctx, m.telemetry.evicted, 1)
		m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
			UserID:    userID,
			Type:      auditdomain.EventSessionEvicted,
			IPAddress: oldest.IPAddress,
			UserAgent: oldest.UserAgent,
			Metadata:  metadata(map[string]any{"session_id": oldest.ID, "max_concurrent_sessions": limit}),
		})
	}
	return nil
}

func (m *Manager) issueRememberToken(ctx context.Context, userID string, now time.Time) (string, error) {
	token, err := security.GenerateRememberToken()
	if err != nil {
		return "", fmt.Errorf("generate remember token: %w", err)
	}
	rt := &domain.RememberToken{
		ID:        m.newID(),
		UserID:    userID,
		TokenHash: security.HashRememberToken(token),
		IsActive:  true,
		ExpiresAt: now.Add(m.cfg.RememberTokenTTL),
		CreatedAt: now,
	}
	if err := m.remember.Create(ctx, rt); err != nil {
		return "", persistence("create remember token", err)
	}
	return token, nil
}

// ValidateSession returns the refreshed session for token, or nil when the token is unknown, inactive or expired.
// An expired session is deactivated as a side effect. On success LastActivityAt becomes now and ExpiresAt
// slides to now plus the user's session timeout. req may be nil.
func (m *Manager) ValidateSession(ctx context.Context, token string, req clientip.Request) (_ *domain.Session, err error) {
	ctx, span := m.telemetry.tracer.Start(ctx, "session.ValidateSession")
	defer func() { endSpan(span, err) }()
	if req != nil {
		span.SetAttributes(attribute.String("client.address", clientip.GetClientIP(req)))
	}

	s, err := m.lookupSession(ctx, token)
	if err != nil || s == nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", s.ID), attribute.String("user.id", s.UserID))
	now := m.now()
	if !s.IsUsable(now) {
		if s.IsActive {
			return nil, m.expire(ctx, s)
		}
		return nil, nil
	}
	policy, err := m.policies.Effective(ctx, s.UserID)
	if err != nil {
		return nil, persistence("read session policy", err)
	}
	expiresAt := now.Add(policy.Timeout())
	ok, err := m.sessions.Touch(ctx, s.ID, now, expiresAt)
	if err != nil {
		return nil, persistence("touch session", err)
	}
	if !ok {
		// Invalidated between lookup and touch.
		return nil, nil
	}
	s.LastActivityAt = now
	s.ExpiresAt = expiresAt
	return s, nil
}

func (m *Manager) lookupSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	s, err := m.sessions.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return nil, persistence("look up session", err)
	}
	if s == nil || !security.TokenHashEqual(token, s.TokenHash) {
		return nil, nil
	}
	return s, nil
}

// expire deactivates an expired session and records the transition once.
func (m *Manager) expire(ctx context.Context, s *domain.Session) error {
	ok, err := m.sessions.Deactivate(ctx, s.ID)
	if err != nil {
		return persistence("expire session", err)
	}
	if ok {
		add(ctx, m.telemetry.expired, 1)
		m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
			UserID:    s.UserID,
			Type:      auditdomain.EventSessionExpired,
			IPAddress: s.IPAddress,
			Metadata:  metadata(map[string]any{"session_id": s.ID}),
		})
	}
	return nil
}

// InvalidateSession deactivates the session for token. It reports false when the token is unknown or
// the session was already inactive.
func (m *Manager) InvalidateSession(ctx context.Context, token string) (bool, error) {
	s, err := m.lookupSession(ctx, token)
	if err != nil || s == nil {
		return false, err
	}
	return m.deactivateSession(ctx, s)
}

// InvalidateUserSession deactivates one of userID's sessions by ID. It returns ErrNotFound when the
// session does not exist or belongs to another user; an already inactive session is not an error.
func (m *Manager) InvalidateUserSession(ctx context.Context, userID, sessionID string) error {
	s, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return persistence("look up session", err)
	}
	if s == nil || s.UserID != userID {
		return ErrNotFound
	}
	_, err = m.deactivateSession(ctx, s)
	return err
}

func (m *Manager) deactivateSession(ctx context.Context, s *domain.Session) (bool, error) {
	ok, err := m.sessions.Deactivate(ctx, s.ID)
	if err != nil {
		return false, persistence("invalidate session", err)
	}
	if ok {
		m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
			UserID:    s.UserID,
			Type:      auditdomain.EventSessionInvalidated,
			IPAddress: s.IPAddress,
			Metadata:  metadata(map[string]any{"session_id": s.ID}),
		})
	}
	return ok, nil
}

// InvalidateAllUserSessions deactivates every active session of userID and revokes the user's remember
// tokens. It returns the number of sessions deactivated.
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, userID string) (int, error) {
	n, err := m.sessions.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return 0, persistence("invalidate sessions", err)
	}
	revoked, err := m.remember.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return n, persistence("revoke remember tokens", err)
	}
	m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
		UserID:   userID,
		Type:     auditdomain.EventSessionsInvalidatedAll,
		Metadata: metadata(map[string]any{"sessions": n, "remember_tokens": revoked}),
	})
	return n, nil
}

// ValidateRememberToken returns the owning user ID for token, or "" when the token is unknown, revoked or
// expired. An expired token is deactivated as a side effect. On success the usage count is incremented;
// the caller is expected to create a new session for the returned user.
func (m *Manager) ValidateRememberToken(ctx context.Context, token string) (_ string, err error) {
	ctx, span := m.telemetry.tracer.Start(ctx, "session.ValidateRememberToken")
	defer func() { endSpan(span, err) }()

	rt, err := m.lookupRememberToken(ctx, token)
	if err != nil || rt == nil || !rt.IsActive {
		return "", err
	}
	now := m.now()
	if rt.IsExpired(now) {
		ok, err := m.remember.Deactivate(ctx, rt.ID)
		if err != nil {
			return "", persistence("expire remember token", err)
		}
		if ok {
			m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
				UserID:   rt.UserID,
				Type:     auditdomain.EventRememberTokenExpired,
				Metadata: metadata(map[string]any{"remember_token_id": rt.ID}),
			})
		}
		return "", nil
	}
	ok, err := m.remember.RecordUse(ctx, rt.ID, now)
	if err != nil {
		return "", persistence("record remember token use", err)
	}
	if !ok {
		return "", nil
	}
	add(ctx, m.telemetry.rememberUsed, 1)
	span.SetAttributes(attribute.String("user.id", rt.UserID))
	m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
		UserID:   rt.UserID,
		Type:     auditdomain.EventRememberTokenUsed,
		Metadata: metadata(map[string]any{"remember_token_id": rt.ID, "usage_count": rt.UsageCount + 1}),
	})
	if m.cfg.RotateRememberOnUse {
		if _, err := m.revokeRememberToken(ctx, rt, "rotated"); err != nil {
			return "", err
		}
	}
	return rt.UserID, nil
}

func (m *Manager) lookupRememberToken(ctx context.Context, token string) (*domain.RememberToken, error) {
	if token == "" {
		return nil, nil
	}
	rt, err := m.remember.GetByHash(ctx, security.HashRememberToken(token))
	if err != nil {
		return nil, persistence("look up remember token", err)
	}
	if rt == nil || !security.TokenHashEqual(token, rt.TokenHash) {
		return nil, nil
	}
	return rt, nil
}

// InvalidateRememberToken revokes the remember token. It reports false when the token is unknown or already inactive.
func (m *Manager) InvalidateRememberToken(ctx context.Context, token string) (bool, error) {
	rt, err := m.lookupRememberToken(ctx, token)
	if err != nil || rt == nil {
		return false, err
	}
	return m.revokeRememberToken(ctx, rt, "invalidated")
}

func (m *Manager) revokeRememberToken(ctx context.Context, rt *domain.RememberToken, cause string) (bool, error) {
	ok, err := m.remember.Deactivate(ctx, rt.ID)
	if err != nil {
		return false, persistence("revoke remember token", err)
	}
	if ok {
		m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
			UserID:   rt.UserID,
			Type:     auditdomain.EventRememberTokenRevoked,
			Metadata: metadata(map[string]any{"remember_token_id": rt.ID, "cause": cause}),
		})
	}
	return ok, nil
}

// GetUserActiveSessions returns userID's active, unexpired sessions, most recently active first.
func (m *Manager) GetUserActiveSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	list, err := m.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list active sessions", err)
	}
	now := m.now()
	out := make([]*domain.Session, 0, len(list))
	for _, s := range list {
		if !s.IsExpired(now) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivityAt.After(out[j].LastActivityAt) })
	return out, nil
}

// GetSessionPreferences returns userID's effective session policy.
func (m *Manager) GetSessionPreferences(ctx context.Context, userID string) (userdomain.SessionPolicy, error) {
	p, err := m.policies.Effective(ctx, userID)
	if err != nil {
		return userdomain.SessionPolicy{}, persistence("read session policy", err)
	}
	return p, nil
}

// UpdateSessionPreferences applies prefs to userID's policy. Out-of-range values return an error
// matching ErrPolicyViolation and leave the stored policy unchanged.
func (m *Manager) UpdateSessionPreferences(ctx context.Context, userID string, prefs userdomain.Preferences) (userdomain.SessionPolicy, error) {
	p, err := m.policies.Update(ctx, userID, prefs)
	if err != nil {
		if errors.Is(err, userdomain.ErrOutOfBounds) {
			return userdomain.SessionPolicy{}, fmt.Errorf("%w: %w", ErrPolicyViolation, err)
		}
		return userdomain.SessionPolicy{}, persistence("update session policy", err)
	}
	m.events.RecordBestEffort(ctx, &auditdomain.SecurityEvent{
		UserID: userID,
		Type:   auditdomain.EventPreferencesUpdated,
		Metadata: metadata(map[string]any{
			"session_timeout":         p.SessionTimeout,
			"max_concurrent_sessions": p.MaxConcurrentSessions,
			"remember_me_enabled":     p.RememberMeEnabled,
		}),
	})
	return p, nil
}

// RecordFailedLogin appends a failed-login event for userID so later risk analysis can see it.
func (m *Manager) RecordFailedLogin(ctx context.Context, userID string, req clientip.Request) error {
	return m.recordRequestEvent(ctx, userID, req, auditdomain.EventLoginFailed, "")
}

// RecordSuspiciousActivity appends a suspicious-activity event for userID.
func (m *Manager) RecordSuspiciousActivity(ctx context.Context, userID string, req clientip.Request, reason string) error {
	return m.recordRequestEvent(ctx, userID, req, auditdomain.EventSuspiciousActivity, reason)
}

func (m *Manager) recordRequestEvent(ctx context.Context, userID string, req clientip.Request, typ auditdomain.EventType, reason string) error {
	e := &auditdomain.SecurityEvent{UserID: userID, Type: typ}
	if req != nil {
		e.IPAddress = clientip.GetClientIP(req)
		e.UserAgent = req.Header("User-Agent")
	}
	if reason != "" {
		e.Metadata = metadata(map[string]any{"reason": reason})
	}
	if err := m.events.Record(ctx, e); err != nil {
		return persistence("record "+string(typ), err)
	}
	return nil
}

// ListSecurityEvents returns userID's security events, newest first.
func (m *Manager) ListSecurityEvents(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.SecurityEvent, error) {
	list, err := m.events.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, persistence("list security events", err)
	}
	return list, nil
}

// CleanupExpired deactivates every active session and remember token past its expiry.
func (m *Manager) CleanupExpired(ctx context.Context) (sessions, tokens int, err error) {
	ctx, span := m.telemetry.tracer.Start(ctx, "session.CleanupExpired")
	defer func() { endSpan(span, err) }()

	now := m.now()
	sessions, err = m.sessions.DeactivateExpired(ctx, now)
	if err != nil {
		return 0, 0, persistence("expire sessions", err)
	}
	add(ctx, m.telemetry.expired, int64(sessions))
	tokens, err = m.remember.DeactivateExpired(ctx, now)
	if err != nil {
		return sessions, 0, persistence("expire remember tokens", err)
	}
	span.SetAttributes(attribute.Int("sessions.expired", sessions), attribute.Int("remember_tokens.expired", tokens))
	return sessions, tokens, nil
}

func blockedError(a riskdomain.Assessment) *BlockedError {
	return &BlockedError{Reason: a.BlockReason, RiskScore: a.RiskScore, Factors: a.Factors}
}

func metadata(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrBlocked) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
