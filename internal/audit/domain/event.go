package domain

import "time"

// EventType classifies a security or activity event.
type EventType string

const (
	EventLoginFailed            EventType = "login_failed"
	EventSuspiciousActivity     EventType = "suspicious_activity"
	EventSessionBlocked         EventType = "session_blocked"
	EventSessionCreated         EventType = "session_created"
	EventSessionEvicted         EventType = "session_evicted"
	EventSessionExpired         EventType = "session_expired"
	EventSessionInvalidated     EventType = "session_invalidated"
	EventSessionsInvalidatedAll EventType = "sessions_invalidated_all"
	EventRememberTokenUsed      EventType = "remember_token_used"
	EventRememberTokenExpired   EventType = "remember_token_expired"
	EventRememberTokenRevoked   EventType = "remember_token_revoked"
	EventPreferencesUpdated     EventType = "preferences_updated"
)

// SecurityEvent is an append-only audit entry keyed by user. Only the Resolved flag may change
// after creation, and it is owned by the review tooling, not the session core.
type SecurityEvent struct {
	ID          string
	UserID      string
	Type        EventType
	IPAddress   string
	UserAgent   string
	RiskScore   int
	IsBlocked   bool
	BlockReason string
	Metadata    string
	Resolved    bool
	CreatedAt   time.Time
}
