package domain

import "time"

// Session represents one authenticated browser or device instance.
// Only the SHA-256 hash of the bearer token is stored.
type Session struct {
	ID             string
	TokenHash      string
	UserID         string
	DeviceType     string
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	UserAgent      string
	IPAddress      string
	Location       string // empty when unknown
	IsActive       bool
	ExpiresAt      time.Time
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// IsExpired reports whether the session's sliding window has elapsed at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsUsable reports whether the session is active and not expired at now.
func (s *Session) IsUsable(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// RememberToken is a long-lived credential that can mint a new session without a password.
// The plaintext token is never stored.
type RememberToken struct {
	ID         string
	UserID     string
	TokenHash  string
	IsActive   bool
	ExpiresAt  time.Time
	UsageCount int
	LastUsedAt *time.Time // nil until first use
	CreatedAt  time.Time
}

// IsExpired reports whether the token's expiry has passed at now.
func (t *RememberToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
