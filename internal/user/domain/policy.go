package domain

import (
	"errors"
	"fmt"
	"time"
)

// Bounds for per-user session settings. Timeouts are in seconds.
const (
	MinSessionTimeout        = 300
	MaxSessionTimeout        = 86400
	MinMaxConcurrentSessions = 1
	MaxMaxConcurrentSessions = 10
	DefaultSessionTimeout    = 86400
	DefaultMaxConcurrent     = 5
	DefaultRememberMeEnabled = true
)

// ErrOutOfBounds is returned by Validate when a setting is outside its allowed range.
var ErrOutOfBounds = errors.New("session policy value out of bounds")

// SessionPolicy is the per-user session configuration read by the session core.
type SessionPolicy struct {
	UserID                string
	SessionTimeout        int // seconds
	MaxConcurrentSessions int
	RememberMeEnabled     bool
	UpdatedAt             time.Time
}

// Timeout returns SessionTimeout as a duration.
func (p *SessionPolicy) Timeout() time.Duration {
	return time.Duration(p.SessionTimeout) * time.Second
}

// Validate returns an error wrapping ErrOutOfBounds describing the first invalid field.
func (p *SessionPolicy) Validate() error {
	if p.SessionTimeout < MinSessionTimeout || p.SessionTimeout > MaxSessionTimeout {
		return fmt.Errorf("%w: sessionTimeout must be between %d and %d seconds, got %d",
			ErrOutOfBounds, MinSessionTimeout, MaxSessionTimeout, p.SessionTimeout)
	}
	if p.MaxConcurrentSessions < MinMaxConcurrentSessions || p.MaxConcurrentSessions > MaxMaxConcurrentSessions {
		return fmt.Errorf("%w: maxConcurrentSessions must be between %d and %d, got %d",
			ErrOutOfBounds, MinMaxConcurrentSessions, MaxMaxConcurrentSessions, p.MaxConcurrentSessions)
	}
	return nil
}

// Preferences is a partial update to a SessionPolicy; nil fields are left unchanged.
type Preferences struct {
	SessionTimeout        *int  `json:"sessionTimeout,omitempty"`
	MaxConcurrentSessions *int  `json:"maxConcurrentSessions,omitempty"`
	RememberMeEnabled     *bool `json:"rememberMeEnabled,omitempty"`
}

// Apply returns a copy of p with prefs applied. The result is not validated.
func (p SessionPolicy) Apply(prefs Preferences) SessionPolicy {
	if prefs.SessionTimeout != nil {
		p.SessionTimeout = *prefs.SessionTimeout
	}
	if prefs.MaxConcurrentSessions != nil {
		p.MaxConcurrentSessions = *prefs.MaxConcurrentSessions
	}
	if prefs.RememberMeEnabled != nil {
		p.RememberMeEnabled = *prefs.RememberMeEnabled
	}
	return p
}
