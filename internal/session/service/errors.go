package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session manager; handlers map them to HTTP status codes and gRPC codes.
// A missing, inactive or expired credential is not an error: lookups return nil / "" instead.
var (
	ErrBlocked         = errors.New("session creation blocked")
	ErrPolicyViolation = errors.New("session policy violation")
	ErrNotFound        = errors.New("session not found")
	ErrPersistence     = errors.New("session persistence failure")
)

// BlockedError carries the risk decision behind an ErrBlocked.
type BlockedError struct {
	Reason    string
	RiskScore int
	Factors   []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBlocked.Error(), e.Reason)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// persistence wraps a storage error so callers can match ErrPersistence.
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
