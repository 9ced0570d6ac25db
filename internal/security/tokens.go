package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// SessionTokenBytes is the amount of CSPRNG output behind a session token (64 hex chars).
	SessionTokenBytes = 32
	// RememberTokenBytes is the amount of CSPRNG output behind a remember token (96 hex chars).
	// Remember tokens live for weeks, so they carry more entropy than session tokens.
	RememberTokenBytes = 48
)

// ErrEntropy is returned when the system CSPRNG cannot produce token material.
// Callers must treat it as fatal for the operation and never fall back to a weaker source.
var ErrEntropy = errors.New("security: csprng unavailable")

// randRead is crypto/rand.Read; replaced in tests to simulate CSPRNG failure.
var randRead = rand.Read

// GenerateSessionToken returns a new opaque session token: 32 random bytes, hex-encoded.
func GenerateSessionToken() (string, error) {
	return generateHex(SessionTokenBytes)
}

// GenerateRememberToken returns a new opaque remember-me token: 48 random bytes, hex-encoded.
func GenerateRememberToken() (string, error) {
	return generateHex(RememberTokenBytes)
}

// generateHex reads n bytes from crypto/rand. crypto/rand is safe for concurrent use.
func generateHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return hex.EncodeToString(b), nil
}
