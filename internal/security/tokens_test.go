package security

import (
	"encoding/hex"
	"errors"
	"sync"
	"testing"
)

func TestGenerateSessionToken_Length(t *testing.T) {
	tok, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("session token length = %d, want 64", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Errorf("session token is not hex: %v", err)
	}
}

func TestGenerateRememberToken_Length(t *testing.T) {
	for i := 0; i < 100; i++ {
		tok, err := GenerateRememberToken()
		if err != nil {
			t.Fatalf("GenerateRememberToken: %v", err)
		}
		if len(tok) != 96 {
			t.Fatalf("remember token length = %d, want 96", len(tok))
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("remember token is not hex: %v", err)
		}
	}
}

func TestGenerateSessionToken_NoRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate session token after %d calls", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestGenerateSessionToken_Concurrent(t *testing.T) {
	const workers, perWorker = 8, 250
	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				tok, err := GenerateSessionToken()
				if err != nil {
					t.Errorf("GenerateSessionToken: %v", err)
					return
				}
				mu.Lock()
				seen[tok] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*perWorker {
		t.Errorf("unique tokens = %d, want %d", len(seen), workers*perWorker)
	}
}

func TestGenerateToken_EntropyFailure(t *testing.T) {
	orig := randRead
	t.Cleanup(func() { randRead = orig })
	randRead = func(b []byte) (int, error) {
		return 0, errors.New("entropy pool exhausted")
	}

	tok, err := GenerateSessionToken()
	if !errors.Is(err, ErrEntropy) {
		t.Errorf("GenerateSessionToken error = %v, want ErrEntropy", err)
	}
	if tok != "" {
		t.Errorf("GenerateSessionToken returned %q on failure, want empty", tok)
	}
	if _, err := GenerateRememberToken(); !errors.Is(err, ErrEntropy) {
		t.Errorf("GenerateRememberToken error = %v, want ErrEntropy", err)
	}
}
