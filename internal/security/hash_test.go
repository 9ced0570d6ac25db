package security

import (
	"testing"
)

func TestHashRememberToken_Consistent(t *testing.T) {
	token := "test-remember-token-123"
	hash1 := HashRememberToken(token)
	hash2 := HashRememberToken(token)

	if hash1 != hash2 {
		t.Errorf("HashRememberToken not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashRememberToken_DifferentTokens(t *testing.T) {
	hash1 := HashRememberToken("token-1")
	hash2 := HashRememberToken("token-2")

	if hash1 == hash2 {
		t.Error("HashRememberToken produced same hash for different tokens")
	}
}

func TestHashRememberToken_EmptyToken(t *testing.T) {
	hash := HashRememberToken("")
	if len(hash) != 64 {
		t.Errorf("hash length for empty token = %d, want 64", len(hash))
	}
}

func TestHashRememberToken_NotPlaintext(t *testing.T) {
	token, err := GenerateRememberToken()
	if err != nil {
		t.Fatalf("GenerateRememberToken: %v", err)
	}
	if HashRememberToken(token) == token {
		t.Error("hash must not equal the plaintext token")
	}
}

func TestTokenHashEqual_CorrectMatch(t *testing.T) {
	token := "test-session-token-456"
	storedHash := HashToken(token)

	if !TokenHashEqual(token, storedHash) {
		t.Error("TokenHashEqual should match correct token")
	}
}

func TestTokenHashEqual_RejectsIncorrect(t *testing.T) {
	storedHash := HashToken("correct-token")

	if TokenHashEqual("wrong-token", storedHash) {
		t.Error("TokenHashEqual should reject incorrect token")
	}
}

func TestTokenHashEqual_DifferentLength(t *testing.T) {
	token := "test-token-789"
	storedHash := HashToken(token)

	if TokenHashEqual(token, "a"+storedHash) {
		t.Error("TokenHashEqual should reject hash with different length")
	}
}

func TestTokenHashEqual_EmptyInputs(t *testing.T) {
	if TokenHashEqual("", "") {
		t.Error("TokenHashEqual should not match empty stored hash")
	}
	if TokenHashEqual("", HashToken("some-token")) {
		t.Error("TokenHashEqual should not match empty token")
	}
}

func TestTokenHashEqual_SameLengthDifferentContent(t *testing.T) {
	token := "test-token"
	correctHash := HashToken(token)

	wrongHash := "a" + correctHash[1:]
	if correctHash[0] == 'a' {
		wrongHash = "b" + correctHash[1:]
	}
	if TokenHashEqual(token, wrongHash) {
		t.Error("TokenHashEqual should reject hash with different content")
	}
}
