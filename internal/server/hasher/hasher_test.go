package hasher

import (
	"encoding/base64"
	"strings"
	"testing"
)

// low iteration count keeps the suite fast; the KDF is the same code path
const testIterations = 1000

func TestHash_ProducesDecodableHashAndSalt(t *testing.T) {
	h := New(testIterations)

	hash, salt, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		t.Fatalf("hash is not valid base64: %v", err)
	}
	if len(rawHash) != 32 {
		t.Fatalf("expected 32-byte derived key, got %d", len(rawHash))
	}
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		t.Fatalf("salt is not valid base64: %v", err)
	}
	if len(rawSalt) != 32 {
		t.Fatalf("expected 32-byte salt, got %d", len(rawSalt))
	}
}

func TestHashWithSalt_Deterministic(t *testing.T) {
	h := New(testIterations)

	_, salt, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	a, err := h.HashWithSalt("Secur3P@ss!", salt)
	if err != nil {
		t.Fatalf("HashWithSalt error: %v", err)
	}
	b, err := h.HashWithSalt("Secur3P@ss!", salt)
	if err != nil {
		t.Fatalf("HashWithSalt error: %v", err)
	}
	if a != b {
		t.Fatalf("same password and salt produced different hashes")
	}
}

func TestHash_DifferentSaltsDifferentHashes(t *testing.T) {
	h := New(testIterations)

	h1, s1, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	h2, s2, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if s1 == s2 {
		t.Fatalf("two generated salts are identical")
	}
	if h1 == h2 {
		t.Fatalf("different salts produced the same hash")
	}
}

func TestVerify(t *testing.T) {
	h := New(testIterations)

	hash, salt, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !h.Verify("Secur3P@ss!", hash, salt) {
		t.Fatalf("correct password did not verify")
	}
	if h.Verify("Secur3P@ss?", hash, salt) {
		t.Fatalf("wrong password verified")
	}
}

func TestVerify_FailsClosedOnMalformedInputs(t *testing.T) {
	h := New(testIterations)

	hash, salt, err := h.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	tests := []struct {
		name string
		hash string
		salt string
	}{
		{"garbage salt", hash, "%%%not-base64%%%"},
		{"garbage hash", "%%%not-base64%%%", salt},
		{"empty both", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Verify("Secur3P@ss!", tt.hash, tt.salt) {
				t.Fatalf("malformed input verified")
			}
		})
	}
}

func TestVerify_IterationCountMatters(t *testing.T) {
	a := New(testIterations)
	b := New(testIterations * 2)

	hash, salt, err := a.Hash("Secur3P@ss!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if b.Verify("Secur3P@ss!", hash, salt) {
		t.Fatalf("hash verified under a different cost parameter")
	}
}

func TestGenerateRandomPassword(t *testing.T) {
	pw, err := GenerateRandomPassword(16)
	if err != nil {
		t.Fatalf("GenerateRandomPassword error: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Fatalf("character %q outside the password alphabet", r)
		}
	}

	other, err := GenerateRandomPassword(16)
	if err != nil {
		t.Fatalf("GenerateRandomPassword error: %v", err)
	}
	if pw == other {
		t.Fatalf("two generated passwords are identical")
	}
}
