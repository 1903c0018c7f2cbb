// Package hasher implements salted password hashing and constant-time
// verification for stored credentials.
//
// Keys are derived with PBKDF2-HMAC-SHA256 so that brute-forcing stolen
// hashes stays computationally expensive. The iteration count is a tunable
// cost parameter; the derivation itself touches no shared state and runs
// without locks.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"math/big"

	"crypto/rand"

	"golang.org/x/crypto/pbkdf2"

	"github.com/vkulagin/authgate/internal/shared"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used unless the
	// configuration overrides it.
	DefaultIterations = 100000

	// saltSize is the number of random bytes in a generated salt.
	saltSize = 32

	// keySize is the derived key length in bytes.
	keySize = 32
)

// passwordAlphabet is the character set for provisioned random passwords.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()"

// Hasher derives and verifies password hashes.
type Hasher struct {
	iterations int
}

// New returns a Hasher with the given PBKDF2 iteration count. Non-positive
// values fall back to DefaultIterations.
func New(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash derives a key from password with a fresh random salt and returns
// both, base64 encoded for storage.
func (h *Hasher) Hash(password string) (hash string, salt string, err error) {
	rawSalt := make([]byte, saltSize)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}
	return h.hashWithSalt(password, rawSalt), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// HashWithSalt derives a key from password using the provided base64-encoded
// salt. Deterministic: the same password and salt always produce the same
// hash.
func (h *Hasher) HashWithSalt(password string, salt string) (string, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", err
	}
	return h.hashWithSalt(password, rawSalt), nil
}

func (h *Hasher) hashWithSalt(password string, rawSalt []byte) string {
	key := pbkdf2.Key([]byte(password), rawSalt, h.iterations, keySize, sha256.New)
	encoded := base64.StdEncoding.EncodeToString(key)
	shared.WipeByteArray(key)
	return encoded
}

// Verify re-derives the key with the stored salt and compares it against the
// stored hash in constant time. It fails closed: malformed stored values
// return false, never an error, and the comparison leaks no information
// about how many leading bytes matched.
func (h *Hasher) Verify(password, storedHash, storedSalt string) bool {
	rawSalt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}

	key := pbkdf2.Key([]byte(password), rawSalt, h.iterations, keySize, sha256.New)
	defer shared.WipeByteArray(key)

	return subtle.ConstantTimeCompare(key, expected) == 1
}

// GenerateRandomPassword draws length characters from the secure random
// source over an alphanumeric+symbol alphabet. Intended for provisioning
// accounts, not for verification.
func GenerateRandomPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
