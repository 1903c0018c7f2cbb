// Package csrf issues and validates per-session anti-forgery tokens.
//
// The store keeps one active token per session id. It is tied to the session
// registry by key only: it never inspects or owns sessions, and callers are
// expected to check session validity before trusting a token.
package csrf

import (
	"crypto/subtle"
	"sync"

	"github.com/vkulagin/authgate/internal/shared"
)

// Store maps session ids to their anti-forgery tokens.
type Store struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewStore creates an empty token store.
func NewStore() *Store {
	return &Store{tokens: make(map[string]string)}
}

// Issue generates a fresh random token for sessionID, replacing any prior
// token for that session.
func (s *Store) Issue(sessionID string) (string, error) {
	token, err := shared.MakeRandToken(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tokens[sessionID] = token
	s.mu.Unlock()

	return token, nil
}

// Validate compares candidate against the token stored for sessionID using
// constant-time equality. Absent entries validate as false.
func (s *Store) Validate(sessionID, candidate string) bool {
	s.mu.Lock()
	stored, ok := s.tokens[sessionID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// Drop removes the token for sessionID, if any. Called on logout and by the
// session sweeper so tokens do not outlive their sessions.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
}
