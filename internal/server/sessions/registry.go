// Package sessions implements the in-memory registry of authenticated
// sessions with sliding expiry and a background sweep.
//
// Session identifiers are opaque 256-bit random capabilities: holding the id
// is what grants access, and the id is not derivable from the user id.
package sessions

import (
	"sync"
	"time"

	"github.com/vkulagin/authgate/internal/shared"
)

// DefaultTimeout is the sliding inactivity timeout applied when the
// configuration does not override it.
const DefaultTimeout = 3600 * time.Second

// Session holds the data tracked for one authenticated session. Callers
// receive copies, never references into the registry's own storage.
type Session struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Registry is a concurrent map of active sessions. All operations take the
// single registry mutex for O(1) bookkeeping only; nothing slow ever runs
// under it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration

	// now is a seam for simulated time in tests.
	now func() time.Time

	// onDrop, when set, is invoked (outside the lock) with the id of every
	// session removed by expiry or Destroy, so dependent per-session state
	// such as anti-forgery tokens can be released with it.
	onDrop func(sessionID string)
}

// NewRegistry creates a Registry with the given sliding timeout.
// Non-positive timeouts fall back to DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// OnDrop registers a callback invoked after a session is removed by expiry
// or Destroy. Must be called before the registry is shared.
func (r *Registry) OnDrop(fn func(sessionID string)) {
	r.onDrop = fn
}

// Create generates a fresh random session id for userID, registers the
// session, and returns the id.
func (r *Registry) Create(userID string) (string, error) {
	id, err := shared.MakeRandToken(32)
	if err != nil {
		return "", err
	}

	now := r.now()
	r.mu.Lock()
	r.sessions[id] = &Session{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.mu.Unlock()

	return id, nil
}

// Validate reports whether sessionID names a live session. An expired entry
// is removed and reported invalid; a live one has its activity timestamp
// refreshed. The expiry check and the refresh happen atomically under the
// registry lock, so no caller can observe a stale LastActivity in between.
func (r *Registry) Validate(sessionID string) bool {
	ok, dropped := r.validate(sessionID)
	if dropped && r.onDrop != nil {
		r.onDrop(sessionID)
	}
	return ok
}

func (r *Registry) validate(sessionID string) (valid, dropped bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false, false
	}
	if now.Sub(s.LastActivity) > r.timeout {
		delete(r.sessions, sessionID)
		return false, true
	}
	s.LastActivity = now
	return true, false
}

// Get returns a copy of the session data if the session is still valid.
// Like Validate, it refreshes the sliding window on success.
func (r *Registry) Get(sessionID string) (Session, bool) {
	if !r.Validate(sessionID) {
		return Session{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		// lost a race with Destroy between Validate and here
		return Session{}, false
	}
	return *s, true
}

// Destroy removes the session (logout). Idempotent; reports whether an
// entry existed.
func (r *Registry) Destroy(sessionID string) bool {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok && r.onDrop != nil {
		r.onDrop(sessionID)
	}
	return ok
}

// ActiveCount returns the number of registered sessions, expired or not.
// Intended for metrics; it does not touch activity timestamps.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sweep removes every session whose inactivity exceeds the timeout and
// returns the ids removed. It holds the same mutex as the request-path
// operations, so it never runs concurrently with them.
func (r *Registry) sweep() []string {
	now := r.now()

	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity) > r.timeout {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if r.onDrop != nil {
		for _, id := range expired {
			r.onDrop(id)
		}
	}
	return expired
}
