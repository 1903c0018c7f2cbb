// Package ratelimit implements sliding-window request admission control
// keyed by client identifier.
//
// The window slides continuously: timestamps are pruned on every call rather
// than reset in discrete buckets, which avoids the burst-at-boundary
// artifacts of fixed-window counters.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most maxRequests events per identifier within the
// trailing window.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	// now is a seam for simulated time in tests.
	now func() time.Time
}

// New creates a Limiter allowing maxRequests per window for each identifier.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		windows:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether a request from identifier is admitted. Admitted
// requests record their timestamp; rejected ones record nothing, so a
// client hammering a full window does not extend its own penalty.
//
// Pruning is lazy: each call discards the identifier's timestamps older
// than the window. Entries are never explicitly destroyed; an idle
// identifier's slice empties out and stays small.
func (l *Limiter) Allow(identifier string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	requests := l.windows[identifier]

	// timestamps are appended in order, so find the first one still inside
	// the window and drop everything before it
	keep := 0
	for keep < len(requests) && !requests[keep].After(cutoff) {
		keep++
	}
	requests = requests[keep:]

	if len(requests) >= l.maxRequests {
		l.windows[identifier] = requests
		return false
	}

	l.windows[identifier] = append(requests, now)
	return true
}

// Pending returns how many admitted requests remain inside identifier's
// current window. Intended for metrics and tests.
func (l *Limiter) Pending(identifier string) int {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, ts := range l.windows[identifier] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
