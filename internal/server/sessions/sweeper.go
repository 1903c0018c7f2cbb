package sessions

import (
	"context"
	"time"

	"github.com/vkulagin/authgate/internal/logging"
)

// DefaultSweepInterval is the period of the background sweep unless the
// configuration overrides it.
const DefaultSweepInterval = 300 * time.Second

// Sweeper periodically evicts abandoned sessions so that the registry's
// memory stays bounded even when clients never revalidate. It is an owned,
// stoppable task rather than a detached goroutine: Run blocks until the
// context is cancelled or Stop is called.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   logging.Logger
	stop     chan struct{}
	done     chan struct{}

	// onSweep, when set, receives the number of sessions each sweep removed.
	onSweep func(count int)
}

// NewSweeper creates a Sweeper over the given registry. Non-positive
// intervals fall back to DefaultSweepInterval.
func NewSweeper(registry *Registry, interval time.Duration, logger logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger.With("module", "session_sweeper"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnSweep registers a callback invoked with the count of sessions removed
// by each sweep that removed any. Must be set before Run.
func (s *Sweeper) OnSweep(fn func(count int)) {
	s.onSweep = fn
}

// Run executes the sweep loop until ctx is cancelled or Stop is called.
// The interval is fixed and independent of request traffic.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "starting session sweep", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "stopping session sweep")
			return
		case <-s.stop:
			s.logger.Info(ctx, "stopping session sweep")
			return
		case <-ticker.C:
			if expired := s.registry.sweep(); len(expired) > 0 {
				s.logger.Info(ctx, "swept expired sessions", "count", len(expired))
				if s.onSweep != nil {
					s.onSweep(len(expired))
				}
			}
		}
	}
}

// Stop signals the sweep loop to exit and waits for it to finish.
// Safe to call at most once.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
