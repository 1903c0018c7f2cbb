package sessions

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vkulagin/authgate/internal/logging"
)

func quietLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweeperRemovesExpired(t *testing.T) {
	r, clock := newTestRegistry(time.Second)

	sweptCh := make(chan int, 1)

	s := NewSweeper(r, 5*time.Millisecond, quietLogger())
	s.OnSweep(func(count int) {
		select {
		case sweptCh <- count:
		default:
		}
	})

	if _, err := r.Create("user-1"); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := r.Create("user-2"); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	clock.Advance(2 * time.Second)

	go s.Run(context.Background())
	defer s.Stop()

	select {
	case count := <-sweptCh:
		if count != 2 {
			t.Errorf("expected 2 swept sessions, got %d", count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	if got := r.ActiveCount(); got != 0 {
		t.Errorf("expected empty registry, got %d sessions", got)
	}
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	r, _ := newTestRegistry(time.Second)

	s := NewSweeper(r, 5*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}

func TestSweeperStop(t *testing.T) {
	r, _ := newTestRegistry(time.Second)

	s := NewSweeper(r, 5*time.Millisecond, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
