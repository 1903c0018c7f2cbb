// Package server initializes and runs the authentication server: it opens
// the database, wires the credential, session, rate limiting and
// anti-forgery components together, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/config"
	"github.com/vkulagin/authgate/internal/server/csrf"
	"github.com/vkulagin/authgate/internal/server/hasher"
	httpapi "github.com/vkulagin/authgate/internal/server/http"
	"github.com/vkulagin/authgate/internal/server/metrics"
	"github.com/vkulagin/authgate/internal/server/ratelimit"
	"github.com/vkulagin/authgate/internal/server/sessions"
	"github.com/vkulagin/authgate/internal/server/shared/db"
	"github.com/vkulagin/authgate/internal/server/users"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) *App {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	return &App{config: c, logger: logger}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	manager, err := db.NewPostgresRepositoryManager(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer manager.Close()

	userService := users.NewService(
		manager.Conn(),
		manager.Audit(),
		hasher.New(app.config.HashIterations),
		app.config,
		app.logger,
	)

	registry := sessions.NewRegistry(app.config.SessionTimeout)
	csrfStore := csrf.NewStore()
	// a dying session takes its anti-forgery token with it
	registry.OnDrop(csrfStore.Drop)

	m := metrics.New()

	sweeper := sessions.NewSweeper(registry, app.config.SweepInterval, app.logger)
	sweeper.OnSweep(func(count int) {
		m.AddSessionsSwept(count)
		m.SetActiveSessions(registry.ActiveCount())
	})

	limiter := ratelimit.New(app.config.RateLimitMaxRequests, app.config.RateLimitWindow)

	handler := httpapi.NewHandler(
		userService, registry, csrfStore, m,
		int(app.config.SessionTimeout.Seconds()), app.logger,
	)
	router := httpapi.NewRouter(handler, limiter, registry, csrfStore, m, app.logger)
	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	return nil
}
