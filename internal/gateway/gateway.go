// ABOUTME: Gateway orchestrator that assembles the relay and runs the HTTP server.
// ABOUTME: Manages store, engine, supervisor, and graceful shutdown lifecycle.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/geupsik/meal-gateway/internal/config"
	"github.com/geupsik/meal-gateway/internal/engine"
	"github.com/geupsik/meal-gateway/internal/lookup"
	"github.com/geupsik/meal-gateway/internal/notify"
	"github.com/geupsik/meal-gateway/internal/relay"
	"github.com/geupsik/meal-gateway/internal/session"
	"github.com/geupsik/meal-gateway/internal/store"
	"github.com/geupsik/meal-gateway/internal/webhook"
)

// dedupeMaxSize bounds the inbound dedupe cache.
const dedupeMaxSize = 100_000

// Gateway orchestrates the meal-gateway server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	sessions   *session.Store
	engine     *engine.Engine
	supervisor *engine.Supervisor
	dedupe     *relay.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the ledger store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("MEAL_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore()
	lookups := lookup.NewNEISClient(cfg.NEIS.APIKey, logger)
	notifier := notify.NewMessengerClient(cfg.Messenger.AccessToken)
	dedupe := relay.NewCache(cfg.Sessions.DedupeTTL, dedupeMaxSize)

	eng := engine.New(sessions, lookups, logger)
	sup := engine.NewSupervisor(sessions, notifier, cfg.Sessions.Timeout, logger)

	handler := webhook.NewHandler(cfg.Messenger.VerifyToken, eng, sup, notifier, dedupe, s, logger)

	gw := &Gateway{
		config:     cfg,
		store:      s,
		sessions:   sessions,
		engine:     eng,
		supervisor: sup,
		dedupe:     dedupe,
		logger:     logger.With("component", "gateway"),
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the server and releases resources. Armed
// supervisors are canceled before the store closes.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.supervisor.Close()
	g.dedupe.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
