/*
main.go - Application entry point

PURPOSE:
  Starts the allowance ledger server: children, their transactions and
  the workbooks they complete, as HTML pages and a JSON API.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML file, .env, environment, flags)
  2. Install the slog logger
  3. Open the store (SQLite or PostgreSQL) and create missing tables
  4. Build the ledger, handler and router
  5. Serve until SIGINT/SIGTERM, then shut down gracefully

COMMAND-LINE FLAGS:
  -config            YAML config file
  -addr              HTTP listen address (default: :8000)
  -db-driver         sqlite3 or postgres (default: sqlite3)
  -db                SQLite path or PostgreSQL DSN (default: ledgerdb.sqlite)
                     Use ":memory:" for an in-memory SQLite database
  -strict-dates      Reject dates that are not real calendar days
  -allowed-origins   Comma-separated CORS origins
  -log-level         debug, info, warn, error
  -log-format        text or json
  -shutdown-timeout  Graceful shutdown timeout (default: 30s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown-timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with an existing database file
  ./server -db="./ledgerdb.sqlite"

  # Run against PostgreSQL
  ./server -db-driver=postgres -db="postgres://ledger@localhost/ledger?sslmode=disable"

SEE ALSO:
  - config/config.go: Configuration precedence and environment variables
  - api/server.go: Router configuration
  - store/store.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/kidledger/api"
	"github.com/warp/kidledger/config"
	"github.com/warp/kidledger/ledger"
	"github.com/warp/kidledger/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// Initialize store
	st, err := store.New(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	l := ledger.New(st)
	l.StrictDates = cfg.StrictDates

	handler, err := api.NewHandler(l, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.Addr,
			"db_driver", st.Driver(),
			"strict_dates", cfg.StrictDates,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal or a failed listener
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
