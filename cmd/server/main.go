/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the charter marketplace engine server: config,
  logging, storage, service wiring, default tier seeding, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment / .env via Viper)
  2. Construct the JSON slog logger
  3. Initialize the SQLite store
  4. Wire domain services
  5. Seed the default tier catalog
  6. Start the HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

ENVIRONMENT:
  SERVER_PORT             HTTP port (default 8080)
  DB_PATH                 SQLite path, ":memory:" allowed (default)
  JWT_SECRET              Shared HS256 secret of the identity provider
  DEFAULT_COMMISSION_PCT  Fallback commission rate (default 10)
  CORS_ORIGINS            Comma-separated allowed origins (default *)
  LOG_LEVEL               debug | info | warn | error (default info)

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/api"
	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/config"
	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/notify"
	"github.com/vistajets/charter-engine/rates"
	"github.com/vistajets/charter-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	defaultPct, err := decimal.NewFromString(cfg.DefaultCommissionPct)
	if err != nil {
		log.Error("invalid DEFAULT_COMMISSION_PCT", "value", cfg.DefaultCommissionPct, "error", err)
		os.Exit(1)
	}

	// Wire services
	clock := core.UTCNow
	dispatcher := &notify.LogDispatcher{Log: log}
	memberships := membership.NewService(store, store, clock)
	registry := fleet.NewRegistry(store, clock, log)
	ledger := rates.NewLedger(store, defaultPct, clock)
	bookings := booking.NewService(store, store, dispatcher, defaultPct, clock, log)
	disputes := dispute.NewTracker(store, bookings, clock)

	ctx := context.Background()
	if err := memberships.SeedDefaultTiers(ctx); err != nil {
		log.Error("failed to seed default tiers", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(memberships, registry, bookings, disputes, ledger, store, clock, log)
	router := api.NewRouter(handler, cfg.JWTSecret, cfg.Origins())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.ServerPort, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
