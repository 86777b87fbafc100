/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the lending engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply flag overrides
  2. Open the store (sqlite, postgres, or memory)
  3. Wire registry, poster, event publisher, lifecycle service
  4. Configure HTTP router and overdue scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
  -driver  sqlite | postgres | memory (overrides STORE_DRIVER)
  -seed    Load the demo organization on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the overdue scheduler, flush the event publisher
  4. Close the database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/lending.db"

  # Run against Postgres
  DATABASE_URL=postgres://... ./server -driver=postgres

  # Ephemeral, pre-seeded sandbox
  ./server -driver=memory -seed

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian/lending-engine/api"
	"github.com/meridian/lending-engine/config"
	"github.com/meridian/lending-engine/events"
	"github.com/meridian/lending-engine/events/kafka"
	"github.com/meridian/lending-engine/ledger"
	ledgerstore "github.com/meridian/lending-engine/ledger/store"
	"github.com/meridian/lending-engine/lifecycle"
	lifecyclestore "github.com/meridian/lending-engine/lifecycle/store"
	"github.com/meridian/lending-engine/logger"
	"github.com/meridian/lending-engine/store/postgres"
	"github.com/meridian/lending-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	driver := flag.String("driver", cfg.StoreDriver, "store driver: sqlite, postgres, memory")
	seed := flag.Bool("seed", false, "load the demo organization on startup")
	flag.Parse()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Open the store. The SQL drivers implement both store contracts with
	// one handle; memory mode uses the two in-memory implementations.
	var (
		books     ledger.Store
		loans     lifecycle.Store
		closeFunc func() error = func() error { return nil }
	)
	switch *driver {
	case "sqlite":
		store, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite store")
		}
		books, loans, closeFunc = store, store, store.Close
	case "postgres":
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres store")
		}
		books, loans, closeFunc = store, store, store.Close
	case "memory":
		books, loans = ledgerstore.NewMemory(), lifecyclestore.NewMemory()
	default:
		log.Fatal().Str("driver", *driver).Msg("unknown store driver")
	}
	defer closeFunc()

	var bus events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		bus = publisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("event publishing enabled")
	}

	registry := ledger.NewRuleRegistry(books)
	poster := ledger.NewPoster(books, registry, nil)
	service := lifecycle.NewService(loans, poster, bus, log, nil)
	handler := api.NewHandler(service, poster, registry, books, log)

	scheduler := api.NewOverdueScheduler(service, log)
	handler.Scheduler = scheduler

	if *seed {
		org, err := handler.Seed(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("demo seed failed")
		}
		log.Info().Str("org_id", org).Msg("demo organization loaded")
	}

	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Str("driver", *driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
