/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the working-time engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Initialize logger
  3. Open the SQLite store
  4. Build the engine with the configured compliance thresholds
  5. Register nightly jobs (holiday sync, ledger refresh)
  6. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT or 8080)
  -db      SQLite database path (default: DATABASE_PATH or worktime.db)
           Use ":memory:" for in-memory database
  -driver  sqlite3 (cgo) or sqlite (pure Go)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for a running job
  4. Close database connection

EXAMPLES:
  ./server -db="./data/worktime.db"
  ./server -db=":memory:" -driver=sqlite
  HOLIDAY_REGION=NW ./server -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/pkg/logger"
	"github.com/warp/worktime-engine/service"
	"github.com/warp/worktime-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	driver := flag.String("driver", cfg.DatabaseDriver, "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")
	flag.Parse()
	cfg.Port, cfg.DatabasePath, cfg.DatabaseDriver = *port, *dbPath, *driver
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("region", cfg.HolidayRegion).Msg("Starting working-time engine")

	// Initialize store
	store, err := sqlite.Open(cfg.DatabaseDriver, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer store.Close()

	engine := service.New(service.Options{
		Store:        store,
		Snapshots:    store,
		Rules:        cfg.Rules(),
		Region:       cfg.HolidayRegion,
		EditableDays: cfg.EditableDays,
		Logger:       log,
	})

	// Background jobs
	sched := api.NewScheduler(log)
	if cfg.SchedulerEnabled {
		if err := registerJobs(sched, engine, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to register jobs")
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := api.NewHandler(engine, log)
	router := api.NewRouter(handler, api.RouterConfig{AllowedOrigins: cfg.CORSOrigins, Log: log})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs adds the nightly jobs and runs the holiday sync once so a
// fresh database has this year's holidays before the first request.
func registerJobs(sched *api.Scheduler, engine *service.Engine, cfg *config.Config, log zerolog.Logger) error {
	holidaySync := api.NewHolidaySyncJob(engine, log)
	if err := sched.AddJob(cfg.HolidaySyncSchedule, holidaySync); err != nil {
		return err
	}
	if err := sched.AddJob(cfg.LedgerRefreshSchedule, api.NewLedgerRefreshJob(engine, log)); err != nil {
		return err
	}
	if err := sched.RunNow(holidaySync); err != nil {
		log.Warn().Err(err).Msg("Initial holiday sync failed")
	}
	return nil
}
