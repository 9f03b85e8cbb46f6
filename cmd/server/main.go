/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the salon settlement server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize SQLite store and seed default settings
  3. Connect the Redis report cache when REDIS_ADDR is set
  4. Build the engine service, API handler and router
  5. Start the cycle boundary scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    HTTP listen address (default: APP_ADDR or :8080)
  -db      SQLite database path (default: DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. Flags win over environment values.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - engine/service.go: Report service
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/config"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{}).Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags
	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger := logging.New(logging.Config{Env: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *addr, *dbPath, logger); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, addr, dbPath string, logger *logging.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize store
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return err
		}
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	f := factory.New()
	defaults, err := seedDefaults(ctx, cfg, f, store)
	if err != nil {
		return err
	}

	// Optional report cache
	cache, closeCache := connectCache(ctx, cfg, logger)
	defer closeCache()

	svc, err := engine.New(engine.FromStore(store), engine.Options{
		Cache:    cache,
		Logger:   logger.Component("engine"),
		Location: loc,
	})
	if err != nil {
		return err
	}

	handler := api.NewHandler(store, svc, api.HandlerOptions{
		Logger:     logger.Component("api"),
		HistoryMax: cfg.HistoryMax,
		Defaults:   defaults,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:   cfg.AllowedOrigins,
		HistoryRateLimit: cfg.HistoryRateLimit,
		StaticDir:        cfg.StaticDir,
		Production:       cfg.IsProduction(),
	})

	scheduler := api.NewCycleScheduler(svc, logger)
	scheduler.CheckInterval = cfg.BoundaryCheckInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("db", dbPath).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

// seedDefaults stores the configured cycle policy and fee schedule when the
// database has none yet, and returns them for /api/reset.
func seedDefaults(ctx context.Context, cfg *config.Config, f *factory.Factory, store *sqlite.Store) (api.Defaults, error) {
	policy, err := cfg.DefaultPolicy(f)
	if err != nil {
		return api.Defaults{}, err
	}
	schedule, err := cfg.DefaultFees(f)
	if err != nil {
		return api.Defaults{}, err
	}
	if err := store.SeedDefaults(ctx, policy, schedule); err != nil {
		return api.Defaults{}, err
	}
	return api.Defaults{Policy: policy, Fees: schedule}, nil
}

// connectCache returns a nil cache when Redis is not configured or not
// reachable; the engine then builds every report on demand.
func connectCache(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*engine.Cache, func()) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("report cache disabled")
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, report cache disabled")
		_ = client.Close()
		return nil, func() {}
	}

	cache := engine.NewCache(client, cfg.CacheTTL)
	logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("report cache enabled")
	return cache, func() { _ = client.Close() }
}
