package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/forumpulse/internal/adapter/httpserver"
	"github.com/pscheid92/forumpulse/internal/adapter/memory"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/adapter/postgres"
	"github.com/pscheid92/forumpulse/internal/adapter/redis"
	"github.com/pscheid92/forumpulse/internal/app"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/config"
	"github.com/pscheid92/forumpulse/internal/platform/logging"
	"github.com/pscheid92/forumpulse/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

// backend is the storage wiring selected by STORE_BACKEND.
type backend struct {
	uow       domain.UnitOfWork
	reactions domain.ReactionStore
	counters  domain.CounterCache
	auditor   domain.CounterAuditor
	leader    app.Leadership
	seed      func(ctx context.Context) error
	checks    []httpserver.HealthCheck
	close     func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DBMetrics, clock clockwork.Clock) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(m, clock))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config, m *metrics.RedisMetrics, clock clockwork.Clock) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL,
		redis.NewMetricsHook(m, clock),
		redis.NewCircuitBreakerHook(m, redis.DefaultBreakerSettings()),
	)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func postgresBackend(cfg *config.Config, m *metrics.Set, clock clockwork.Clock) backend {
	pool := setupDB(cfg, m.DB, clock)
	rdb := setupRedis(cfg, m.Redis, clock)
	store := postgres.NewStore(pool)

	return backend{
		uow:       store,
		reactions: store,
		counters:  redis.NewCounterCache(rdb, store, cfg.CounterCacheTTL, m.Cache),
		auditor:   store,
		leader:    app.NewLeaderElector(rdb, instanceID()),
		seed: func(ctx context.Context) error {
			ids, err := cfg.SeedPosts()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := store.CreatePost(ctx, id); err != nil {
					return fmt.Errorf("seed post %s: %w", id, err)
				}
			}
			return nil
		},
		checks: []httpserver.HealthCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		close: func() {
			_ = rdb.Close()
			pool.Close()
		},
	}
}

func memoryBackend(cfg *config.Config, clock clockwork.Clock) backend {
	store := memory.NewStore(clock)

	return backend{
		uow:       store,
		reactions: store,
		counters:  store,
		auditor:   store,
		seed: func(context.Context) error {
			ids, err := cfg.SeedPosts()
			if err != nil {
				return err
			}
			for _, id := range ids {
				store.CreatePost(id)
			}
			return nil
		},
		checks: []httpserver.HealthCheck{
			{Name: "memory", Check: store.Ping},
		},
		close: func() {},
	}
}

func runGracefulShutdown(srv *httpserver.Server, reconciler *app.CounterReconciler, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		reconciler.Stop()
		cancel()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.StoreBackend, "version", version.Get().String())

	reg := metrics.NewRegistry()
	m := metrics.NewSet(reg)

	var b backend
	if cfg.UsesPostgres() {
		b = postgresBackend(cfg, m, clock)
	} else {
		slog.Warn("Using in-memory store, reactions are lost on restart")
		b = memoryBackend(cfg, clock)
	}
	defer b.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.seed(ctx); err != nil {
		slog.Error("Failed to seed posts", "error", err)
		os.Exit(1)
	}

	reactions := app.NewReactions(b.uow, b.reactions, b.counters, m.Reactions, clock, app.RetrySettings{
		MaxAttempts:    cfg.TransitionMaxAttempts,
		InitialBackoff: cfg.TransitionInitialBackoff,
	})

	reconciler := app.NewCounterReconciler(b.auditor, b.counters, b.leader, m.Reconcile, clock, app.ReconcileOptions{
		Interval:  cfg.ReconcileInterval,
		BatchSize: cfg.ReconcileBatchSize,
	})
	go reconciler.Start(ctx)

	srv := httpserver.NewServer(cfg, reactions, m.HTTP, metrics.Handler(reg), httpserver.Health{
		Checks:     b.checks,
		Reconciler: reconciler,
	})

	done := runGracefulShutdown(srv, reconciler, cancel)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
