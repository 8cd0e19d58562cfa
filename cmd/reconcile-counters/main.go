package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/adapter/postgres"
	"github.com/pscheid92/forumpulse/internal/adapter/redis"
	"github.com/pscheid92/forumpulse/internal/app"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/logging"
)

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL for the leader lease and cache invalidation (optional, or set REDIS_URL env)")
		dryRun      = flag.Bool("dry-run", false, "Report drift without repairing it")
		batchSize   = flag.Int("batch-size", 500, "Posts examined per batch")
		timeout     = flag.Duration("timeout", 5*time.Minute, "Overall time limit")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *databaseURL, *redisURL, *batchSize, *dryRun); err != nil {
		slog.Error("Reconciliation failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, redisURL string, batchSize int, dryRun bool) error {
	clock := clockwork.NewRealClock()
	m := metrics.NewReconcileMetrics(prometheus.NewRegistry())

	pool, err := postgres.Connect(ctx, databaseURL, nil)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("Connected to Postgres", "url", redact(databaseURL))

	store := postgres.NewStore(pool)

	var (
		cache  domain.CounterCache
		leader app.Leadership
	)
	if redisURL != "" {
		rdb, err := redis.NewClient(ctx, redisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		slog.Info("Connected to Redis", "url", redact(redisURL))

		host, _ := os.Hostname()
		cache = redis.NewCounterCache(rdb, store, time.Minute, metrics.NewCacheMetrics(prometheus.NewRegistry()))
		leader = app.NewLeaderElector(rdb, fmt.Sprintf("cli-%s-%d", host, os.Getpid()))
	}

	reconciler := app.NewCounterReconciler(store, cache, leader, m, clock, app.ReconcileOptions{
		BatchSize: batchSize,
		DryRun:    dryRun,
	})

	start := clock.Now()
	report, err := reconciler.RunOnce(ctx)
	if err != nil {
		return err
	}
	if report.Skipped {
		return fmt.Errorf("another instance holds the reconciler lease, try again later")
	}

	slog.Info("Reconciliation summary",
		"dry_run", dryRun,
		"detected", len(report.Detected),
		"repaired", len(report.Repaired),
		"failed", len(report.Failed),
		"duration_ms", clock.Since(start).Milliseconds())

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d posts could not be repaired", len(report.Failed))
	}
	return nil
}

// redact hides credentials in connection URLs for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
