package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/correlation"
)

// Leadership gates reconciliation across instances. A nil Leadership means this
// process is the only one.
type Leadership interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}

type ReconcileOptions struct {
	Interval  time.Duration
	BatchSize int
	// DryRun only reports drift.
	DryRun bool
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Skipped  bool
	Detected []domain.CounterDrift
	Repaired []domain.PostCounters
	Failed   []uuid.UUID
}

// CounterReconciler periodically recomputes post counters that drifted from the reaction rows.
type CounterReconciler struct {
	auditor domain.CounterAuditor
	cache   domain.CounterCache
	leader  Leadership
	metrics *metrics.ReconcileMetrics
	clock   clockwork.Clock
	opts    ReconcileOptions

	lastSuccess atomic.Int64 // unix nanos, 0 until the first ok pass

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCounterReconciler(
	auditor domain.CounterAuditor,
	cache domain.CounterCache,
	leader Leadership,
	m *metrics.ReconcileMetrics,
	clock clockwork.Clock,
	opts ReconcileOptions,
) *CounterReconciler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &CounterReconciler{
		auditor: auditor,
		cache:   cache,
		leader:  leader,
		metrics: m,
		clock:   clock,
		opts:    opts,
		stopCh:  make(chan struct{}),
	}
}

// Start runs a pass on every tick until Stop is called or ctx is done.
func (r *CounterReconciler) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if _, err := r.RunOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Counter reconciliation failed", "error", err)
			}
		case <-r.stopCh:
			slog.Info("Counter reconciler stopped")
			return
		case <-ctx.Done():
			slog.Info("Counter reconciler context cancelled")
			return
		}
	}
}

// LastSuccess returns when the last pass finished without error, or the zero time.
// Passes skipped for lack of leadership do not count.
func (r *CounterReconciler) LastSuccess() time.Time {
	nanos := r.lastSuccess.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Stop ends the loop started by Start. Safe to call more than once.
func (r *CounterReconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunOnce performs one pass: it walks every drifted post in batches of BatchSize and
// repairs what it finds unless the reconciler is in dry-run mode.
func (r *CounterReconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	ctx = correlation.WithID(ctx, correlation.NewID())
	var report ReconcileReport

	if r.leader != nil {
		acquired, err := r.leader.TryAcquire(ctx)
		if err != nil {
			r.metrics.Runs.WithLabelValues("error").Inc()
			return report, err
		}
		if !acquired {
			slog.DebugContext(ctx, "Not the reconciler leader, skipping pass")
			r.metrics.Runs.WithLabelValues("skipped").Inc()
			report.Skipped = true
			return report, nil
		}
		defer r.release(ctx)
	}

	err := r.run(ctx, &report)
	if err != nil {
		r.metrics.Runs.WithLabelValues("error").Inc()
		return report, err
	}

	now := r.clock.Now()
	r.lastSuccess.Store(now.UnixNano())
	r.metrics.Runs.WithLabelValues("ok").Inc()
	r.metrics.LastRun.Set(float64(now.Unix()))
	slog.InfoContext(ctx, "Counter reconciliation finished",
		"detected", len(report.Detected), "repaired", len(report.Repaired), "failed", len(report.Failed), "dry_run", r.opts.DryRun)
	return report, nil
}

func (r *CounterReconciler) run(ctx context.Context, report *ReconcileReport) error {
	cursor := uuid.Nil
	for batch := 0; ; batch++ {
		if batch > 0 && r.leader != nil {
			if err := r.leader.Renew(ctx); err != nil {
				return fmt.Errorf("stopping reconciliation: %w", err)
			}
		}

		drift, err := r.auditor.FindDrift(ctx, cursor, r.opts.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to scan for counter drift: %w", err)
		}

		report.Detected = append(report.Detected, drift...)
		r.metrics.DriftDetected.Add(float64(len(drift)))
		for _, d := range drift {
			slog.WarnContext(ctx, "Counter drift detected",
				"post_id", d.PostID,
				"stored_likes", d.Stored.LikeCount, "actual_likes", d.ActualLikes,
				"stored_dislikes", d.Stored.DislikeCount, "actual_dislikes", d.ActualDislikes)
		}

		if !r.opts.DryRun {
			r.repair(ctx, drift, report)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(drift) < r.opts.BatchSize {
			return nil
		}
		cursor = drift[len(drift)-1].PostID
	}
}

func (r *CounterReconciler) repair(ctx context.Context, drift []domain.CounterDrift, report *ReconcileReport) {
	for _, d := range drift {
		counters, err := r.auditor.Repair(ctx, d.PostID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			slog.ErrorContext(ctx, "Failed to repair counters", "post_id", d.PostID, "error", err)
			report.Failed = append(report.Failed, d.PostID)
			continue
		}

		report.Repaired = append(report.Repaired, counters)
		r.metrics.DriftRepaired.Inc()
		slog.InfoContext(ctx, "Counters repaired",
			"post_id", d.PostID, "likes", counters.LikeCount, "dislikes", counters.DislikeCount)

		if r.cache != nil {
			if err := r.cache.Invalidate(ctx, d.PostID); err != nil {
				slog.WarnContext(ctx, "Failed to invalidate counter cache", "post_id", d.PostID, "error", err)
			}
		}
	}
}

func (r *CounterReconciler) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := r.leader.Release(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to release reconciler lease", "error", err)
	}
}
