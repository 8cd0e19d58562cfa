package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/forumpulse/internal/adapter/metrics"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/pscheid92/forumpulse/internal/platform/retry"
)

const cacheInvalidateTimeout = 2 * time.Second

// errWriteFailed marks a failure after the current reaction was read. The unit of
// work has rolled back, so the whole transition can be re-derived and retried.
var errWriteFailed = errors.New("reaction write failed")

// SubmitReactionRequest is the explicit input of one reaction request.
type SubmitReactionRequest struct {
	PostID uuid.UUID
	UserID string
	Action domain.Action
}

// RetrySettings bounds the optimistic retry loop around a transition.
type RetrySettings struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Reactions applies reaction transitions and serves reaction summaries.
type Reactions struct {
	uow       domain.UnitOfWork
	reactions domain.ReactionStore
	counters  domain.CounterCache
	metrics   *metrics.ReactionMetrics
	clock     clockwork.Clock
	retry     RetrySettings
}

func NewReactions(uow domain.UnitOfWork, reactions domain.ReactionStore, counters domain.CounterCache, m *metrics.ReactionMetrics, clock clockwork.Clock, settings RetrySettings) *Reactions {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	return &Reactions{
		uow:       uow,
		reactions: reactions,
		counters:  counters,
		metrics:   m,
		clock:     clock,
		retry:     settings,
	}
}

// SubmitReaction toggles or switches the caller's reaction on a post and returns
// the caller's state afterwards.
func (r *Reactions) SubmitReaction(ctx context.Context, req SubmitReactionRequest) (domain.State, error) {
	start := r.clock.Now()
	state, err := r.submit(ctx, req)
	r.metrics.Duration.Observe(r.clock.Since(start).Seconds())
	r.metrics.Submissions.WithLabelValues(resultLabel(err)).Inc()
	return state, err
}

func (r *Reactions) submit(ctx context.Context, req SubmitReactionRequest) (domain.State, error) {
	if req.UserID == "" {
		return domain.StateNone, domain.ErrMissingCaller
	}
	if _, err := domain.ParseAction(string(req.Action)); err != nil {
		return domain.StateNone, err
	}

	policy := retry.Policy{
		MaxAttempts:    r.retry.MaxAttempts,
		InitialBackoff: r.retry.InitialBackoff,
		MaxBackoff:     r.retry.MaxBackoff,
		Clock:          r.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			reason := retryReason(err)
			r.metrics.Retries.WithLabelValues(reason).Inc()
			slog.WarnContext(ctx, "Retrying reaction transition",
				"post_id", req.PostID, "user_id", req.UserID, "attempt", attempt, "reason", reason, "backoff", backoff, "error", err)
		},
	}

	tr, err := retry.Do(ctx, policy, classifyTransitionError, func() (Transition, error) {
		return r.attempt(ctx, req)
	})
	if err != nil {
		return domain.StateNone, r.surface(ctx, req, err)
	}

	r.metrics.Transitions.WithLabelValues(string(tr.Kind), tr.Next.String()).Inc()
	slog.DebugContext(ctx, "Reaction transition committed",
		"post_id", req.PostID, "user_id", req.UserID, "from", tr.From, "to", tr.Next, "kind", tr.Kind)

	r.invalidate(ctx, req.PostID)
	return tr.Next, nil
}

// attempt runs one read-decide-write pass inside a single unit of work.
func (r *Reactions) attempt(ctx context.Context, req SubmitReactionRequest) (Transition, error) {
	var tr Transition

	err := r.uow.Atomically(ctx, func(ctx context.Context, s domain.Stores) error {
		if _, err := s.Counters.Read(ctx, req.PostID); err != nil {
			if errors.Is(err, domain.ErrPostNotFound) {
				return err
			}
			return fmt.Errorf("%w: read counters: %w", domain.ErrStoreUnavailable, err)
		}

		current, err := s.Reactions.Get(ctx, req.PostID, req.UserID)
		if err != nil {
			return fmt.Errorf("%w: read reaction: %w", domain.ErrStoreUnavailable, err)
		}

		state := domain.StateNone
		if current != nil {
			state = domain.StateOf(current.Action)
		}
		tr = Decide(state, req.Action)

		if err := writeReaction(ctx, s.Reactions, req, tr); err != nil {
			return err
		}

		if _, err := s.Counters.ApplyDelta(ctx, req.PostID, tr.Delta); err != nil {
			return fmt.Errorf("%w: apply counter delta: %w", errWriteFailed, err)
		}
		return nil
	})

	return tr, err
}

func writeReaction(ctx context.Context, store domain.ReactionStore, req SubmitReactionRequest, tr Transition) error {
	var (
		ok  bool
		err error
	)

	if tr.Kind == TransitionRemove {
		previous, _ := tr.From.Action()
		ok, err = store.Remove(ctx, req.PostID, req.UserID, previous)
	} else {
		ok, err = store.Upsert(ctx, domain.Reaction{PostID: req.PostID, UserID: req.UserID, Action: req.Action}, tr.From)
	}

	if err != nil {
		return fmt.Errorf("%w: %s reaction: %w", errWriteFailed, tr.Kind, err)
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func classifyTransitionError(err error) retry.Action {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retry.Stop
	case errors.Is(err, domain.ErrPostNotFound),
		errors.Is(err, domain.ErrConstraintViolation),
		errors.Is(err, domain.ErrCommitUnknown):
		return retry.Stop
	case errors.Is(err, domain.ErrConflict), errors.Is(err, errWriteFailed):
		return retry.Retry
	case errors.Is(err, domain.ErrStoreUnavailable):
		return retry.Stop
	default:
		return retry.Retry
	}
}

// surface turns the retry loop's final error into what the boundary reports.
func (r *Reactions) surface(ctx context.Context, req SubmitReactionRequest, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrPostNotFound):
		return err
	case errors.Is(err, domain.ErrConstraintViolation):
		slog.ErrorContext(ctx, "Reaction uniqueness violated",
			"post_id", req.PostID, "user_id", req.UserID, "error", err)
		return err
	case errors.Is(err, domain.ErrCommitUnknown),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, errWriteFailed):
		attempts := 1
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			attempts = exhausted.Attempts
		}
		slog.WarnContext(ctx, "Reaction transition failed",
			"post_id", req.PostID, "user_id", req.UserID, "attempts", attempts, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrTransitionFailed, err)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransitionFailed, err)
	}
}

// invalidate drops the cached counters after a commit. Failures only cost
// staleness up to the cache TTL.
func (r *Reactions) invalidate(ctx context.Context, postID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheInvalidateTimeout)
	defer cancel()

	if err := r.counters.Invalidate(ctx, postID); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate counter cache", "post_id", postID, "error", err)
	}
}

// GetSummary returns the post counters together with the caller's own reaction.
func (r *Reactions) GetSummary(ctx context.Context, postID uuid.UUID, userID string) (domain.ReactionSummary, error) {
	if userID == "" {
		return domain.ReactionSummary{}, domain.ErrMissingCaller
	}

	counters, err := r.counters.Read(ctx, postID)
	if errors.Is(err, domain.ErrPostNotFound) {
		return domain.ReactionSummary{}, err
	}
	if err != nil {
		return domain.ReactionSummary{}, fmt.Errorf("%w: read counters: %w", domain.ErrStoreUnavailable, err)
	}

	current, err := r.reactions.Get(ctx, postID, userID)
	if err != nil {
		return domain.ReactionSummary{}, fmt.Errorf("%w: read reaction: %w", domain.ErrStoreUnavailable, err)
	}

	summary := domain.ReactionSummary{PostCounters: counters, Reaction: domain.StateNone}
	if current != nil {
		summary.Reaction = domain.StateOf(current.Action)
	}
	return summary, nil
}

func retryReason(err error) string {
	if errors.Is(err, domain.ErrConflict) {
		return "conflict"
	}
	return "write_failed"
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrMissingCaller):
		return "rejected"
	case errors.Is(err, domain.ErrPostNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, domain.ErrTransitionFailed):
		return "transition_failed"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "cancelled"
	}
}
