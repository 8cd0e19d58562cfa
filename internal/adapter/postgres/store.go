package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/forumpulse/internal/adapter/postgres/sqlcgen"
	"github.com/pscheid92/forumpulse/internal/domain"
)

// Store is the PostgreSQL source of truth for posts, counters and reactions.
type Store struct {
	pool *pgxpool.Pool
	q    *sqlcgen.Queries
}

var (
	_ domain.UnitOfWork     = (*Store)(nil)
	_ domain.ReactionStore  = (*Store)(nil)
	_ domain.CounterReader  = (*Store)(nil)
	_ domain.CounterAuditor = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		q:    sqlcgen.New(pool),
	}
}

// Atomically runs fn in one READ COMMITTED transaction. Conditional writes inside fn
// detect concurrent changes, so no stronger isolation level is needed.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "Failed to roll back transaction", "error", err)
		}
	}()

	qtx := s.q.WithTx(tx)
	if err := fn(ctx, domain.Stores{Reactions: &reactionRepo{q: qtx}, Counters: &counterRepo{q: qtx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapCommitError(err)
	}
	return nil
}

// CreatePost registers a post with zero counters. Existing posts are left alone.
func (s *Store) CreatePost(ctx context.Context, postID uuid.UUID) error {
	return mapError("create post", s.q.CreatePost(ctx, postID))
}

func (s *Store) Get(ctx context.Context, postID uuid.UUID, userID string) (*domain.Reaction, error) {
	return (&reactionRepo{q: s.q}).Get(ctx, postID, userID)
}

// Upsert outside a unit of work is a single conditional statement.
func (s *Store) Upsert(ctx context.Context, r domain.Reaction, previous domain.State) (bool, error) {
	return (&reactionRepo{q: s.q}).Upsert(ctx, r, previous)
}

func (s *Store) Remove(ctx context.Context, postID uuid.UUID, userID string, previous domain.Action) (bool, error) {
	return (&reactionRepo{q: s.q}).Remove(ctx, postID, userID, previous)
}

func (s *Store) Read(ctx context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	return (&counterRepo{q: s.q}).Read(ctx, postID)
}

// FindDrift returns up to limit drifted posts with an id after the cursor, in id order.
// A limit <= 0 returns every remaining drifted post.
func (s *Store) FindDrift(ctx context.Context, after uuid.UUID, limit int) ([]domain.CounterDrift, error) {
	rows, err := s.q.FindCounterDrift(ctx, sqlcgen.FindCounterDriftParams{
		AfterID: after,
		MaxRows: maxRows(limit),
	})
	if err != nil {
		return nil, mapError("find counter drift", err)
	}

	drift := make([]domain.CounterDrift, 0, len(rows))
	for _, row := range rows {
		drift = append(drift, domain.CounterDrift{
			PostID: row.ID,
			Stored: domain.PostCounters{
				PostID:       row.ID,
				LikeCount:    row.LikeCount,
				DislikeCount: row.DislikeCount,
			},
			ActualLikes:    row.ActualLikes,
			ActualDislikes: row.ActualDislikes,
		})
	}
	return drift, nil
}

// maxRows maps limit onto the query's LIMIT NULLIF(n, 0), where 0 lifts the limit.
func maxRows(limit int) int32 {
	if limit <= 0 {
		return 0
	}
	return int32(min(limit, math.MaxInt32))
}

// Repair recomputes a post's counters from its reaction rows. The post row is locked
// first so every transition that already touched it has committed before counting.
func (s *Store) Repair(ctx context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	var counters domain.PostCounters

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		qtx := s.q.WithTx(tx)

		if _, err := qtx.LockPost(ctx, postID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPostNotFound
			}
			return mapError("lock post", err)
		}

		row, err := qtx.RecomputeCounters(ctx, postID)
		if err != nil {
			return mapError("recompute counters", err)
		}
		counters = toDomainCounters(row)
		return nil
	})
	if err != nil {
		return domain.PostCounters{}, err
	}
	return counters, nil
}

func toDomainCounters(row sqlcgen.Post) domain.PostCounters {
	return domain.PostCounters{
		PostID:       row.ID,
		LikeCount:    row.LikeCount,
		DislikeCount: row.DislikeCount,
	}
}
