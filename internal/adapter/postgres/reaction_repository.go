package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/forumpulse/internal/adapter/postgres/sqlcgen"
	"github.com/pscheid92/forumpulse/internal/domain"
)

type reactionRepo struct {
	q *sqlcgen.Queries
}

func toDomainReaction(row sqlcgen.PostReaction) (*domain.Reaction, error) {
	action, err := domain.ParseAction(row.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: stored action %q", domain.ErrConstraintViolation, row.Action)
	}
	return &domain.Reaction{
		PostID:    row.PostID,
		UserID:    row.UserID,
		Action:    action,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *reactionRepo) Get(ctx context.Context, postID uuid.UUID, userID string) (*domain.Reaction, error) {
	row, err := r.q.GetReaction(ctx, sqlcgen.GetReactionParams{PostID: postID, UserID: userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get reaction", err)
	}
	return toDomainReaction(row)
}

// Upsert writes r only if the stored state still equals previous.
func (r *reactionRepo) Upsert(ctx context.Context, reaction domain.Reaction, previous domain.State) (bool, error) {
	prevAction, had := previous.Action()
	if !had {
		n, err := r.q.InsertReaction(ctx, sqlcgen.InsertReactionParams{
			PostID: reaction.PostID,
			UserID: reaction.UserID,
			Action: string(reaction.Action),
		})
		return n == 1, mapError("insert reaction", err)
	}

	n, err := r.q.SwitchReaction(ctx, sqlcgen.SwitchReactionParams{
		Action:   string(reaction.Action),
		PostID:   reaction.PostID,
		UserID:   reaction.UserID,
		Previous: string(prevAction),
	})
	return n == 1, mapError("switch reaction", err)
}

// Remove deletes the reaction only if it still holds previous.
func (r *reactionRepo) Remove(ctx context.Context, postID uuid.UUID, userID string, previous domain.Action) (bool, error) {
	n, err := r.q.DeleteReaction(ctx, sqlcgen.DeleteReactionParams{
		PostID:   postID,
		UserID:   userID,
		Previous: string(previous),
	})
	return n == 1, mapError("delete reaction", err)
}

type counterRepo struct {
	q *sqlcgen.Queries
}

func (r *counterRepo) Read(ctx context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	row, err := r.q.GetPost(ctx, postID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PostCounters{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.PostCounters{}, mapError("read counters", err)
	}
	return toDomainCounters(row), nil
}

// ApplyDelta adds delta to the counters, clamping each at zero.
func (r *counterRepo) ApplyDelta(ctx context.Context, postID uuid.UUID, delta domain.Delta) (domain.PostCounters, error) {
	row, err := r.q.ApplyCounterDelta(ctx, sqlcgen.ApplyCounterDeltaParams{
		Likes:    delta.Likes,
		Dislikes: delta.Dislikes,
		ID:       postID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PostCounters{}, domain.ErrPostNotFound
	}
	if err != nil {
		return domain.PostCounters{}, mapError("apply counter delta", err)
	}
	return toDomainCounters(row), nil
}
