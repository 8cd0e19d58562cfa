package domain

import (
	"context"

	"github.com/google/uuid"
)

// ReactionStore holds the (post, user) -> action mapping.
//
// Get returns (nil, nil) when the pair has no reaction. Upsert and Remove are
// conditional on the state the caller read: applied/removed is false when the
// stored row no longer matches, which the engine treats as a lost race.
type ReactionStore interface {
	Get(ctx context.Context, postID uuid.UUID, userID string) (*Reaction, error)
	Upsert(ctx context.Context, r Reaction, previous State) (applied bool, err error)
	Remove(ctx context.Context, postID uuid.UUID, userID string, previous Action) (removed bool, err error)
}

// CounterStore holds per-post aggregate counters.
type CounterStore interface {
	Read(ctx context.Context, postID uuid.UUID) (PostCounters, error)
	// ApplyDelta adds both deltas atomically and clamps each counter at zero.
	ApplyDelta(ctx context.Context, postID uuid.UUID, delta Delta) (PostCounters, error)
}

// Stores is the pair of stores bound to a single atomic unit.
type Stores struct {
	Reactions ReactionStore
	Counters  CounterStore
}

// UnitOfWork runs fn so that every store mutation inside it commits together or not at all.
type UnitOfWork interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// CounterReader reads counters, possibly through a cache.
type CounterReader interface {
	Read(ctx context.Context, postID uuid.UUID) (PostCounters, error)
}

// CounterCache is a read-through cache in front of the counter store.
type CounterCache interface {
	CounterReader
	Invalidate(ctx context.Context, postID uuid.UUID) error
}

// CounterAuditor detects and repairs counter drift against the reaction rows.
//
// FindDrift pages through drifted posts in post id order, returning those with an
// id greater than after (uuid.Nil starts from the beginning). A limit <= 0 means
// no limit.
type CounterAuditor interface {
	FindDrift(ctx context.Context, after uuid.UUID, limit int) ([]CounterDrift, error)
	Repair(ctx context.Context, postID uuid.UUID) (PostCounters, error)
}
