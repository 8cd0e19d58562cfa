package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is what a caller asks for. Only Like and Dislike exist.
type Action string

const (
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
)

// ParseAction validates a wire value. Anything but "like" or "dislike" is rejected.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionLike, ActionDislike:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Opposite returns the other polarity.
func (a Action) Opposite() Action {
	if a == ActionLike {
		return ActionDislike
	}
	return ActionLike
}

// State is a caller's standing reaction on a post.
type State int

const (
	StateNone State = iota
	StateLiked
	StateDisliked
)

func (s State) String() string {
	switch s {
	case StateLiked:
		return "like"
	case StateDisliked:
		return "dislike"
	default:
		return "none"
	}
}

// StateOf maps a stored action to its state.
func StateOf(a Action) State {
	switch a {
	case ActionLike:
		return StateLiked
	case ActionDislike:
		return StateDisliked
	default:
		return StateNone
	}
}

// Action returns the stored action for a non-None state.
func (s State) Action() (Action, bool) {
	switch s {
	case StateLiked:
		return ActionLike, true
	case StateDisliked:
		return ActionDislike, true
	default:
		return "", false
	}
}

// Reaction is one user's opinion on one post. At most one exists per (PostID, UserID).
type Reaction struct {
	PostID    uuid.UUID
	UserID    string
	Action    Action
	UpdatedAt time.Time
}

// PostCounters is the denormalized aggregate attached to a post.
type PostCounters struct {
	PostID       uuid.UUID `json:"post_id"`
	LikeCount    int64     `json:"likes"`
	DislikeCount int64     `json:"dislikes"`
}

// Delta is a signed counter adjustment.
type Delta struct {
	Likes    int64
	Dislikes int64
}

func (d Delta) IsZero() bool {
	return d.Likes == 0 && d.Dislikes == 0
}

// ReactionSummary is what a reader sees for a post: counters plus their own reaction.
type ReactionSummary struct {
	PostCounters
	Reaction State
}

// CounterDrift describes a post whose stored counters disagree with its reaction rows.
type CounterDrift struct {
	PostID         uuid.UUID
	Stored         PostCounters
	ActualLikes    int64
	ActualDislikes int64
}
