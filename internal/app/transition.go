package app

import "github.com/pscheid92/forumpulse/internal/domain"

// TransitionKind names what a transition does to the reaction row.
type TransitionKind string

const (
	TransitionAdd    TransitionKind = "add"
	TransitionRemove TransitionKind = "remove"
	TransitionSwitch TransitionKind = "switch"
)

// Transition is the decided outcome for one request.
type Transition struct {
	From  domain.State
	Next  domain.State
	Delta domain.Delta
	Kind  TransitionKind
}

// Decide maps (current state, requested action) to the next state and counter delta.
// Repeating the current action clears it; the opposite action switches polarity.
func Decide(current domain.State, requested domain.Action) Transition {
	want := domain.StateOf(requested)
	t := Transition{From: current}

	switch current {
	case domain.StateNone:
		t.Next = want
		t.Kind = TransitionAdd
		t.Delta = unit(requested, 1)
	case want:
		t.Next = domain.StateNone
		t.Kind = TransitionRemove
		t.Delta = unit(requested, -1)
	default:
		t.Next = want
		t.Kind = TransitionSwitch
		t.Delta = unit(requested, 1)
		old := unit(requested.Opposite(), -1)
		t.Delta.Likes += old.Likes
		t.Delta.Dislikes += old.Dislikes
	}

	return t
}

func unit(a domain.Action, sign int64) domain.Delta {
	if a == domain.ActionLike {
		return domain.Delta{Likes: sign}
	}
	return domain.Delta{Dislikes: sign}
}
