package domain

import "errors"

var (
	ErrPostNotFound        = errors.New("post not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrConstraintViolation = errors.New("reaction uniqueness constraint violated")
	ErrTransitionFailed    = errors.New("reaction transition failed")
	ErrInvalidAction       = errors.New("invalid reaction action")
	ErrMissingCaller       = errors.New("caller identity required")

	// ErrConflict signals that a concurrent request changed the reaction row between
	// read and write. The engine re-runs the whole transition when it sees it.
	ErrConflict = errors.New("concurrent reaction update")

	// ErrCommitUnknown means the commit call failed and the store cannot say whether it landed.
	ErrCommitUnknown = errors.New("commit outcome unknown")
)
