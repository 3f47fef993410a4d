package brackets

import "errors"

var (
	// ErrInvalidOperation is returned when an operation's precondition does not hold
	// in the bracket's current state.
	ErrInvalidOperation = errors.New("invalid bracket operation")

	// ErrNotFound is returned when a referenced match index or round number does not exist.
	ErrNotFound = errors.New("bracket element not found")

	// ErrRevealCancelled is reported by a Reveal that was cancelled before it committed.
	ErrRevealCancelled = errors.New("reveal cancelled")
)
