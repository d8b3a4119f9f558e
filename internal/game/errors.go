package game

import "errors"

// Player-facing errors reject the single offending call and leave the match
// state untouched.
var (
	// ErrIllegalAction is returned when an action is not valid in the
	// current phase or is submitted by a non-owning actor.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInvalidBet is returned when a wager violates bankroll or limits.
	ErrInvalidBet = errors.New("invalid bet")

	// ErrUnknownBox is returned for an out-of-range box index.
	ErrUnknownBox = errors.New("unknown box")

	// ErrUnknownMatch is returned by stores for a bad match reference.
	ErrUnknownMatch = errors.New("unknown match")

	// ErrConcurrentModification is returned on a version mismatch when
	// persisting; the caller must reload and retry, never overwrite.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrMatchFaulted is returned once a match has tripped an internal
	// invariant (shoe underflow, phase inconsistency) and is frozen for
	// administrative resolution.
	ErrMatchFaulted = errors.New("match faulted")
)
