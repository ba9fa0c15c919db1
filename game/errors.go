package game

import "errors"

// Error taxonomy. Handlers map these to HTTP statuses; nothing in this
// package retries automatically, and a failed precondition never
// mutates state.
var (
	// ErrNotFound: a game, player, or theme does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed or disallowed input.
	ErrValidation = errors.New("validation failed")

	// ErrStateConflict: the operation is invalid for the game's
	// current phase.
	ErrStateConflict = errors.New("state conflict")

	// ErrConsistency: the stored configuration no longer matches the
	// role catalog; fatal to the whole operation.
	ErrConsistency = errors.New("consistency error")
)
