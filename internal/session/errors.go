package session

import "errors"

// Lifecycle error taxonomy. Callers match with errors.Is; the HTTP layer maps
// these onto status codes.
var (
	// ErrNotFound is returned for operations against an unknown session ID.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateName is returned when a create or import would reuse a
	// live session's name.
	ErrDuplicateName = errors.New("session already exists")

	// ErrCapacity is returned when the registry is at its session limit.
	ErrCapacity = errors.New("session limit reached")
)
