package store

import "errors"

var (
	// ErrConflict is returned when a claim or commit loses a race: the item
	// is no longer in the state the operation requires.
	ErrConflict = errors.New("item state conflict")

	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
)
