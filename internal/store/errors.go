package store

import "errors"

var (
	// ErrNotFound indicates the requested listing does not exist.
	ErrNotFound = errors.New("listing not found")
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
