package database

import "errors"

// Error kinds surfaced by the store and the services on top of it.
// Callers classify with errors.Is; the HTTP layer maps kinds to status codes.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("booking is not in a transitionable state")
	ErrOverlap          = errors.New("interval overlaps an approved booking")
	ErrDuplicateComment = errors.New("author already commented on this item")
	ErrVersionConflict  = errors.New("booking was modified concurrently")
)
