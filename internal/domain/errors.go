package domain

import "errors"

// Sentinel errors shared across services. Services return these unwrapped so
// callers can map them with errors.Is; infrastructure failures are wrapped
// with fmt.Errorf("...: %w", err) instead.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("caller is not allowed to perform this operation")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid event state transition")
	ErrInvalidOperation  = errors.New("operation not valid in the current event state")
	ErrCapacityExceeded  = errors.New("event capacity exceeded")
	ErrConflict          = errors.New("concurrent modification detected")
	ErrAlreadyExists     = errors.New("resource already exists")
)
