package domain

import "errors"

var (
	// ErrValidation marks missing or malformed input rejected before storage.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict marks a duplicate registration identity.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a lookup for an identity or record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks any other persistence failure.
	ErrStorage = errors.New("storage error")
	// ErrNetwork marks a client-side transport failure.
	ErrNetwork = errors.New("network error")
	// ErrMutationPending is returned when a rating write for the same card and
	// dimension has not settled yet.
	ErrMutationPending = errors.New("rating write already in flight")
)
