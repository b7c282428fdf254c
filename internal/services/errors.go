package services

import "errors"

// Failure taxonomy shared by every service. Handlers translate these into
// HTTP status codes or scoped realtime error events with errors.Is.
var (
	// ErrNotFound: the entity is absent, or the caller is not allowed to
	// learn that it exists.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied: the actor lacks the required role or membership.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict: the state already satisfies the requested change.
	ErrConflict = errors.New("conflict")
	// ErrInvalidOperation: the request violates an invariant, e.g. an owner
	// leaving without transferring ownership first.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrValidation: malformed input.
	ErrValidation = errors.New("validation failed")
)
