package domain

import "errors"

// Failure taxonomy shared by storage and the HTTP layer. Storage backends
// return these (possibly wrapped); handlers map them to status codes.
var (
	// ErrNotFound means the target entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means no verified identity is attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the actor is neither the resource owner nor an admin.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput means the request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is a uniqueness violation from a concurrent duplicate create.
	// Toggle reconciles it internally; it should never reach a client.
	ErrConflict = errors.New("conflict")
)
