package core

import "errors"

// Error kinds surfaced by every core operation. Callers classify with
// errors.Is; the transport layer maps them onto response codes
// (ErrNotFound -> 404, ErrForbidden -> 403, ErrValidation -> 400,
// ErrConflict -> 409, ErrPersistence -> 500).
var (
	// ErrValidation marks content that violates an invariant.
	// Recoverable by correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a caller lacking the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks an operation that would violate a uniqueness or
	// ownership invariant: duplicate grant, owner-role tamper, or two
	// updates racing on the same version number.
	ErrConflict = errors.New("conflict")

	// ErrPersistence marks a storage failure unrelated to input validity.
	// The caller may retry.
	ErrPersistence = errors.New("persistence failure")
)
