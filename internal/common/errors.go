// Package common defines shared constants and sentinel errors used across
// the authgate components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Authentication-path errors. The outward-facing layer collapses all of
	// these into one uniform response; internally they stay distinct so the
	// audit trail records the real reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")

	// Validation errors (input rejected before touching storage).
	ErrValidation      = errors.New("validation error")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrWeakPassword    = errors.New("password does not meet strength requirements")

	// Session errors. Callers treat both the same way: re-authenticate.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Admission control. A normal control-flow result, not a failure.
	ErrRateLimited = errors.New("rate limit exceeded")

	// Generic/internal flow control.
	ErrInternal = errors.New("internal error")
)
