// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested message does not exist or is hidden from the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID indicates a message id that is not a canonical UUID.
	ErrInvalidID = errors.New("invalid message id")

	// ErrRateLimited indicates the submitter is inside the cooldown window.
	ErrRateLimited = errors.New("rate limited")

	// ErrHoneypot indicates the hidden honeypot field was filled in.
	ErrHoneypot = errors.New("honeypot triggered")

	// ErrInvalidSubmission indicates the submission failed field validation.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrConfig indicates a missing or malformed required configuration value.
	ErrConfig = errors.New("configuration error")

	// ErrElevatedForbidden indicates an attempt to use the service role outside a trusted server context.
	ErrElevatedForbidden = errors.New("service role not available in this execution context")
)
