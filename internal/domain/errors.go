package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrOrgSuspended is returned when a suspended org attempts to send.
	ErrOrgSuspended = errors.New("org is suspended")
)
