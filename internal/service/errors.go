package service

import "errors"

var (
	// ErrInvalidOrg is returned when an org fails domain validation.
	ErrInvalidOrg = errors.New("invalid org")

	// ErrInvalidUser is returned when a user fails domain validation.
	ErrInvalidUser = errors.New("invalid user")
)
