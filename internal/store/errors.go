package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store, or exists but is inactive or belongs to another org.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g. a URN already owned by another contact).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	ErrOrgNotFound       = fmt.Errorf("%w: org", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrContactNotFound   = fmt.Errorf("%w: contact", ErrNotFound)
	ErrFieldNotFound     = fmt.Errorf("%w: contact field", ErrNotFound)
	ErrGroupNotFound     = fmt.Errorf("%w: contact group", ErrNotFound)
	ErrLabelNotFound     = fmt.Errorf("%w: label", ErrNotFound)
	ErrChannelNotFound   = fmt.Errorf("%w: channel", ErrNotFound)
	ErrCampaignNotFound  = fmt.Errorf("%w: campaign", ErrNotFound)
	ErrEventNotFound     = fmt.Errorf("%w: campaign event", ErrNotFound)
	ErrFlowNotFound      = fmt.Errorf("%w: flow", ErrNotFound)
	ErrFlowStartNotFound = fmt.Errorf("%w: flow start", ErrNotFound)
	ErrBroadcastNotFound = fmt.Errorf("%w: broadcast", ErrNotFound)
	ErrResthookNotFound  = fmt.Errorf("%w: resthook", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrURNTaken indicates a URN already belongs to another contact.
	ErrURNTaken = fmt.Errorf("%w: urn", ErrDuplicate)

	// ErrNameTaken indicates an active group, label or campaign with the same
	// name, ignoring case, exists in the org.
	ErrNameTaken = fmt.Errorf("%w: name", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity specific errors wrap ErrNotFound so one check covers them all.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
