package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// LabelStore defines persistence of message labels. Counts of visible
// labelled messages are populated on every returned label.
type LabelStore interface {
	// List returns active labels. Honours Before, Limit and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Label, error)

	// GetByUUID returns the active label with the given UUID.
	// Returns ErrLabelNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Label, error)

	// GetByName returns the active label with the given name, ignoring case.
	GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Label, error)

	// GetOrCreate returns the active label with the given name, creating it
	// if necessary.
	GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.Label, error)

	// Rename changes the label's name.
	Rename(ctx context.Context, label *domain.Label, user *domain.User, name string) error

	// NameExists reports whether an active label other than exclude has name,
	// ignoring case.
	NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.LabelID) (bool, error)
}

// BroadcastStore defines persistence of broadcasts with their recipients.
type BroadcastStore interface {
	// List returns broadcasts. Honours Before, Limit and ID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Broadcast, error)

	// GetByID returns the broadcast with the given id.
	// Returns ErrBroadcastNotFound if there is none.
	GetByID(ctx context.Context, orgID domain.OrgID, id domain.BroadcastID) (*domain.Broadcast, error)

	// Create saves a new broadcast and its recipients, setting its ID.
	Create(ctx context.Context, broadcast *domain.Broadcast) error
}

// MsgStore defines access to messages.
type MsgStore interface {
	// List returns visible and archived messages. Honours Before, Limit and ID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Msg, error)

	// CreateOutgoing saves new outgoing messages, setting their IDs.
	CreateOutgoing(ctx context.Context, msgs []*domain.Msg) error
}
