package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// ChannelStore defines read access to channels.
type ChannelStore interface {
	// List returns active channels with their last device sync. Honours
	// Before, Limit and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Channel, error)

	// GetByUUID returns the active channel with the given UUID.
	// Returns ErrChannelNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Channel, error)
}

// ChannelEventStore defines read access to channel events.
type ChannelEventStore interface {
	// List returns channel events. Honours Before, Limit and ID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.ChannelEvent, error)
}
