package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// CampaignStore defines persistence of campaigns.
type CampaignStore interface {
	// List returns active campaigns with their group. Honours Before, Limit
	// and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Campaign, error)

	// GetByUUID returns the active campaign with the given UUID.
	// Returns ErrCampaignNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Campaign, error)

	// Create saves a new campaign, setting its ID and UUID.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// Update saves the campaign's name and group.
	Update(ctx context.Context, campaign *domain.Campaign) error

	// NameExists reports whether an active campaign other than exclude has
	// name, ignoring case.
	NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.CampaignID) (bool, error)
}

// CampaignEventStore defines persistence of campaign events.
type CampaignEventStore interface {
	// List returns active events with their campaign, relative_to field and
	// flow. Honours Before, Limit and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.CampaignEvent, error)

	// GetByUUID returns the active event with the given UUID.
	// Returns ErrEventNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.CampaignEvent, error)

	// Create saves a new event, setting its ID and UUID.
	Create(ctx context.Context, event *domain.CampaignEvent) error

	// Update saves every mutable attribute of the event.
	Update(ctx context.Context, event *domain.CampaignEvent) error
}
