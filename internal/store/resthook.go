package store

import (
	"context"

	"github.com/phrazzld/temba-api/internal/domain"
)

// ResthookStore defines read access to resthooks.
type ResthookStore interface {
	// List returns active resthooks. Honours Before, Limit and Slug.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Resthook, error)

	// GetBySlug returns the active resthook with the given slug.
	// Returns ErrResthookNotFound if there is none.
	GetBySlug(ctx context.Context, orgID domain.OrgID, slug string) (*domain.Resthook, error)
}

// ResthookSubscriberStore defines persistence of resthook subscribers.
type ResthookSubscriberStore interface {
	// List returns active subscribers with their resthook. Honours Before,
	// Limit, ID and Slug (of the resthook).
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.ResthookSubscriber, error)

	// Exists reports whether an active subscriber to resthook has targetURL.
	Exists(ctx context.Context, resthookID domain.ResthookID, targetURL string) (bool, error)

	// Create saves a new subscriber, setting its ID.
	Create(ctx context.Context, subscriber *domain.ResthookSubscriber) error
}

// WebHookEventStore defines read access to resthook events.
type WebHookEventStore interface {
	// List returns events fired by resthooks. Honours Before, Limit and Slug.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.WebHookEvent, error)
}
