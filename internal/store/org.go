package store

import (
	"context"

	"github.com/phrazzld/temba-api/internal/domain"
)

// OrgStore defines persistence of orgs.
type OrgStore interface {
	// GetByID returns the org with the given id.
	// Returns ErrOrgNotFound if there is none.
	GetByID(ctx context.Context, id domain.OrgID) (*domain.Org, error)

	// Create saves a new org, setting its ID.
	Create(ctx context.Context, org *domain.Org) error
}

// UserStore defines persistence of API users.
type UserStore interface {
	// GetByID returns the active user with the given id.
	// Returns ErrUserNotFound if there is none.
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)

	// Create saves a new user, setting its ID.
	// Returns ErrDuplicate if the email is already taken.
	Create(ctx context.Context, user *domain.User) error
}

// BoundaryStore defines read access to admin boundaries.
type BoundaryStore interface {
	// List returns the boundaries within the org's country, with parent and
	// aliases. Honours Before and Limit.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.AdminBoundary, error)
}
