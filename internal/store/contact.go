package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// ContactStore defines persistence of contacts, their URNs, field values
// and static group memberships. Contacts are returned fully loaded: URNs in
// priority order, user groups and field values.
type ContactStore interface {
	// List returns contacts of the org. Honours Before, Limit, UUID, URN and
	// Deleted.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.Contact, error)

	// GetByUUID returns the active contact with the given UUID.
	// Returns ErrContactNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Contact, error)

	// GetByURN returns the active contact owning urn.
	// Returns ErrContactNotFound if no active contact owns it.
	GetByURN(ctx context.Context, orgID domain.OrgID, urn domain.URN) (*domain.Contact, error)

	// GetByIDs returns the active contacts with the given ids.
	GetByIDs(ctx context.Context, orgID domain.OrgID, ids []domain.ContactID) ([]*domain.Contact, error)

	// GetOrCreate returns the contact owning any of urns, creating it with
	// the given name and language if no contact does. URNs not yet owned
	// are attached to the returned contact.
	GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string, urns []domain.URN, language string) (*domain.Contact, error)

	// Update saves the contact's name and language.
	Update(ctx context.Context, contact *domain.Contact, user *domain.User) error

	// UpdateURNs replaces the contact's URNs, giving them descending
	// priority in the order given. Returns ErrURNTaken if one belongs to
	// another contact.
	UpdateURNs(ctx context.Context, contact *domain.Contact, user *domain.User, urns []domain.URN) error

	// SetField sets the value of a custom field. A nil value clears it.
	SetField(ctx context.Context, contact *domain.Contact, user *domain.User, field *domain.ContactField, value *string) error

	// UpdateStaticGroups replaces the contact's static group memberships.
	// Dynamic group memberships are left untouched.
	UpdateStaticGroups(ctx context.Context, contact *domain.Contact, user *domain.User, groups []*domain.ContactGroup) error

	// ListIDsInGroups returns the ids of active, unblocked, unstopped members
	// of any of the given groups.
	ListIDsInGroups(ctx context.Context, groupIDs []domain.ContactGroupID) ([]domain.ContactID, error)
}

// ContactFieldStore defines access to custom field definitions.
type ContactFieldStore interface {
	// List returns active fields ordered by id descending. Honours Before,
	// Limit and Key.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.ContactField, error)

	// GetByKey returns the active field with the given key.
	// Returns ErrFieldNotFound if there is none.
	GetByKey(ctx context.Context, orgID domain.OrgID, key string) (*domain.ContactField, error)
}

// GroupStore defines persistence of contact groups. Member counts are
// populated on every returned group.
type GroupStore interface {
	// List returns active user groups. Honours Before, Limit and UUID.
	List(ctx context.Context, orgID domain.OrgID, opts ListOptions) ([]*domain.ContactGroup, error)

	// GetByUUID returns the active group with the given UUID.
	// Returns ErrGroupNotFound if there is none.
	GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.ContactGroup, error)

	// GetByName returns the active group with the given name, ignoring case.
	// Returns ErrGroupNotFound if there is none.
	GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.ContactGroup, error)

	// GetOrCreate returns the active static group with the given name,
	// creating it if necessary.
	GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.ContactGroup, error)

	// Rename changes the group's name.
	Rename(ctx context.Context, group *domain.ContactGroup, user *domain.User, name string) error

	// NameExists reports whether an active group other than exclude has name,
	// ignoring case.
	NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.ContactGroupID) (bool, error)
}
