package serializers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

const (
	msgNoSuchUUID   = "No such object with UUID: %s"
	msgNoSuchObject = "No such object: %s"
	msgNotUnique    = "This field must be unique."
)

// Ref is the representation of a referenced entity.
type Ref struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// FieldRef is the representation of a referenced contact field.
type FieldRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func groupRef(g *domain.ContactGroup) *Ref {
	if g == nil {
		return nil
	}
	return &Ref{UUID: g.UUID.String(), Name: g.Name}
}

func groupRefs(groups []*domain.ContactGroup) []Ref {
	refs := make([]Ref, 0, len(groups))
	for _, g := range groups {
		refs = append(refs, *groupRef(g))
	}
	return refs
}

func contactRef(c *domain.Contact) *Ref {
	if c == nil {
		return nil
	}
	return &Ref{UUID: c.UUID.String(), Name: c.Name}
}

func contactRefs(contacts []*domain.Contact) []Ref {
	refs := make([]Ref, 0, len(contacts))
	for _, c := range contacts {
		refs = append(refs, *contactRef(c))
	}
	return refs
}

func channelRef(c *domain.Channel) *Ref {
	if c == nil {
		return nil
	}
	return &Ref{UUID: c.UUID.String(), Name: c.Name}
}

func flowRef(f *domain.Flow) *Ref {
	if f == nil {
		return nil
	}
	return &Ref{UUID: f.UUID.String(), Name: f.Name}
}

func campaignRef(c *domain.Campaign) *Ref {
	if c == nil {
		return nil
	}
	return &Ref{UUID: c.UUID.String(), Name: c.Name}
}

func fieldRef(f *domain.ContactField) *FieldRef {
	if f == nil {
		return nil
	}
	return &FieldRef{Key: f.Key, Label: f.Label}
}

// lookupError is a reference which can't be resolved. Its text is shown to
// the client.
type lookupError string

func (e lookupError) Error() string { return string(e) }

func notFound(err error, format, value string) error {
	if store.IsNotFoundError(err) {
		return lookupError(fmt.Sprintf(format, value))
	}
	return err
}

type lookupFunc[T any] func(ctx context.Context, value string) (T, error)

// resolve looks up the reference held by field, recording a field error if
// it can't be found. Other errors are returned.
func resolve[T any](ctx context.Context, p *payload, field string, value *string, lookup lookupFunc[T]) (T, error) {
	var zero T
	if value == nil || p.errs.Has(field) {
		return zero, nil
	}
	obj, err := lookup(ctx, *value)
	var le lookupError
	if errors.As(err, &le) {
		p.errs.Add(field, le.Error())
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("resolving %s: %w", field, err)
	}
	return obj, nil
}

// resolveAll looks up every reference of a list field.
func resolveAll[T any](ctx context.Context, p *payload, field string, values []string, lookup lookupFunc[T]) ([]T, error) {
	if values == nil || p.errs.Has(field) {
		return nil, nil
	}
	objs := make([]T, 0, len(values))
	for _, v := range values {
		obj, err := lookup(ctx, v)
		var le lookupError
		if errors.As(err, &le) {
			p.errs.Add(field, le.Error())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", field, err)
		}
		objs = append(objs, obj)
	}
	if p.errs.Has(field) {
		return nil, nil
	}
	return objs, nil
}

// lookups resolves references within the org of a request among active
// records.
type lookups struct {
	stores *store.Stores
	orgID  domain.OrgID
}

func newLookups(deps Deps, rc *Context) lookups {
	l := lookups{stores: deps.Stores}
	if rc.Org != nil {
		l.orgID = rc.Org.ID
	}
	return l
}

func (l lookups) group(ctx context.Context, value string) (*domain.ContactGroup, error) {
	if id, err := uuid.Parse(value); err == nil {
		g, err := l.stores.Groups.GetByUUID(ctx, l.orgID, id)
		return g, notFound(err, msgNoSuchUUID, value)
	}
	g, err := l.stores.Groups.GetByName(ctx, l.orgID, value)
	return g, notFound(err, msgNoSuchObject, value)
}

func (l lookups) flow(ctx context.Context, value string) (*domain.Flow, error) {
	if id, err := uuid.Parse(value); err == nil {
		f, err := l.stores.Flows.GetByUUID(ctx, l.orgID, id)
		return f, notFound(err, msgNoSuchUUID, value)
	}
	f, err := l.stores.Flows.GetByName(ctx, l.orgID, value)
	return f, notFound(err, msgNoSuchObject, value)
}

func (l lookups) contact(ctx context.Context, value string) (*domain.Contact, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, lookupError(fmt.Sprintf(msgNoSuchUUID, value))
	}
	c, err := l.stores.Contacts.GetByUUID(ctx, l.orgID, id)
	return c, notFound(err, msgNoSuchUUID, value)
}

func (l lookups) campaign(ctx context.Context, value string) (*domain.Campaign, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, lookupError(fmt.Sprintf(msgNoSuchUUID, value))
	}
	c, err := l.stores.Campaigns.GetByUUID(ctx, l.orgID, id)
	return c, notFound(err, msgNoSuchUUID, value)
}

func (l lookups) channel(ctx context.Context, value string) (*domain.Channel, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, lookupError(fmt.Sprintf(msgNoSuchUUID, value))
	}
	c, err := l.stores.Channels.GetByUUID(ctx, l.orgID, id)
	return c, notFound(err, msgNoSuchUUID, value)
}

func (l lookups) field(ctx context.Context, key string) (*domain.ContactField, error) {
	f, err := l.stores.ContactFields.GetByKey(ctx, l.orgID, key)
	return f, notFound(err, msgNoSuchObject, key)
}
