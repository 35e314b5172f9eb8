package serializers

import (
	"context"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

const (
	msgDynamicGroup     = "Can't add contact to dynamic group with UUID: %s"
	msgBlockedOrStopped = "Blocked or stopped contacts can't be added to groups"
	msgInvalidFieldKey  = "Invalid contact field key: %s"
	msgURNWithLookup    = "Field not allowed when using URN in URL"
	msgAnonURNs         = "Updating URNs not allowed for anonymous organizations"
	msgURNTaken         = "URN belongs to another contact: %s"
	msgIllegalName      = "Name contains illegal characters."
)

// ContactResponse is the API view of a contact.
type ContactResponse struct {
	UUID       string             `json:"uuid"`
	Name       *string            `json:"name"`
	Language   *string            `json:"language"`
	URNs       []string           `json:"urns"`
	Groups     []Ref              `json:"groups"`
	Fields     map[string]*string `json:"fields"`
	Blocked    *bool              `json:"blocked"`
	Stopped    *bool              `json:"stopped"`
	CreatedOn  *string            `json:"created_on"`
	ModifiedOn *string            `json:"modified_on"`
}

// ContactRead projects a contact. A deleted contact keeps only its
// identity and timestamps, and URNs are never shown to anonymous orgs.
// Field values are rendered only for rc.ContactFields.
func ContactRead(rc *Context, c *domain.Contact) *ContactResponse {
	resp := &ContactResponse{
		UUID:       c.UUID.String(),
		URNs:       []string{},
		Groups:     []Ref{},
		Fields:     map[string]*string{},
		CreatedOn:  formatDatetime(c.CreatedOn),
		ModifiedOn: formatDatetime(c.ModifiedOn),
	}
	if !c.IsActive {
		return resp
	}

	resp.Name = optional(c.Name)
	resp.Language = optional(c.Language)
	blocked, stopped := c.IsBlocked, c.IsStopped
	resp.Blocked = &blocked
	resp.Stopped = &stopped

	if !rc.isAnon() {
		for _, u := range c.URNs {
			resp.URNs = append(resp.URNs, u.Identity.String())
		}
	}
	resp.Groups = groupRefs(c.Groups)

	for _, f := range rc.ContactFields {
		resp.Fields[f.Key] = domain.SerializeFieldValue(f, c.Value(f.Key))
	}
	return resp
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type contactInput struct {
	Name     *string            `json:"name" validate:"omitempty,notblank,max=64"`
	Language *string            `json:"language" validate:"omitempty,notblank,min=3,max=3"`
	URNs     []domain.URN       `json:"urns"`
	Groups   []string           `json:"groups"`
	Fields   map[string]*string `json:"fields"`
}

// ContactWriteSerializer creates a contact, or updates an existing one.
// Only the attributes present in the body are changed.
type ContactWriteSerializer struct {
	writeBase
	instance *domain.Contact
	in       contactInput
	present  map[string]bool
	groups   []*domain.ContactGroup
	fields   map[string]*domain.ContactField
}

// NewContactWriteSerializer returns a serializer which creates a contact, or
// updates instance when it is non-nil.
func NewContactWriteSerializer(deps Deps, rc *Context, instance *domain.Contact) *ContactWriteSerializer {
	return &ContactWriteSerializer{writeBase: newWriteBase(deps, rc), instance: instance}
}

// Validate decodes body and checks its URNs, groups and fields.
func (s *ContactWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = contactInput{}
	s.present = make(map[string]bool)
	s.groups = nil
	s.fields = make(map[string]*domain.ContactField)

	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			for _, name := range []string{"name", "language", "urns", "groups", "fields"} {
				s.present[name] = p.present(name)
			}
			s.in.Name = p.str("name", true)
			s.in.Language = p.str("language", true)
			s.in.URNs = p.urns("urns")
			s.in.Groups = p.refs("groups")
			s.in.Fields = s.decodeFields(p)
		},
		resolve: func(ctx context.Context, p *payload) error {
			if err := s.resolveGroups(ctx, p); err != nil {
				return err
			}
			s.checkFields(p)
			return s.checkURNs(ctx, p)
		},
		cross: func(ctx context.Context, p *payload) error {
			// a contact can be created by the URN used to look it up
			lookup, ok := s.rc.lookupURN()
			if s.instance == nil && ok && len(s.in.URNs) == 0 {
				urn, err := domain.ParseURN(lookup)
				if err != nil {
					p.errs.Add(NonFieldErrors, fmt.Sprintf(msgInvalidURN, lookup))
					return nil
				}
				s.in.URNs = []domain.URN{urn}
				s.present["urns"] = true
			}
			return nil
		},
	})
}

func (s *ContactWriteSerializer) decodeFields(p *payload) map[string]*string {
	raw, ok := p.dict("fields")
	if !ok {
		return nil
	}
	values := make(map[string]*string, len(raw))
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		if jsonType(v) == "NoneType" {
			values[key] = nil
			continue
		}
		str, ok := asFieldValue(v)
		if !ok {
			p.errs.Add("fields", msgNotString)
			return nil
		}
		values[key] = &str
	}
	return values
}

func (s *ContactWriteSerializer) resolveGroups(ctx context.Context, p *payload) error {
	groups, err := resolveAll(ctx, p, "groups", s.in.Groups, s.lookups.group)
	if err != nil || groups == nil {
		return err
	}
	for _, g := range groups {
		if g.IsDynamic() {
			p.errs.Add("groups", fmt.Sprintf(msgDynamicGroup, g.UUID))
			return nil
		}
	}
	if s.instance != nil && (s.instance.IsBlocked || s.instance.IsStopped) && len(groups) > 0 {
		p.errs.Add("groups", msgBlockedOrStopped)
		return nil
	}
	s.groups = groups
	return nil
}

func (s *ContactWriteSerializer) checkFields(p *payload) {
	if s.in.Fields == nil {
		return
	}
	known := make(map[string]*domain.ContactField, len(s.rc.ContactFields))
	for _, f := range s.rc.ContactFields {
		known[f.Key] = f
	}
	for key := range s.in.Fields {
		f, ok := known[key]
		if !ok {
			p.errs.Add("fields", fmt.Sprintf(msgInvalidFieldKey, key))
			return
		}
		s.fields[key] = f
	}
}

func (s *ContactWriteSerializer) checkURNs(ctx context.Context, p *payload) error {
	if !p.valid("urns") || s.in.URNs == nil {
		return nil
	}
	if _, ok := s.rc.lookupURN(); ok {
		p.errs.Add("urns", msgURNWithLookup)
		return nil
	}
	if s.rc.isAnon() && s.instance != nil {
		p.errs.Add("urns", msgAnonURNs)
		return nil
	}
	if s.instance != nil {
		return nil
	}

	for _, urn := range s.in.URNs {
		_, err := s.deps.Stores.Contacts.GetByURN(ctx, s.rc.Org.ID, urn)
		if err == nil {
			p.errs.Add("urns", fmt.Sprintf(msgURNTaken, urn))
			return nil
		}
		if !store.IsNotFoundError(err) {
			return fmt.Errorf("looking up contact by urn: %w", err)
		}
	}
	return nil
}

// Save updates the name, language and URNs of an existing contact, or gets
// or creates one by its URNs. Field values are then set one by one and
// static group memberships replaced.
func (s *ContactWriteSerializer) Save(ctx context.Context) (*domain.Contact, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	contacts := s.deps.Stores.Contacts
	name, language := deref(s.in.Name), deref(s.in.Language)

	contact := s.instance
	if contact != nil {
		changed := false
		if s.present["name"] && name != contact.Name {
			contact.Name = name
			changed = true
		}
		if s.present["language"] && language != contact.Language {
			contact.Language = language
			changed = true
		}
		if s.present["urns"] && s.in.URNs != nil {
			if err := contacts.UpdateURNs(ctx, contact, s.rc.User, s.in.URNs); err != nil {
				return nil, fmt.Errorf("updating contact urns: %w", err)
			}
		}
		if changed {
			if err := contacts.Update(ctx, contact, s.rc.User); err != nil {
				return nil, fmt.Errorf("updating contact: %w", err)
			}
		}
	} else {
		var err error
		contact, err = contacts.GetOrCreate(ctx, s.rc.Org, s.rc.User, name, s.in.URNs, language)
		if err != nil {
			return nil, fmt.Errorf("creating contact: %w", err)
		}
		s.instance = contact
	}

	for _, key := range sortedKeys(s.in.Fields) {
		if err := contacts.SetField(ctx, contact, s.rc.User, s.fields[key], s.in.Fields[key]); err != nil {
			return nil, fmt.Errorf("setting field %s: %w", key, err)
		}
	}

	if s.present["groups"] && s.in.Groups != nil {
		if err := contacts.UpdateStaticGroups(ctx, contact, s.rc.User, s.groups); err != nil {
			return nil, fmt.Errorf("updating contact groups: %w", err)
		}
	}
	return contact, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ContactFieldResponse is the API view of a contact field.
type ContactFieldResponse struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	ValueType *string `json:"value_type"`
}

// ContactFieldRead projects f.
func ContactFieldRead(_ *Context, f *domain.ContactField) *ContactFieldResponse {
	return &ContactFieldResponse{
		Key:       f.Key,
		Label:     f.Label,
		ValueType: apiCode(valueTypes, f.ValueType),
	}
}

// GroupResponse is the API view of a contact group.
type GroupResponse struct {
	UUID  string  `json:"uuid"`
	Name  string  `json:"name"`
	Query *string `json:"query"`
	Count int     `json:"count"`
}

// GroupRead projects g.
func GroupRead(_ *Context, g *domain.ContactGroup) *GroupResponse {
	return &GroupResponse{
		UUID:  g.UUID.String(),
		Name:  g.Name,
		Query: optional(g.Query),
		Count: g.Count,
	}
}

type nameInput struct {
	Name *string `json:"name" validate:"required,notblank,max=64"`
}

// GroupWriteSerializer renames an existing group, or gets or creates a
// static group by name.
type GroupWriteSerializer struct {
	writeBase
	instance *domain.ContactGroup
	in       nameInput
}

// NewGroupWriteSerializer returns a serializer which gets or creates a group
// by name, or renames instance when it is non-nil.
func NewGroupWriteSerializer(deps Deps, rc *Context, instance *domain.ContactGroup) *GroupWriteSerializer {
	return &GroupWriteSerializer{writeBase: newWriteBase(deps, rc), instance: instance}
}

// Validate decodes body and checks the name.
func (s *GroupWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = nameInput{}
	return s.run(ctx, body, stages{
		input:  &s.in,
		decode: func(p *payload) { s.in.Name = p.str("name", false) },
		resolve: func(ctx context.Context, p *payload) error {
			if p.errs.Has("name") {
				return nil
			}
			if !domain.IsValidName(*s.in.Name, domain.MaxGroupNameLen) {
				p.errs.Add("name", msgIllegalName)
				return nil
			}
			// creation is idempotent by name so only a rename can collide
			if s.instance == nil {
				return nil
			}
			taken, err := s.deps.Stores.Groups.NameExists(ctx, s.rc.Org.ID, *s.in.Name, s.instance.ID)
			if err != nil {
				return fmt.Errorf("checking group name: %w", err)
			}
			if taken {
				p.errs.Add("name", msgNotUnique)
			}
			return nil
		},
	})
}

// Save renames the group or gets or creates it.
func (s *GroupWriteSerializer) Save(ctx context.Context) (*domain.ContactGroup, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	groups := s.deps.Stores.Groups

	if s.instance != nil {
		if err := groups.Rename(ctx, s.instance, s.rc.User, *s.in.Name); err != nil {
			return nil, fmt.Errorf("renaming group: %w", err)
		}
		s.instance.Name = *s.in.Name
		return s.instance, nil
	}

	group, err := groups.GetOrCreate(ctx, s.rc.Org, s.rc.User, *s.in.Name)
	if err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	s.instance = group
	return group, nil
}
