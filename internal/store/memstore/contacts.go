package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

type contactStore struct{ db *DB }

// loadContact returns a copy of c with URNs, groups and values attached.
// Callers must hold mu.
func (db *DB) loadContact(c *domain.Contact) *domain.Contact {
	cp := *c

	cp.URNs = nil
	for _, u := range db.urns {
		if u.ContactID == c.ID {
			urn := *u
			cp.URNs = append(cp.URNs, &urn)
		}
	}
	sort.Slice(cp.URNs, func(i, j int) bool { return cp.URNs[i].Priority > cp.URNs[j].Priority })

	cp.Groups = nil
	for gid := range db.memberships[c.ID] {
		if g := db.groups[gid]; g != nil && g.IsActive {
			cp.Groups = append(cp.Groups, db.loadGroup(g))
		}
	}
	sort.Slice(cp.Groups, func(i, j int) bool { return cp.Groups[i].ID < cp.Groups[j].ID })

	cp.Values = make(map[string]*domain.Value, len(c.Values))
	for k, v := range c.Values {
		val := *v
		cp.Values[k] = &val
	}
	return &cp
}

// contactRef returns a minimal copy of a contact for embedding in other
// entities. Callers must hold mu.
func (db *DB) contactRef(id domain.ContactID) *domain.Contact {
	c := db.contacts[id]
	if c == nil {
		return nil
	}
	return &domain.Contact{ID: c.ID, UUID: c.UUID, OrgID: c.OrgID, Name: c.Name, Language: c.Language, IsActive: c.IsActive}
}

// urnRow returns the contact URN row for identity in org, or nil.
// Callers must hold mu.
func (db *DB) urnRow(orgID domain.OrgID, identity domain.URN) *domain.ContactURN {
	for _, u := range db.urns {
		if u.OrgID == orgID && u.Identity == identity {
			return u
		}
	}
	return nil
}

func (s *contactStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Contact
	for _, c := range s.db.contacts {
		if c.OrgID != orgID || c.IsActive == opts.Deleted {
			continue
		}
		if opts.UUID != uuid.Nil && c.UUID != opts.UUID {
			continue
		}
		if opts.URN != "" {
			u := s.db.urnRow(orgID, opts.URN)
			if u == nil || u.ContactID != c.ID {
				continue
			}
		}
		matches = append(matches, c)
	}

	matches = page(matches, func(c *domain.Contact) int64 { return int64(c.ID) }, opts)
	out := make([]*domain.Contact, len(matches))
	for i, c := range matches {
		out[i] = s.db.loadContact(c)
	}
	return out, nil
}

func (s *contactStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, c := range s.db.contacts {
		if c.OrgID == orgID && c.UUID == id && c.IsActive {
			return s.db.loadContact(c), nil
		}
	}
	return nil, store.ErrContactNotFound
}

func (s *contactStore) GetByURN(ctx context.Context, orgID domain.OrgID, urn domain.URN) (*domain.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u := s.db.urnRow(orgID, urn)
	if u == nil {
		return nil, store.ErrContactNotFound
	}
	c := s.db.contacts[u.ContactID]
	if c == nil || !c.IsActive {
		return nil, store.ErrContactNotFound
	}
	return s.db.loadContact(c), nil
}

func (s *contactStore) GetByIDs(ctx context.Context, orgID domain.OrgID, ids []domain.ContactID) ([]*domain.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := make([]*domain.Contact, 0, len(ids))
	for _, id := range ids {
		if c := s.db.contacts[id]; c != nil && c.OrgID == orgID && c.IsActive {
			out = append(out, s.db.loadContact(c))
		}
	}
	return out, nil
}

func (s *contactStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string, urns []domain.URN, language string) (*domain.Contact, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var contact *domain.Contact
	for _, urn := range urns {
		if u := s.db.urnRow(org.ID, urn); u != nil && u.ContactID != domain.NilContactID {
			if c := s.db.contacts[u.ContactID]; c != nil && c.IsActive {
				contact = c
				break
			}
		}
	}

	if contact == nil {
		now := s.db.now()
		contact = &domain.Contact{
			ID:         domain.ContactID(s.db.id()),
			UUID:       uuid.New(),
			OrgID:      org.ID,
			Name:       name,
			Language:   language,
			IsActive:   true,
			CreatedOn:  now,
			ModifiedOn: now,
			CreatedBy:  user.ID,
			ModifiedBy: user.ID,
			Values:     map[string]*domain.Value{},
		}
		s.db.contacts[contact.ID] = contact
	}

	priority := s.db.lowestPriority(contact.ID)
	for _, urn := range urns {
		u := s.db.urnRow(org.ID, urn)
		if u != nil && u.ContactID == contact.ID {
			continue
		}
		if u != nil && u.ContactID != domain.NilContactID {
			if owner := s.db.contacts[u.ContactID]; owner != nil && owner.IsActive {
				continue
			}
		}
		priority--
		s.db.attachURN(org.ID, contact.ID, urn, priority, u)
	}

	return s.db.loadContact(contact), nil
}

// lowestPriority returns the lowest URN priority of a contact, or the
// starting priority for a contact with none. Callers must hold mu.
func (db *DB) lowestPriority(id domain.ContactID) int {
	lowest := 1001
	for _, u := range db.urns {
		if u.ContactID == id && u.Priority < lowest {
			lowest = u.Priority
		}
	}
	return lowest
}

// attachURN points an existing orphan row at contact, or creates a new row.
// Callers must hold mu.
func (db *DB) attachURN(orgID domain.OrgID, contactID domain.ContactID, urn domain.URN, priority int, existing *domain.ContactURN) {
	if existing != nil {
		existing.ContactID = contactID
		existing.Priority = priority
		return
	}
	id := domain.ContactURNID(db.id())
	db.urns[id] = &domain.ContactURN{ID: id, OrgID: orgID, ContactID: contactID, Identity: urn, Priority: priority}
}

func (s *contactStore) Update(ctx context.Context, contact *domain.Contact, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.db.contacts[contact.ID]
	if c == nil {
		return store.ErrContactNotFound
	}
	c.Name = contact.Name
	c.Language = contact.Language
	c.ModifiedBy = user.ID
	c.ModifiedOn = s.db.now()
	contact.ModifiedOn = c.ModifiedOn
	return nil
}

func (s *contactStore) UpdateURNs(ctx context.Context, contact *domain.Contact, user *domain.User, urns []domain.URN) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.db.contacts[contact.ID]
	if c == nil {
		return store.ErrContactNotFound
	}

	for _, urn := range urns {
		if u := s.db.urnRow(c.OrgID, urn); u != nil && u.ContactID != domain.NilContactID && u.ContactID != c.ID {
			if owner := s.db.contacts[u.ContactID]; owner != nil && owner.IsActive {
				return store.ErrURNTaken
			}
		}
	}

	keep := make(map[domain.URN]bool, len(urns))
	for _, urn := range urns {
		keep[urn] = true
	}
	for _, u := range s.db.urns {
		if u.ContactID == c.ID && !keep[u.Identity] {
			u.ContactID = domain.NilContactID
		}
	}

	for i, urn := range urns {
		s.db.attachURN(c.OrgID, c.ID, urn, 1000-i, s.db.urnRow(c.OrgID, urn))
	}

	c.ModifiedBy = user.ID
	c.ModifiedOn = s.db.now()
	contact.URNs = s.db.loadContact(c).URNs
	return nil
}

func (s *contactStore) SetField(ctx context.Context, contact *domain.Contact, user *domain.User, field *domain.ContactField, value *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.db.contacts[contact.ID]
	if c == nil {
		return store.ErrContactNotFound
	}
	if c.Values == nil {
		c.Values = map[string]*domain.Value{}
	}

	if value == nil {
		delete(c.Values, field.Key)
	} else {
		v := domain.ParseFieldValue(field, *value)
		v.ContactID = c.ID
		c.Values[field.Key] = v
	}

	c.ModifiedBy = user.ID
	c.ModifiedOn = s.db.now()
	contact.Values = s.db.loadContact(c).Values
	return nil
}

func (s *contactStore) UpdateStaticGroups(ctx context.Context, contact *domain.Contact, user *domain.User, groups []*domain.ContactGroup) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.db.contacts[contact.ID]
	if c == nil {
		return store.ErrContactNotFound
	}

	members := map[domain.ContactGroupID]bool{}
	for gid := range s.db.memberships[c.ID] {
		if g := s.db.groups[gid]; g != nil && g.IsDynamic() {
			members[gid] = true
		}
	}
	for _, g := range groups {
		members[g.ID] = true
	}
	s.db.memberships[c.ID] = members

	c.ModifiedBy = user.ID
	c.ModifiedOn = s.db.now()
	contact.Groups = s.db.loadContact(c).Groups
	return nil
}

func (s *contactStore) ListIDsInGroups(ctx context.Context, groupIDs []domain.ContactGroupID) ([]domain.ContactID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var ids []domain.ContactID
	for cid, groups := range s.db.memberships {
		c := s.db.contacts[cid]
		if c == nil || !c.IsActive || c.IsBlocked || c.IsStopped {
			continue
		}
		for _, gid := range groupIDs {
			if groups[gid] {
				ids = append(ids, cid)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fieldStore struct{ db *DB }

func (s *fieldStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ContactField, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.ContactField
	for _, f := range s.db.fields {
		if f.OrgID != orgID || !f.IsActive {
			continue
		}
		if opts.Key != "" && f.Key != opts.Key {
			continue
		}
		cp := *f
		matches = append(matches, &cp)
	}
	return page(matches, func(f *domain.ContactField) int64 { return int64(f.ID) }, opts), nil
}

func (s *fieldStore) GetByKey(ctx context.Context, orgID domain.OrgID, key string) (*domain.ContactField, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, f := range s.db.fields {
		if f.OrgID == orgID && f.IsActive && f.Key == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, store.ErrFieldNotFound
}

type groupStore struct{ db *DB }

// loadGroup returns a copy of g with its member count. Callers must hold mu.
func (db *DB) loadGroup(g *domain.ContactGroup) *domain.ContactGroup {
	cp := *g
	cp.Count = 0
	for cid, groups := range db.memberships {
		if c := db.contacts[cid]; c != nil && c.IsActive && groups[g.ID] {
			cp.Count++
		}
	}
	return &cp
}

func (s *groupStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ContactGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.ContactGroup
	for _, g := range s.db.groups {
		if g.OrgID != orgID || !g.IsActive {
			continue
		}
		if opts.UUID != uuid.Nil && g.UUID != opts.UUID {
			continue
		}
		matches = append(matches, s.db.loadGroup(g))
	}
	return page(matches, func(g *domain.ContactGroup) int64 { return int64(g.ID) }, opts), nil
}

func (s *groupStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.ContactGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, g := range s.db.groups {
		if g.OrgID == orgID && g.IsActive && g.UUID == id {
			return s.db.loadGroup(g), nil
		}
	}
	return nil, store.ErrGroupNotFound
}

func (s *groupStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.ContactGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if g := s.db.groupByName(orgID, name); g != nil {
		return s.db.loadGroup(g), nil
	}
	return nil, store.ErrGroupNotFound
}

// groupByName returns the active group of org named name. Callers must hold mu.
func (db *DB) groupByName(orgID domain.OrgID, name string) *domain.ContactGroup {
	var found *domain.ContactGroup
	for _, g := range db.groups {
		if g.OrgID == orgID && g.IsActive && sameName(g.Name, name) {
			if found == nil || g.ID < found.ID {
				found = g
			}
		}
	}
	return found
}

func (s *groupStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.ContactGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if g := s.db.groupByName(org.ID, name); g != nil {
		return s.db.loadGroup(g), nil
	}

	g := &domain.ContactGroup{
		ID:        domain.ContactGroupID(s.db.id()),
		UUID:      uuid.New(),
		OrgID:     org.ID,
		Name:      name,
		IsActive:  true,
		CreatedOn: s.db.now(),
	}
	s.db.groups[g.ID] = g
	return s.db.loadGroup(g), nil
}

func (s *groupStore) Rename(ctx context.Context, group *domain.ContactGroup, user *domain.User, name string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g := s.db.groups[group.ID]
	if g == nil {
		return store.ErrGroupNotFound
	}
	if other := s.db.groupByName(g.OrgID, name); other != nil && other.ID != g.ID {
		return store.ErrNameTaken
	}
	g.Name = name
	group.Name = name
	return nil
}

func (s *groupStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.ContactGroupID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, g := range s.db.groups {
		if g.OrgID == orgID && g.IsActive && g.ID != exclude && sameName(g.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
