package memstore

import (
	"github.com/phrazzld/temba-api/internal/domain"
)

// The Add helpers insert fixtures directly. They assign IDs, and UUIDs and
// timestamps where unset, mark the entity active where it has such a flag,
// and return the stored copy.

// AddOrg inserts an org.
func (db *DB) AddOrg(o domain.Org) *domain.Org {
	db.mu.Lock()
	defer db.mu.Unlock()

	o.ID = domain.OrgID(db.id())
	if o.CreatedOn.IsZero() {
		o.CreatedOn = db.now()
	}
	db.orgs[o.ID] = &o
	cp := o
	return &cp
}

// AddUser inserts an active user.
func (db *DB) AddUser(u domain.User) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()

	u.ID = domain.UserID(db.id())
	u.IsActive = true
	if u.CreatedOn.IsZero() {
		u.CreatedOn = db.now()
	}
	db.users[u.ID] = &u
	cp := u
	return &cp
}

// AddContact inserts an active contact with the given URNs, in priority
// order, and static group memberships.
func (db *DB) AddContact(c domain.Contact, urns []domain.URN, groups ...*domain.ContactGroup) *domain.Contact {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	c.ID = domain.ContactID(db.id())
	c.UUID = newUUID(c.UUID)
	c.IsActive = true
	if c.CreatedOn.IsZero() {
		c.CreatedOn = now
	}
	if c.ModifiedOn.IsZero() {
		c.ModifiedOn = c.CreatedOn
	}
	values := c.Values
	c.Values = map[string]*domain.Value{}
	for k, v := range values {
		val := *v
		val.ContactID = c.ID
		c.Values[k] = &val
	}
	c.URNs, c.Groups = nil, nil
	db.contacts[c.ID] = &c

	for i, urn := range urns {
		db.attachURN(c.OrgID, c.ID, urn, 1000-i, nil)
	}
	members := map[domain.ContactGroupID]bool{}
	for _, g := range groups {
		members[g.ID] = true
	}
	db.memberships[c.ID] = members

	return db.loadContact(&c)
}

// SetContactStatus changes the blocked, stopped and active flags of a contact.
func (db *DB) SetContactStatus(id domain.ContactID, blocked, stopped, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c := db.contacts[id]; c != nil {
		c.IsBlocked, c.IsStopped, c.IsActive = blocked, stopped, active
	}
}

// AddField inserts an active contact field.
func (db *DB) AddField(f domain.ContactField) *domain.ContactField {
	db.mu.Lock()
	defer db.mu.Unlock()

	f.ID = domain.ContactFieldID(db.id())
	f.IsActive = true
	db.fields[f.ID] = &f
	cp := f
	return &cp
}

// AddGroup inserts an active group. A non-empty Query makes it dynamic.
func (db *DB) AddGroup(g domain.ContactGroup) *domain.ContactGroup {
	db.mu.Lock()
	defer db.mu.Unlock()

	g.ID = domain.ContactGroupID(db.id())
	g.UUID = newUUID(g.UUID)
	g.IsActive = true
	if g.CreatedOn.IsZero() {
		g.CreatedOn = db.now()
	}
	db.groups[g.ID] = &g
	return db.loadGroup(&g)
}

// AddLabel inserts an active label.
func (db *DB) AddLabel(l domain.Label) *domain.Label {
	db.mu.Lock()
	defer db.mu.Unlock()

	l.ID = domain.LabelID(db.id())
	l.UUID = newUUID(l.UUID)
	l.IsActive = true
	if l.CreatedOn.IsZero() {
		l.CreatedOn = db.now()
	}
	db.labels[l.ID] = &l
	return db.loadLabel(&l)
}

// AddChannel inserts an active channel.
func (db *DB) AddChannel(c domain.Channel) *domain.Channel {
	db.mu.Lock()
	defer db.mu.Unlock()

	c.ID = domain.ChannelID(db.id())
	c.UUID = newUUID(c.UUID)
	c.IsActive = true
	if c.CreatedOn.IsZero() {
		c.CreatedOn = db.now()
	}
	db.channels[c.ID] = &c
	cp := c
	return &cp
}

// AddChannelEvent inserts a channel event.
func (db *DB) AddChannelEvent(e domain.ChannelEvent) *domain.ChannelEvent {
	db.mu.Lock()
	defer db.mu.Unlock()

	e.ID = domain.ChannelEventID(db.id())
	if e.CreatedOn.IsZero() {
		e.CreatedOn = db.now()
	}
	db.channelEvents[e.ID] = &e
	cp := e
	return &cp
}

// AddCampaign inserts an active campaign.
func (db *DB) AddCampaign(c domain.Campaign) *domain.Campaign {
	db.mu.Lock()
	defer db.mu.Unlock()

	c.ID = domain.CampaignID(db.id())
	c.UUID = newUUID(c.UUID)
	c.IsActive = true
	if c.CreatedOn.IsZero() {
		c.CreatedOn = db.now()
	}
	db.campaigns[c.ID] = &c
	return db.loadCampaign(&c)
}

// AddCampaignEvent inserts an active campaign event.
func (db *DB) AddCampaignEvent(e domain.CampaignEvent) *domain.CampaignEvent {
	db.mu.Lock()
	defer db.mu.Unlock()

	e.ID = domain.CampaignEventID(db.id())
	e.UUID = newUUID(e.UUID)
	e.IsActive = true
	if e.CreatedOn.IsZero() {
		e.CreatedOn = db.now()
	}
	db.events[e.ID] = &e
	return db.loadEvent(&e)
}

// AddFlow inserts an active flow. FlowType defaults to a normal flow.
func (db *DB) AddFlow(f domain.Flow) *domain.Flow {
	db.mu.Lock()
	defer db.mu.Unlock()

	f.ID = domain.FlowID(db.id())
	f.UUID = newUUID(f.UUID)
	f.IsActive = true
	if f.FlowType == "" {
		f.FlowType = domain.FlowTypeNormal
	}
	if f.CreatedOn.IsZero() {
		f.CreatedOn = db.now()
	}
	db.flows[f.ID] = &f
	return db.loadFlow(&f)
}

// AddRun inserts a run.
func (db *DB) AddRun(r domain.FlowRun) *domain.FlowRun {
	db.mu.Lock()
	defer db.mu.Unlock()

	r.ID = domain.FlowRunID(db.id())
	if r.CreatedOn.IsZero() {
		r.CreatedOn = db.now()
	}
	db.runs[r.ID] = &r
	cp := r
	return &cp
}

// AddMsg inserts a message.
func (db *DB) AddMsg(m domain.Msg) *domain.Msg {
	db.mu.Lock()
	defer db.mu.Unlock()

	m.ID = domain.MsgID(db.id())
	if m.CreatedOn.IsZero() {
		m.CreatedOn = db.now()
	}
	if m.Visibility == "" {
		m.Visibility = domain.MsgVisibilityVisible
	}
	db.msgs[m.ID] = &m
	cp := m
	return &cp
}

// AddResthook inserts an active resthook.
func (db *DB) AddResthook(r domain.Resthook) *domain.Resthook {
	db.mu.Lock()
	defer db.mu.Unlock()

	r.ID = domain.ResthookID(db.id())
	r.IsActive = true
	if r.CreatedOn.IsZero() {
		r.CreatedOn = db.now()
	}
	if r.ModifiedOn.IsZero() {
		r.ModifiedOn = r.CreatedOn
	}
	db.resthooks[r.ID] = &r
	cp := r
	return &cp
}

// AddWebHookEvent inserts a resthook event.
func (db *DB) AddWebHookEvent(e domain.WebHookEvent) *domain.WebHookEvent {
	db.mu.Lock()
	defer db.mu.Unlock()

	e.ID = domain.WebHookEventID(db.id())
	if e.CreatedOn.IsZero() {
		e.CreatedOn = db.now()
	}
	db.webhookEvents[e.ID] = &e
	cp := e
	return &cp
}

// AddBoundary inserts an admin boundary.
func (db *DB) AddBoundary(b domain.AdminBoundary) *domain.AdminBoundary {
	db.mu.Lock()
	defer db.mu.Unlock()

	b.ID = domain.AdminBoundaryID(db.id())
	db.boundaries[b.ID] = &b
	cp := b
	return &cp
}
