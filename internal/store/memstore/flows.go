package memstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// loadFlow returns a copy of f with run counts. Callers must hold mu.
func (db *DB) loadFlow(f *domain.Flow) *domain.Flow {
	cp := *f
	cp.Runs = domain.RunCounts{}
	for _, r := range db.runs {
		if r.Flow == nil || r.Flow.ID != f.ID {
			continue
		}
		switch r.ExitType {
		case domain.ExitTypeCompleted:
			cp.Runs.Completed++
		case domain.ExitTypeInterrupted:
			cp.Runs.Interrupted++
		case domain.ExitTypeExpired:
			cp.Runs.Expired++
		}
	}
	return &cp
}

func (db *DB) flowRef(f *domain.Flow) *domain.Flow {
	if f == nil {
		return nil
	}
	if stored := db.flows[f.ID]; stored != nil {
		return db.loadFlow(stored)
	}
	return f
}

type flowStore struct{ db *DB }

func (s *flowStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Flow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Flow
	for _, f := range s.db.flows {
		if f.OrgID != orgID || !f.IsActive || f.FlowType == domain.FlowTypeMessage {
			continue
		}
		if opts.UUID != uuid.Nil && f.UUID != opts.UUID {
			continue
		}
		matches = append(matches, s.db.loadFlow(f))
	}
	return page(matches, func(f *domain.Flow) int64 { return int64(f.ID) }, opts), nil
}

func (s *flowStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Flow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, f := range s.db.flows {
		if f.OrgID == orgID && f.IsActive && f.UUID == id {
			return s.db.loadFlow(f), nil
		}
	}
	return nil, store.ErrFlowNotFound
}

func (s *flowStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Flow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var found *domain.Flow
	for _, f := range s.db.flows {
		if f.OrgID == orgID && f.IsActive && f.FlowType != domain.FlowTypeMessage && sameName(f.Name, name) {
			if found == nil || f.ID < found.ID {
				found = f
			}
		}
	}
	if found == nil {
		return nil, store.ErrFlowNotFound
	}
	return s.db.loadFlow(found), nil
}

func (s *flowStore) CreateSingleMessage(ctx context.Context, org *domain.Org, user *domain.User, message string) (*domain.Flow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	f := &domain.Flow{
		ID:           domain.FlowID(s.db.id()),
		UUID:         uuid.New(),
		OrgID:        org.ID,
		Name:         "Single Message",
		FlowType:     domain.FlowTypeMessage,
		IsActive:     true,
		BaseLanguage: org.PrimaryLanguage,
		Definition:   domain.SingleMessageDefinition(org.PrimaryLanguage, message),
		CreatedBy:    user.ID,
		CreatedOn:    now,
		ModifiedOn:   now,
	}
	s.db.flows[f.ID] = f
	return s.db.loadFlow(f), nil
}

func (s *flowStore) UpdateSingleMessage(ctx context.Context, flow *domain.Flow, message string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	f := s.db.flows[flow.ID]
	if f == nil {
		return store.ErrFlowNotFound
	}
	f.Definition = domain.SingleMessageDefinition(f.BaseLanguage, message)
	f.ModifiedOn = s.db.now()
	flow.Definition = f.Definition
	return nil
}

func (s *flowStore) Rename(ctx context.Context, flow *domain.Flow, name string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	f := s.db.flows[flow.ID]
	if f == nil {
		return store.ErrFlowNotFound
	}
	f.Name = name
	flow.Name = name
	return nil
}

type runStore struct{ db *DB }

func (s *runStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.FlowRun, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.FlowRun
	for _, r := range s.db.runs {
		if r.OrgID != orgID {
			continue
		}
		cp := *r
		cp.Flow = s.db.flowRef(r.Flow)
		if r.Contact != nil {
			cp.Contact = s.db.contactRef(r.Contact.ID)
		}
		matches = append(matches, &cp)
	}
	return page(matches, func(r *domain.FlowRun) int64 { return int64(r.ID) }, opts), nil
}

func (s *runStore) Create(ctx context.Context, run *domain.FlowRun) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	run.ID = domain.FlowRunID(s.db.id())
	if run.CreatedOn.IsZero() {
		run.CreatedOn = s.db.now()
	}
	if run.ModifiedOn.IsZero() {
		run.ModifiedOn = run.CreatedOn
	}
	cp := *run
	s.db.runs[cp.ID] = &cp
	return nil
}

func (s *runStore) HasParticipated(ctx context.Context, flowID domain.FlowID, contactID domain.ContactID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, r := range s.db.runs {
		if r.Flow != nil && r.Flow.ID == flowID && r.Contact != nil && r.Contact.ID == contactID {
			return true, nil
		}
	}
	return false, nil
}

type startStore struct{ db *DB }

func (s *startStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.FlowStart, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.FlowStart
	for _, st := range s.db.starts {
		if st.OrgID != orgID {
			continue
		}
		cp := *st
		cp.Flow = s.db.flowRef(st.Flow)
		matches = append(matches, &cp)
	}
	return page(matches, func(st *domain.FlowStart) int64 { return int64(st.ID) }, opts), nil
}

func (s *startStore) GetByID(ctx context.Context, orgID domain.OrgID, id domain.FlowStartID) (*domain.FlowStart, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st := s.db.starts[id]
	if st == nil || st.OrgID != orgID {
		return nil, store.ErrFlowStartNotFound
	}
	cp := *st
	cp.Flow = s.db.flowRef(st.Flow)
	return &cp, nil
}

func (s *startStore) Create(ctx context.Context, start *domain.FlowStart) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	start.ID = domain.FlowStartID(s.db.id())
	start.UUID = newUUID(start.UUID)
	if start.Status == "" {
		start.Status = domain.FlowStartStatusPending
	}
	start.CreatedOn = now
	start.ModifiedOn = now
	cp := *start
	s.db.starts[cp.ID] = &cp
	return nil
}

func (s *startStore) UpdateStatus(ctx context.Context, id domain.FlowStartID, status domain.FlowStartStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st := s.db.starts[id]
	if st == nil {
		return store.ErrFlowStartNotFound
	}
	st.Status = status
	st.ModifiedOn = s.db.now()
	return nil
}

type campaignStore struct{ db *DB }

// loadCampaign returns a copy of c with a fresh group. Callers must hold mu.
func (db *DB) loadCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	if c.Group != nil {
		if g := db.groups[c.Group.ID]; g != nil {
			cp.Group = db.loadGroup(g)
		}
	}
	return &cp
}

func (s *campaignStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Campaign, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Campaign
	for _, c := range s.db.campaigns {
		if c.OrgID != orgID || !c.IsActive {
			continue
		}
		if opts.UUID != uuid.Nil && c.UUID != opts.UUID {
			continue
		}
		matches = append(matches, s.db.loadCampaign(c))
	}
	return page(matches, func(c *domain.Campaign) int64 { return int64(c.ID) }, opts), nil
}

func (s *campaignStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Campaign, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, c := range s.db.campaigns {
		if c.OrgID == orgID && c.IsActive && c.UUID == id {
			return s.db.loadCampaign(c), nil
		}
	}
	return nil, store.ErrCampaignNotFound
}

func (s *campaignStore) Create(ctx context.Context, campaign *domain.Campaign) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.campaignNameTaken(campaign.OrgID, campaign.Name, domain.NilCampaignID) {
		return store.ErrNameTaken
	}
	now := s.db.now()
	campaign.ID = domain.CampaignID(s.db.id())
	campaign.UUID = newUUID(campaign.UUID)
	campaign.IsActive = true
	campaign.CreatedOn = now
	campaign.ModifiedOn = now
	cp := *campaign
	s.db.campaigns[cp.ID] = &cp
	return nil
}

func (s *campaignStore) Update(ctx context.Context, campaign *domain.Campaign) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.db.campaigns[campaign.ID]
	if c == nil {
		return store.ErrCampaignNotFound
	}
	if s.db.campaignNameTaken(c.OrgID, campaign.Name, c.ID) {
		return store.ErrNameTaken
	}
	c.Name = campaign.Name
	c.Group = campaign.Group
	c.ModifiedBy = campaign.ModifiedBy
	c.ModifiedOn = s.db.now()
	campaign.ModifiedOn = c.ModifiedOn
	return nil
}

func (s *campaignStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.CampaignID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.db.campaignNameTaken(orgID, name, exclude), nil
}

// campaignNameTaken reports whether another active campaign of org is named
// name. Callers must hold mu.
func (db *DB) campaignNameTaken(orgID domain.OrgID, name string, exclude domain.CampaignID) bool {
	for _, c := range db.campaigns {
		if c.OrgID == orgID && c.IsActive && c.ID != exclude && sameName(c.Name, name) {
			return true
		}
	}
	return false
}

type campaignEventStore struct{ db *DB }

// loadEvent returns a copy of e with fresh campaign and flow. Callers must
// hold mu.
func (db *DB) loadEvent(e *domain.CampaignEvent) *domain.CampaignEvent {
	cp := *e
	if e.Campaign != nil {
		if c := db.campaigns[e.Campaign.ID]; c != nil {
			cp.Campaign = db.loadCampaign(c)
		}
	}
	cp.Flow = db.flowRef(e.Flow)
	if e.RelativeTo != nil {
		if f := db.fields[e.RelativeTo.ID]; f != nil {
			field := *f
			cp.RelativeTo = &field
		}
	}
	return &cp
}

func (s *campaignEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.CampaignEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.CampaignEvent
	for _, e := range s.db.events {
		if !e.IsActive || e.Campaign == nil || e.Campaign.OrgID != orgID {
			continue
		}
		if opts.UUID != uuid.Nil && e.UUID != opts.UUID {
			continue
		}
		matches = append(matches, s.db.loadEvent(e))
	}
	return page(matches, func(e *domain.CampaignEvent) int64 { return int64(e.ID) }, opts), nil
}

func (s *campaignEventStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.CampaignEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, e := range s.db.events {
		if e.IsActive && e.UUID == id && e.Campaign != nil && e.Campaign.OrgID == orgID {
			return s.db.loadEvent(e), nil
		}
	}
	return nil, store.ErrEventNotFound
}

func (s *campaignEventStore) Create(ctx context.Context, event *domain.CampaignEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	event.ID = domain.CampaignEventID(s.db.id())
	event.UUID = newUUID(event.UUID)
	event.IsActive = true
	event.CreatedOn = now
	event.ModifiedOn = now
	cp := *event
	s.db.events[cp.ID] = &cp
	return nil
}

func (s *campaignEventStore) Update(ctx context.Context, event *domain.CampaignEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	e := s.db.events[event.ID]
	if e == nil {
		return store.ErrEventNotFound
	}
	event.ModifiedOn = s.db.now()
	cp := *event
	s.db.events[cp.ID] = &cp
	return nil
}
