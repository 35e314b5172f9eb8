package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

type labelStore struct{ db *DB }

// loadLabel returns a copy of l with its count of visible messages.
// Callers must hold mu.
func (db *DB) loadLabel(l *domain.Label) *domain.Label {
	cp := *l
	cp.Count = 0
	for _, m := range db.msgs {
		if m.Visibility != domain.MsgVisibilityVisible {
			continue
		}
		for _, ml := range m.Labels {
			if ml.ID == l.ID {
				cp.Count++
				break
			}
		}
	}
	return &cp
}

func (db *DB) labelByName(orgID domain.OrgID, name string) *domain.Label {
	var found *domain.Label
	for _, l := range db.labels {
		if l.OrgID == orgID && l.IsActive && sameName(l.Name, name) {
			if found == nil || l.ID < found.ID {
				found = l
			}
		}
	}
	return found
}

func (s *labelStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Label, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Label
	for _, l := range s.db.labels {
		if l.OrgID != orgID || !l.IsActive {
			continue
		}
		if opts.UUID != uuid.Nil && l.UUID != opts.UUID {
			continue
		}
		matches = append(matches, s.db.loadLabel(l))
	}
	return page(matches, func(l *domain.Label) int64 { return int64(l.ID) }, opts), nil
}

func (s *labelStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Label, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, l := range s.db.labels {
		if l.OrgID == orgID && l.IsActive && l.UUID == id {
			return s.db.loadLabel(l), nil
		}
	}
	return nil, store.ErrLabelNotFound
}

func (s *labelStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Label, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if l := s.db.labelByName(orgID, name); l != nil {
		return s.db.loadLabel(l), nil
	}
	return nil, store.ErrLabelNotFound
}

func (s *labelStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.Label, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if l := s.db.labelByName(org.ID, name); l != nil {
		return s.db.loadLabel(l), nil
	}

	l := &domain.Label{
		ID:        domain.LabelID(s.db.id()),
		UUID:      uuid.New(),
		OrgID:     org.ID,
		Name:      name,
		IsActive:  true,
		CreatedOn: s.db.now(),
	}
	s.db.labels[l.ID] = l
	return s.db.loadLabel(l), nil
}

func (s *labelStore) Rename(ctx context.Context, label *domain.Label, user *domain.User, name string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	l := s.db.labels[label.ID]
	if l == nil {
		return store.ErrLabelNotFound
	}
	if other := s.db.labelByName(l.OrgID, name); other != nil && other.ID != l.ID {
		return store.ErrNameTaken
	}
	l.Name = name
	label.Name = name
	return nil
}

func (s *labelStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.LabelID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, l := range s.db.labels {
		if l.OrgID == orgID && l.IsActive && l.ID != exclude && sameName(l.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

type broadcastStore struct{ db *DB }

func (s *broadcastStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Broadcast, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Broadcast
	for _, b := range s.db.broadcasts {
		if b.OrgID == orgID {
			cp := *b
			matches = append(matches, &cp)
		}
	}
	return page(matches, func(b *domain.Broadcast) int64 { return int64(b.ID) }, opts), nil
}

func (s *broadcastStore) GetByID(ctx context.Context, orgID domain.OrgID, id domain.BroadcastID) (*domain.Broadcast, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if b := s.db.broadcasts[id]; b != nil && b.OrgID == orgID {
		cp := *b
		return &cp, nil
	}
	return nil, store.ErrBroadcastNotFound
}

func (s *broadcastStore) Create(ctx context.Context, broadcast *domain.Broadcast) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	broadcast.ID = domain.BroadcastID(s.db.id())
	if broadcast.CreatedOn.IsZero() {
		broadcast.CreatedOn = s.db.now()
	}
	cp := *broadcast
	s.db.broadcasts[cp.ID] = &cp
	return nil
}

type msgStore struct{ db *DB }

func (s *msgStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Msg, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Msg
	for _, m := range s.db.msgs {
		if m.OrgID != orgID || m.Visibility == domain.MsgVisibilityDeleted {
			continue
		}
		cp := *m
		matches = append(matches, &cp)
	}
	return page(matches, func(m *domain.Msg) int64 { return int64(m.ID) }, opts), nil
}

func (s *msgStore) CreateOutgoing(ctx context.Context, msgs []*domain.Msg) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, m := range msgs {
		m.ID = domain.MsgID(s.db.id())
		if m.CreatedOn.IsZero() {
			m.CreatedOn = s.db.now()
		}
		m.ModifiedOn = m.CreatedOn
		m.Direction = domain.MsgDirectionOut
		cp := *m
		s.db.msgs[cp.ID] = &cp
	}
	return nil
}

// Msgs returns every stored message in creation order, for assertions.
func (db *DB) Msgs() []*domain.Msg {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]*domain.Msg, 0, len(db.msgs))
	for _, m := range db.msgs {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
