package memstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

type orgStore struct{ db *DB }

func (s *orgStore) GetByID(ctx context.Context, id domain.OrgID) (*domain.Org, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if o := s.db.orgs[id]; o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, store.ErrOrgNotFound
}

func (s *orgStore) Create(ctx context.Context, org *domain.Org) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	org.ID = domain.OrgID(s.db.id())
	if org.CreatedOn.IsZero() {
		org.CreatedOn = s.db.now()
	}
	cp := *org
	s.db.orgs[cp.ID] = &cp
	return nil
}

type userStore struct{ db *DB }

func (s *userStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if u := s.db.users[id]; u != nil && u.IsActive {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *userStore) Create(ctx context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicate
		}
	}
	user.ID = domain.UserID(s.db.id())
	user.IsActive = true
	if user.CreatedOn.IsZero() {
		user.CreatedOn = s.db.now()
	}
	cp := *user
	s.db.users[cp.ID] = &cp
	return nil
}

type channelStore struct{ db *DB }

func (s *channelStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Channel, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Channel
	for _, c := range s.db.channels {
		if c.OrgID != orgID || !c.IsActive {
			continue
		}
		if opts.UUID != uuid.Nil && c.UUID != opts.UUID {
			continue
		}
		cp := *c
		matches = append(matches, &cp)
	}
	return page(matches, func(c *domain.Channel) int64 { return int64(c.ID) }, opts), nil
}

func (s *channelStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Channel, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, c := range s.db.channels {
		if c.OrgID == orgID && c.IsActive && c.UUID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrChannelNotFound
}

type channelEventStore struct{ db *DB }

func (s *channelEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ChannelEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.ChannelEvent
	for _, e := range s.db.channelEvents {
		if e.OrgID == orgID {
			cp := *e
			matches = append(matches, &cp)
		}
	}
	return page(matches, func(e *domain.ChannelEvent) int64 { return int64(e.ID) }, opts), nil
}

type resthookStore struct{ db *DB }

func (s *resthookStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Resthook, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.Resthook
	for _, r := range s.db.resthooks {
		if r.OrgID != orgID || !r.IsActive {
			continue
		}
		if opts.Slug != "" && r.Slug != opts.Slug {
			continue
		}
		cp := *r
		matches = append(matches, &cp)
	}
	return page(matches, func(r *domain.Resthook) int64 { return int64(r.ID) }, opts), nil
}

func (s *resthookStore) GetBySlug(ctx context.Context, orgID domain.OrgID, slug string) (*domain.Resthook, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, r := range s.db.resthooks {
		if r.OrgID == orgID && r.IsActive && r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrResthookNotFound
}

type subscriberStore struct{ db *DB }

func (s *subscriberStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ResthookSubscriber, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.ResthookSubscriber
	for _, sub := range s.db.subscribers {
		if !sub.IsActive || sub.Resthook == nil || sub.Resthook.OrgID != orgID {
			continue
		}
		if opts.Slug != "" && sub.Resthook.Slug != opts.Slug {
			continue
		}
		cp := *sub
		matches = append(matches, &cp)
	}
	return page(matches, func(sub *domain.ResthookSubscriber) int64 { return int64(sub.ID) }, opts), nil
}

func (s *subscriberStore) Exists(ctx context.Context, resthookID domain.ResthookID, targetURL string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, sub := range s.db.subscribers {
		if sub.IsActive && sub.Resthook != nil && sub.Resthook.ID == resthookID && sub.TargetURL == targetURL {
			return true, nil
		}
	}
	return false, nil
}

func (s *subscriberStore) Create(ctx context.Context, subscriber *domain.ResthookSubscriber) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	subscriber.ID = domain.ResthookSubscriberID(s.db.id())
	subscriber.IsActive = true
	subscriber.CreatedOn = s.db.now()
	cp := *subscriber
	s.db.subscribers[cp.ID] = &cp
	return nil
}

type webhookEventStore struct{ db *DB }

func (s *webhookEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.WebHookEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matches []*domain.WebHookEvent
	for _, e := range s.db.webhookEvents {
		if e.OrgID != orgID || e.Resthook == nil {
			continue
		}
		if opts.Slug != "" && e.Resthook.Slug != opts.Slug {
			continue
		}
		cp := *e
		matches = append(matches, &cp)
	}
	return page(matches, func(e *domain.WebHookEvent) int64 { return int64(e.ID) }, opts), nil
}

type boundaryStore struct{ db *DB }

// List returns every boundary; the in-memory store has a single country.
func (s *boundaryStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.AdminBoundary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	matches := make([]*domain.AdminBoundary, 0, len(s.db.boundaries))
	for _, b := range s.db.boundaries {
		cp := *b
		matches = append(matches, &cp)
	}
	return page(matches, func(b *domain.AdminBoundary) int64 { return int64(b.ID) }, opts), nil
}
