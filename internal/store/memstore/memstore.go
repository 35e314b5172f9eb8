// Package memstore is an in-memory implementation of every store contract.
// It backs handler and serializer tests and follows the same semantics as
// the PostgreSQL stores: soft deletion, org scoping, case-insensitive name
// lookups and newest-first ordering. It is safe for concurrent use.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// DB holds the in-memory state shared by all stores.
type DB struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	orgs          map[domain.OrgID]*domain.Org
	users         map[domain.UserID]*domain.User
	contacts      map[domain.ContactID]*domain.Contact
	urns          map[domain.ContactURNID]*domain.ContactURN
	memberships   map[domain.ContactID]map[domain.ContactGroupID]bool
	fields        map[domain.ContactFieldID]*domain.ContactField
	groups        map[domain.ContactGroupID]*domain.ContactGroup
	labels        map[domain.LabelID]*domain.Label
	channels      map[domain.ChannelID]*domain.Channel
	channelEvents map[domain.ChannelEventID]*domain.ChannelEvent
	campaigns     map[domain.CampaignID]*domain.Campaign
	events        map[domain.CampaignEventID]*domain.CampaignEvent
	flows         map[domain.FlowID]*domain.Flow
	runs          map[domain.FlowRunID]*domain.FlowRun
	starts        map[domain.FlowStartID]*domain.FlowStart
	broadcasts    map[domain.BroadcastID]*domain.Broadcast
	msgs          map[domain.MsgID]*domain.Msg
	resthooks     map[domain.ResthookID]*domain.Resthook
	subscribers   map[domain.ResthookSubscriberID]*domain.ResthookSubscriber
	webhookEvents map[domain.WebHookEventID]*domain.WebHookEvent
	boundaries    map[domain.AdminBoundaryID]*domain.AdminBoundary
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		now:           func() time.Time { return time.Now().UTC() },
		orgs:          map[domain.OrgID]*domain.Org{},
		users:         map[domain.UserID]*domain.User{},
		contacts:      map[domain.ContactID]*domain.Contact{},
		urns:          map[domain.ContactURNID]*domain.ContactURN{},
		memberships:   map[domain.ContactID]map[domain.ContactGroupID]bool{},
		fields:        map[domain.ContactFieldID]*domain.ContactField{},
		groups:        map[domain.ContactGroupID]*domain.ContactGroup{},
		labels:        map[domain.LabelID]*domain.Label{},
		channels:      map[domain.ChannelID]*domain.Channel{},
		channelEvents: map[domain.ChannelEventID]*domain.ChannelEvent{},
		campaigns:     map[domain.CampaignID]*domain.Campaign{},
		events:        map[domain.CampaignEventID]*domain.CampaignEvent{},
		flows:         map[domain.FlowID]*domain.Flow{},
		runs:          map[domain.FlowRunID]*domain.FlowRun{},
		starts:        map[domain.FlowStartID]*domain.FlowStart{},
		broadcasts:    map[domain.BroadcastID]*domain.Broadcast{},
		msgs:          map[domain.MsgID]*domain.Msg{},
		resthooks:     map[domain.ResthookID]*domain.Resthook{},
		subscribers:   map[domain.ResthookSubscriberID]*domain.ResthookSubscriber{},
		webhookEvents: map[domain.WebHookEventID]*domain.WebHookEvent{},
		boundaries:    map[domain.AdminBoundaryID]*domain.AdminBoundary{},
	}
}

// Stores returns every store contract backed by this DB.
func (db *DB) Stores() *store.Stores {
	return &store.Stores{
		Orgs:                &orgStore{db},
		Users:               &userStore{db},
		Contacts:            &contactStore{db},
		ContactFields:       &fieldStore{db},
		Groups:              &groupStore{db},
		Labels:              &labelStore{db},
		Channels:            &channelStore{db},
		ChannelEvents:       &channelEventStore{db},
		Campaigns:           &campaignStore{db},
		CampaignEvents:      &campaignEventStore{db},
		Flows:               &flowStore{db},
		FlowRuns:            &runStore{db},
		FlowStarts:          &startStore{db},
		Broadcasts:          &broadcastStore{db},
		Msgs:                &msgStore{db},
		Resthooks:           &resthookStore{db},
		ResthookSubscribers: &subscriberStore{db},
		WebHookEvents:       &webhookEventStore{db},
		Boundaries:          &boundaryStore{db},
	}
}

// id returns the next identifier. Callers must hold mu.
func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

// page sorts items newest first and applies the Before, ID and Limit options.
func page[T any](items []T, id func(T) int64, opts store.ListOptions) []T {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })

	out := make([]T, 0, len(items))
	for _, item := range items {
		if opts.Before > 0 && id(item) >= opts.Before {
			continue
		}
		if opts.ID > 0 && id(item) != opts.ID {
			continue
		}
		out = append(out, item)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

func newUUID(u uuid.UUID) uuid.UUID {
	if u == uuid.Nil {
		return uuid.New()
	}
	return u
}
