package store

import (
	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// ListOptions filter and page list queries. Results are always ordered by
// id descending (newest first). Zero values mean "no filter"; a zero Limit
// means no limit. Not every store honours every filter: each List method
// documents the ones it uses.
type ListOptions struct {
	// Before restricts results to ids strictly lower than this cursor.
	Before int64
	Limit  int

	ID   int64
	UUID uuid.UUID
	URN  domain.URN
	Key  string
	Slug string

	// Deleted lists only inactive (soft deleted) rows instead of active ones.
	Deleted bool
}

// Stores bundles every store contract so that collaborators can be wired
// in one place.
type Stores struct {
	Orgs                OrgStore
	Users               UserStore
	Contacts            ContactStore
	ContactFields       ContactFieldStore
	Groups              GroupStore
	Labels              LabelStore
	Channels            ChannelStore
	ChannelEvents       ChannelEventStore
	Campaigns           CampaignStore
	CampaignEvents      CampaignEventStore
	Flows               FlowStore
	FlowRuns            FlowRunStore
	FlowStarts          FlowStartStore
	Broadcasts          BroadcastStore
	Msgs                MsgStore
	Resthooks           ResthookStore
	ResthookSubscribers ResthookSubscriberStore
	WebHookEvents       WebHookEventStore
	Boundaries          BoundaryStore
}
