package postgres

import (
	"log/slog"

	"github.com/phrazzld/temba-api/internal/store"
)

// NewStores wires every postgres store onto pool.
func NewStores(pool Pool, logger *slog.Logger) *store.Stores {
	return &store.Stores{
		Orgs:                NewPostgresOrgStore(pool, logger),
		Users:               NewPostgresUserStore(pool, logger),
		Contacts:            NewPostgresContactStore(pool, logger),
		ContactFields:       NewPostgresContactFieldStore(pool, logger),
		Groups:              NewPostgresGroupStore(pool, logger),
		Labels:              NewPostgresLabelStore(pool, logger),
		Channels:            NewPostgresChannelStore(pool, logger),
		ChannelEvents:       NewPostgresChannelEventStore(pool, logger),
		Campaigns:           NewPostgresCampaignStore(pool, logger),
		CampaignEvents:      NewPostgresCampaignEventStore(pool, logger),
		Flows:               NewPostgresFlowStore(pool, logger),
		FlowRuns:            NewPostgresFlowRunStore(pool, logger),
		FlowStarts:          NewPostgresFlowStartStore(pool, logger),
		Broadcasts:          NewPostgresBroadcastStore(pool, logger),
		Msgs:                NewPostgresMsgStore(pool, logger),
		Resthooks:           NewPostgresResthookStore(pool, logger),
		ResthookSubscribers: NewPostgresResthookSubscriberStore(pool, logger),
		WebHookEvents:       NewPostgresWebHookEventStore(pool, logger),
		Boundaries:          NewPostgresBoundaryStore(pool, logger),
	}
}
