package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/api/serializers"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

type resource struct {
	name     string
	list     http.HandlerFunc
	writable bool
}

// resources lists every endpoint in the order they're documented.
func (h *Handler) resources() []resource {
	s := h.stores
	return []resource{
		{name: "boundaries", list: listHandler(h, lister[*domain.AdminBoundary, *serializers.BoundaryResponse]{
			list: s.Boundaries.List,
			read: serializers.BoundaryRead,
			id:   func(b *domain.AdminBoundary) int64 { return int64(b.ID) },
			prepare: func(_ context.Context, r *http.Request, rc *serializers.Context) error {
				rc.IncludeGeometry = r.URL.Query().Get("geometry") == "true"
				return nil
			},
		})},
		{name: "broadcasts", writable: true, list: listHandler(h, lister[*domain.Broadcast, *serializers.BroadcastResponse]{
			accepts: filterID,
			list:    s.Broadcasts.List,
			read:    serializers.BroadcastRead,
			id:      func(b *domain.Broadcast) int64 { return int64(b.ID) },
		})},
		{name: "campaigns", writable: true, list: listHandler(h, lister[*domain.Campaign, *serializers.CampaignResponse]{
			accepts: filterUUID,
			list:    s.Campaigns.List,
			read:    serializers.CampaignRead,
			id:      func(c *domain.Campaign) int64 { return int64(c.ID) },
		})},
		{name: "campaign_events", writable: true, list: listHandler(h, lister[*domain.CampaignEvent, *serializers.CampaignEventResponse]{
			accepts: filterUUID,
			list:    s.CampaignEvents.List,
			read:    serializers.CampaignEventRead,
			id:      func(e *domain.CampaignEvent) int64 { return int64(e.ID) },
		})},
		{name: "channels", list: listHandler(h, lister[*domain.Channel, *serializers.ChannelResponse]{
			accepts: filterUUID,
			list:    s.Channels.List,
			read:    serializers.ChannelRead,
			id:      func(c *domain.Channel) int64 { return int64(c.ID) },
		})},
		{name: "channel_events", list: listHandler(h, lister[*domain.ChannelEvent, *serializers.ChannelEventResponse]{
			accepts: filterID,
			list:    s.ChannelEvents.List,
			read:    serializers.ChannelEventRead,
			id:      func(e *domain.ChannelEvent) int64 { return int64(e.ID) },
		})},
		{name: "contacts", writable: true, list: listHandler(h, lister[*domain.Contact, *serializers.ContactResponse]{
			accepts: filterUUID | filterURN | filterDeleted,
			list:    s.Contacts.List,
			read:    serializers.ContactRead,
			id:      func(c *domain.Contact) int64 { return int64(c.ID) },
			prepare: func(ctx context.Context, _ *http.Request, rc *serializers.Context) error {
				return h.loadContactFields(ctx, rc)
			},
		})},
		{name: "fields", list: listHandler(h, lister[*domain.ContactField, *serializers.ContactFieldResponse]{
			accepts: filterKey,
			list:    s.ContactFields.List,
			read:    serializers.ContactFieldRead,
			id:      func(f *domain.ContactField) int64 { return int64(f.ID) },
		})},
		{name: "flow_starts", writable: true, list: listHandler(h, lister[*domain.FlowStart, *serializers.FlowStartResponse]{
			accepts: filterID,
			list:    s.FlowStarts.List,
			read:    serializers.FlowStartRead,
			id:      func(fs *domain.FlowStart) int64 { return int64(fs.ID) },
		})},
		{name: "flows", list: listHandler(h, lister[*domain.Flow, *serializers.FlowResponse]{
			accepts: filterUUID,
			list:    s.Flows.List,
			read:    serializers.FlowRead,
			id:      func(f *domain.Flow) int64 { return int64(f.ID) },
		})},
		{name: "groups", writable: true, list: listHandler(h, lister[*domain.ContactGroup, *serializers.GroupResponse]{
			accepts: filterUUID,
			list:    s.Groups.List,
			read:    serializers.GroupRead,
			id:      func(g *domain.ContactGroup) int64 { return int64(g.ID) },
		})},
		{name: "labels", writable: true, list: listHandler(h, lister[*domain.Label, *serializers.LabelResponse]{
			accepts: filterUUID,
			list:    s.Labels.List,
			read:    serializers.LabelRead,
			id:      func(l *domain.Label) int64 { return int64(l.ID) },
		})},
		{name: "messages", list: listHandler(h, lister[*domain.Msg, *serializers.MsgResponse]{
			accepts: filterID,
			list:    s.Msgs.List,
			read:    serializers.MsgRead,
			id:      func(m *domain.Msg) int64 { return int64(m.ID) },
		})},
		{name: "resthooks", list: listHandler(h, lister[*domain.Resthook, *serializers.ResthookResponse]{
			accepts: filterSlug,
			list:    s.Resthooks.List,
			read:    serializers.ResthookRead,
			id:      func(rh *domain.Resthook) int64 { return int64(rh.ID) },
		})},
		{name: "resthook_subscribers", writable: true, list: listHandler(h, lister[*domain.ResthookSubscriber, *serializers.ResthookSubscriberResponse]{
			accepts: filterID | filterSlug,
			list:    s.ResthookSubscribers.List,
			read:    serializers.ResthookSubscriberRead,
			id:      func(rs *domain.ResthookSubscriber) int64 { return int64(rs.ID) },
		})},
		{name: "resthook_events", list: listHandler(h, lister[*domain.WebHookEvent, *serializers.WebHookEventResponse]{
			accepts: filterSlug,
			list:    s.WebHookEvents.List,
			read:    serializers.WebHookEventRead,
			id:      func(e *domain.WebHookEvent) int64 { return int64(e.ID) },
		})},
		{name: "runs", list: listHandler(h, lister[*domain.FlowRun, *serializers.FlowRunResponse]{
			accepts: filterID,
			list:    s.FlowRuns.List,
			read:    serializers.FlowRunRead,
			id:      func(r *domain.FlowRun) int64 { return int64(r.ID) },
		})},
	}
}

// writeRoute returns the POST handler of the named resource. Asking for a
// resource with no write serializer is a programming error.
func (h *Handler) writeRoute(name string) http.HandlerFunc {
	s := h.stores
	switch name {
	case "broadcasts":
		return writeHandler(h, writer[*domain.Broadcast, *serializers.BroadcastResponse]{
			serializer: func(deps serializers.Deps, rc *serializers.Context, _ *domain.Broadcast) writeSerializer[*domain.Broadcast] {
				return serializers.NewBroadcastWriteSerializer(deps, rc)
			},
			read: serializers.BroadcastRead,
		})
	case "campaigns":
		return writeHandler(h, writer[*domain.Campaign, *serializers.CampaignResponse]{
			find: findByUUID(s.Campaigns.GetByUUID, store.ErrCampaignNotFound),
			serializer: func(deps serializers.Deps, rc *serializers.Context, instance *domain.Campaign) writeSerializer[*domain.Campaign] {
				return serializers.NewCampaignWriteSerializer(deps, rc, instance)
			},
			read: serializers.CampaignRead,
		})
	case "campaign_events":
		return writeHandler(h, writer[*domain.CampaignEvent, *serializers.CampaignEventResponse]{
			find: findByUUID(s.CampaignEvents.GetByUUID, store.ErrEventNotFound),
			serializer: func(deps serializers.Deps, rc *serializers.Context, instance *domain.CampaignEvent) writeSerializer[*domain.CampaignEvent] {
				return serializers.NewCampaignEventWriteSerializer(deps, rc, instance)
			},
			read: serializers.CampaignEventRead,
		})
	case "contacts":
		return writeHandler(h, writer[*domain.Contact, *serializers.ContactResponse]{
			find: h.findContact,
			serializer: func(deps serializers.Deps, rc *serializers.Context, instance *domain.Contact) writeSerializer[*domain.Contact] {
				return serializers.NewContactWriteSerializer(deps, rc, instance)
			},
			read:    serializers.ContactRead,
			prepare: h.loadContactFields,
		})
	case "flow_starts":
		return writeHandler(h, writer[*domain.FlowStart, *serializers.FlowStartResponse]{
			serializer: func(deps serializers.Deps, rc *serializers.Context, _ *domain.FlowStart) writeSerializer[*domain.FlowStart] {
				return serializers.NewFlowStartWriteSerializer(deps, rc)
			},
			read: serializers.FlowStartRead,
		})
	case "groups":
		return writeHandler(h, writer[*domain.ContactGroup, *serializers.GroupResponse]{
			find: findByUUID(s.Groups.GetByUUID, store.ErrGroupNotFound),
			serializer: func(deps serializers.Deps, rc *serializers.Context, instance *domain.ContactGroup) writeSerializer[*domain.ContactGroup] {
				return serializers.NewGroupWriteSerializer(deps, rc, instance)
			},
			read: serializers.GroupRead,
		})
	case "labels":
		return writeHandler(h, writer[*domain.Label, *serializers.LabelResponse]{
			find: findByUUID(s.Labels.GetByUUID, store.ErrLabelNotFound),
			serializer: func(deps serializers.Deps, rc *serializers.Context, instance *domain.Label) writeSerializer[*domain.Label] {
				return serializers.NewLabelWriteSerializer(deps, rc, instance)
			},
			read: serializers.LabelRead,
		})
	case "resthook_subscribers":
		return writeHandler(h, writer[*domain.ResthookSubscriber, *serializers.ResthookSubscriberResponse]{
			serializer: func(deps serializers.Deps, rc *serializers.Context, _ *domain.ResthookSubscriber) writeSerializer[*domain.ResthookSubscriber] {
				return serializers.NewResthookSubscriberWriteSerializer(deps, rc)
			},
			read: serializers.ResthookSubscriberRead,
		})
	default:
		panic(fmt.Errorf("%w: %s", serializers.ErrReadOnlyResource, name))
	}
}

// findByUUID looks up the instance named by the uuid query parameter.
func findByUUID[M any](
	get func(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (M, error),
	notFound error,
) func(ctx context.Context, rc *serializers.Context) (M, bool, error) {
	return func(ctx context.Context, rc *serializers.Context) (M, bool, error) {
		var zero M
		value, ok := rc.LookupValues[serializers.LookupUUID]
		if !ok {
			return zero, false, nil
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return zero, false, fmt.Errorf("%w: %q", notFound, value)
		}
		obj, err := get(ctx, rc.Org.ID, id)
		if err != nil {
			return zero, false, err
		}
		return obj, true, nil
	}
}

// findContact looks a contact up by uuid or urn. An unknown urn isn't an
// error: the contact is created with it.
func (h *Handler) findContact(ctx context.Context, rc *serializers.Context) (*domain.Contact, bool, error) {
	if _, ok := rc.LookupValues[serializers.LookupUUID]; ok {
		return findByUUID(h.stores.Contacts.GetByUUID, store.ErrContactNotFound)(ctx, rc)
	}
	value, ok := rc.LookupValues[serializers.LookupURN]
	if !ok {
		return nil, false, nil
	}
	urn, err := domain.ParseURN(value)
	if err != nil {
		// the serializer reports the bad urn
		return nil, false, nil
	}
	contact, err := h.stores.Contacts.GetByURN(ctx, rc.Org.ID, urn)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return contact, true, nil
}

func (h *Handler) loadContactFields(ctx context.Context, rc *serializers.Context) error {
	fields, err := h.stores.ContactFields.List(ctx, rc.Org.ID, store.ListOptions{})
	if err != nil {
		return fmt.Errorf("loading contact fields: %w", err)
	}
	rc.ContactFields = fields
	return nil
}
