package serializers

import (
	"context"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
)

const (
	msgFlowOrMessage  = "Flow UUID or a message text required."
	msgCampaignChange = "Cannot change campaign for existing events"
	msgInvalidChoice  = `"%s" is not a valid choice.`
)

// CampaignResponse is the API view of a campaign.
type CampaignResponse struct {
	UUID      string  `json:"uuid"`
	Name      string  `json:"name"`
	Group     *Ref    `json:"group"`
	CreatedOn *string `json:"created_on"`
}

// CampaignRead projects c.
func CampaignRead(_ *Context, c *domain.Campaign) *CampaignResponse {
	return &CampaignResponse{
		UUID:      c.UUID.String(),
		Name:      c.Name,
		Group:     groupRef(c.Group),
		CreatedOn: formatDatetime(c.CreatedOn),
	}
}

type campaignInput struct {
	Name  *string `json:"name" validate:"required,notblank,max=255"`
	Group *string `json:"group" validate:"required"`
}

// CampaignWriteSerializer creates a campaign, or updates the name and group
// of an existing one.
type CampaignWriteSerializer struct {
	writeBase
	instance *domain.Campaign
	in       campaignInput
	group    *domain.ContactGroup
}

// NewCampaignWriteSerializer returns a serializer which creates a campaign,
// or updates instance when it is non-nil.
func NewCampaignWriteSerializer(deps Deps, rc *Context, instance *domain.Campaign) *CampaignWriteSerializer {
	return &CampaignWriteSerializer{writeBase: newWriteBase(deps, rc), instance: instance}
}

// Validate decodes body and checks the name is free in the org.
func (s *CampaignWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = campaignInput{}
	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			s.in.Name = p.str("name", false)
			s.in.Group = p.ref("group")
		},
		resolve: func(ctx context.Context, p *payload) error {
			var err error
			if s.group, err = resolve(ctx, p, "group", s.in.Group, s.lookups.group); err != nil {
				return err
			}
			if p.errs.Has("name") {
				return nil
			}

			exclude := domain.NilCampaignID
			if s.instance != nil {
				exclude = s.instance.ID
			}
			taken, err := s.deps.Stores.Campaigns.NameExists(ctx, s.rc.Org.ID, *s.in.Name, exclude)
			if err != nil {
				return fmt.Errorf("checking campaign name: %w", err)
			}
			if taken {
				p.errs.Add("name", msgNotUnique)
			}
			return nil
		},
	})
}

// Save creates or updates the campaign.
func (s *CampaignWriteSerializer) Save(ctx context.Context) (*domain.Campaign, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}

	if s.instance != nil {
		s.instance.Name = *s.in.Name
		s.instance.Group = s.group
		s.instance.ModifiedBy = s.rc.userID()
		if err := s.deps.Stores.Campaigns.Update(ctx, s.instance); err != nil {
			return nil, fmt.Errorf("updating campaign: %w", err)
		}
		return s.instance, nil
	}

	campaign := &domain.Campaign{
		OrgID:      s.rc.Org.ID,
		Name:       *s.in.Name,
		Group:      s.group,
		IsActive:   true,
		CreatedBy:  s.rc.userID(),
		ModifiedBy: s.rc.userID(),
	}
	if err := s.deps.Stores.Campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}
	s.instance = campaign
	return campaign, nil
}

// CampaignEventResponse is the API view of a campaign event.
type CampaignEventResponse struct {
	UUID         string    `json:"uuid"`
	Campaign     *Ref      `json:"campaign"`
	RelativeTo   *FieldRef `json:"relative_to"`
	Offset       int       `json:"offset"`
	Unit         *string   `json:"unit"`
	DeliveryHour int       `json:"delivery_hour"`
	Flow         *Ref      `json:"flow"`
	Message      *string   `json:"message"`
	CreatedOn    *string   `json:"created_on"`
}

// CampaignEventRead projects a campaign event. The hidden flow of a message
// event is not exposed.
func CampaignEventRead(_ *Context, e *domain.CampaignEvent) *CampaignEventResponse {
	resp := &CampaignEventResponse{
		UUID:         e.UUID.String(),
		Campaign:     campaignRef(e.Campaign),
		RelativeTo:   fieldRef(e.RelativeTo),
		Offset:       e.Offset,
		Unit:         apiCode(eventUnits, e.Unit),
		DeliveryHour: e.DeliveryHour,
		CreatedOn:    formatDatetime(e.CreatedOn),
	}
	if e.IsMessageEvent() {
		msg := e.Message
		resp.Message = &msg
	} else {
		resp.Flow = flowRef(e.Flow)
	}
	return resp
}

type campaignEventInput struct {
	Campaign     *string `json:"campaign" validate:"required"`
	Offset       *int    `json:"offset" validate:"required"`
	Unit         *string `json:"unit" validate:"required"`
	DeliveryHour *int    `json:"delivery_hour" validate:"required,gte=-1,lte=23"`
	RelativeTo   *string `json:"relative_to" validate:"required"`
	Message      *string `json:"message" validate:"omitempty,notblank,max=320"`
	Flow         *string `json:"flow"`
}

// CampaignEventWriteSerializer creates or updates campaign events. A
// message event is backed by a hidden single message flow which is created,
// updated or abandoned as the event changes type.
type CampaignEventWriteSerializer struct {
	writeBase
	instance   *domain.CampaignEvent
	in         campaignEventInput
	campaign   *domain.Campaign
	unit       domain.CampaignEventUnit
	relativeTo *domain.ContactField
	flow       *domain.Flow
}

// NewCampaignEventWriteSerializer returns a serializer for campaign events.
// A non-nil instance is updated in place.
func NewCampaignEventWriteSerializer(deps Deps, rc *Context, instance *domain.CampaignEvent) *CampaignEventWriteSerializer {
	return &CampaignEventWriteSerializer{writeBase: newWriteBase(deps, rc), instance: instance}
}

// Validate decodes body, resolves its references and requires exactly one
// of message and flow.
func (s *CampaignEventWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = campaignEventInput{}
	s.flow = nil
	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			s.in.Campaign = p.ref("campaign")
			s.in.Offset = p.integer("offset")
			s.in.Unit = p.str("unit", false)
			s.in.DeliveryHour = p.integer("delivery_hour")
			s.in.RelativeTo = p.ref("relative_to")
			s.in.Message = p.str("message", false)
			s.in.Flow = p.ref("flow")
		},
		resolve: func(ctx context.Context, p *payload) error {
			var err error
			if s.campaign, err = resolve(ctx, p, "campaign", s.in.Campaign, s.lookups.campaign); err != nil {
				return err
			}
			if s.campaign != nil && s.instance != nil && s.instance.Campaign != nil && s.instance.Campaign.ID != s.campaign.ID {
				p.errs.Add("campaign", msgCampaignChange)
			}

			if s.in.Unit != nil && !p.errs.Has("unit") {
				unit, ok := unitChoices[*s.in.Unit]
				if !ok {
					p.errs.Add("unit", fmt.Sprintf(msgInvalidChoice, *s.in.Unit))
				}
				s.unit = unit
			}

			if s.relativeTo, err = resolve(ctx, p, "relative_to", s.in.RelativeTo, s.lookups.field); err != nil {
				return err
			}
			s.flow, err = resolve(ctx, p, "flow", s.in.Flow, s.lookups.flow)
			return err
		},
		cross: func(ctx context.Context, p *payload) error {
			hasMessage := s.in.Message != nil && *s.in.Message != ""
			if hasMessage == (s.flow != nil) {
				p.errs.Add(NonFieldErrors, msgFlowOrMessage)
			}
			return nil
		},
	})
}

// Save writes the event, creating or updating its single message flow when
// the event sends a message.
func (s *CampaignEventWriteSerializer) Save(ctx context.Context) (*domain.CampaignEvent, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	stores := s.deps.Stores

	if s.instance != nil {
		event := s.instance
		if s.flow != nil {
			event.Flow = s.flow
			event.EventType = domain.CampaignEventTypeFlow
			event.Message = ""
		} else {
			message := *s.in.Message
			event.Message = message

			if event.EventType != domain.CampaignEventTypeMessage {
				flow, err := stores.Flows.CreateSingleMessage(ctx, s.rc.Org, s.rc.User, message)
				if err != nil {
					return nil, fmt.Errorf("creating message flow: %w", err)
				}
				event.Flow = flow
				event.EventType = domain.CampaignEventTypeMessage
			} else if err := stores.Flows.UpdateSingleMessage(ctx, event.Flow, message); err != nil {
				return nil, fmt.Errorf("updating message flow: %w", err)
			}
		}

		event.Offset = *s.in.Offset
		event.Unit = s.unit
		event.DeliveryHour = *s.in.DeliveryHour
		event.RelativeTo = s.relativeTo
		event.ModifiedBy = s.rc.userID()
		if err := stores.CampaignEvents.Update(ctx, event); err != nil {
			return nil, fmt.Errorf("updating campaign event: %w", err)
		}
		if err := s.updateFlowName(ctx, event); err != nil {
			return nil, err
		}
		return event, nil
	}

	event := &domain.CampaignEvent{
		Campaign:     s.campaign,
		RelativeTo:   s.relativeTo,
		Offset:       *s.in.Offset,
		Unit:         s.unit,
		DeliveryHour: *s.in.DeliveryHour,
		IsActive:     true,
		CreatedBy:    s.rc.userID(),
		ModifiedBy:   s.rc.userID(),
	}
	if s.flow != nil {
		event.EventType = domain.CampaignEventTypeFlow
		event.Flow = s.flow
	} else {
		flow, err := stores.Flows.CreateSingleMessage(ctx, s.rc.Org, s.rc.User, *s.in.Message)
		if err != nil {
			return nil, fmt.Errorf("creating message flow: %w", err)
		}
		event.EventType = domain.CampaignEventTypeMessage
		event.Flow = flow
		event.Message = *s.in.Message
	}
	if err := stores.CampaignEvents.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("creating campaign event: %w", err)
	}
	s.instance = event
	if err := s.updateFlowName(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// updateFlowName names the hidden flow of a message event after its
// campaign and id.
func (s *CampaignEventWriteSerializer) updateFlowName(ctx context.Context, event *domain.CampaignEvent) error {
	if !event.IsMessageEvent() || event.Flow == nil {
		return nil
	}
	name := event.MessageFlowName()
	if err := s.deps.Stores.Flows.Rename(ctx, event.Flow, name); err != nil {
		return fmt.Errorf("renaming message flow: %w", err)
	}
	event.Flow.Name = name
	return nil
}
