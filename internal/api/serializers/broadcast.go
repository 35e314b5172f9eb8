package serializers

import (
	"context"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
)

const (
	msgOrgSuspended = "Sorry, your account is currently suspended. To enable sending messages, please contact support."
	msgNoRecipients = "Must provide either urns, contacts or groups"
)

// BroadcastResponse is the API view of a broadcast.
type BroadcastResponse struct {
	ID        domain.BroadcastID `json:"id"`
	URNs      []string           `json:"urns"`
	Contacts  []Ref              `json:"contacts"`
	Groups    []Ref              `json:"groups"`
	Text      string             `json:"text"`
	CreatedOn *string            `json:"created_on"`
}

// BroadcastRead projects a broadcast. URNs are null for anonymous orgs.
func BroadcastRead(rc *Context, b *domain.Broadcast) *BroadcastResponse {
	resp := &BroadcastResponse{
		ID:        b.ID,
		Contacts:  contactRefs(b.Contacts),
		Groups:    groupRefs(b.Groups),
		Text:      b.Text,
		CreatedOn: formatDatetime(b.CreatedOn),
	}
	if !rc.isAnon() {
		resp.URNs = make([]string, 0, len(b.URNs))
		for _, u := range b.URNs {
			resp.URNs = append(resp.URNs, u.Identity.String())
		}
	}
	return resp
}

type broadcastInput struct {
	Text     *string      `json:"text" validate:"required,notblank,max=480"`
	URNs     []domain.URN `json:"urns"`
	Contacts []string     `json:"contacts"`
	Groups   []string     `json:"groups"`
	Channel  *string      `json:"channel"`
}

// BroadcastWriteSerializer creates broadcasts. Sending happens in a
// background task requested once the broadcast is saved.
type BroadcastWriteSerializer struct {
	writeBase
	in       broadcastInput
	contacts []*domain.Contact
	groups   []*domain.ContactGroup
	channel  *domain.Channel
}

// NewBroadcastWriteSerializer returns a serializer which creates broadcasts.
func NewBroadcastWriteSerializer(deps Deps, rc *Context) *BroadcastWriteSerializer {
	return &BroadcastWriteSerializer{writeBase: newWriteBase(deps, rc)}
}

// Validate decodes body and resolves its recipients.
func (s *BroadcastWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = broadcastInput{}
	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			s.in.Text = p.str("text", false)
			s.in.URNs = p.urns("urns")
			s.in.Contacts = p.refs("contacts")
			s.in.Groups = p.refs("groups")
			s.in.Channel = p.ref("channel")
		},
		resolve: func(ctx context.Context, p *payload) error {
			var err error
			if s.contacts, err = resolveAll(ctx, p, "contacts", s.in.Contacts, s.lookups.contact); err != nil {
				return err
			}
			if s.groups, err = resolveAll(ctx, p, "groups", s.in.Groups, s.lookups.group); err != nil {
				return err
			}
			s.channel, err = resolve(ctx, p, "channel", s.in.Channel, s.lookups.channel)
			return err
		},
		cross: func(ctx context.Context, p *payload) error {
			if s.rc.Org != nil && s.rc.Org.IsSuspended {
				p.errs.Add(NonFieldErrors, msgOrgSuspended)
				return nil
			}
			if len(s.in.URNs) == 0 && len(s.contacts) == 0 && len(s.groups) == 0 {
				p.errs.Add(NonFieldErrors, msgNoRecipients)
			}
			return nil
		},
	})
}

// Save creates contacts for URNs which have none, saves the broadcast and
// requests that it be sent.
func (s *BroadcastWriteSerializer) Save(ctx context.Context) (*domain.Broadcast, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	stores := s.deps.Stores

	urns := make([]*domain.ContactURN, 0, len(s.in.URNs))
	for _, urn := range s.in.URNs {
		contact, err := stores.Contacts.GetOrCreate(ctx, s.rc.Org, s.rc.User, "", []domain.URN{urn}, "")
		if err != nil {
			return nil, fmt.Errorf("getting contact for %s: %w", urn, err)
		}
		cu := contact.URN(urn)
		if cu == nil {
			return nil, fmt.Errorf("contact %s has no urn %s", contact.UUID, urn)
		}
		urns = append(urns, cu)
	}

	broadcast := &domain.Broadcast{
		OrgID:        s.rc.Org.ID,
		Text:         *s.in.Text,
		BaseLanguage: s.rc.Org.PrimaryLanguage,
		Channel:      s.channel,
		URNs:         urns,
		Contacts:     s.contacts,
		Groups:       s.groups,
		CreatedBy:    s.rc.userID(),
	}
	if err := stores.Broadcasts.Create(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("creating broadcast: %w", err)
	}

	event, err := events.NewSendBroadcastEvent(broadcast.OrgID, broadcast.ID)
	if err := s.emit(ctx, event, err); err != nil {
		return nil, err
	}
	return broadcast, nil
}
