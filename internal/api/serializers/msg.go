package serializers

import (
	"context"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
)

// LabelResponse is the API view of a message label.
type LabelResponse struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LabelRead projects a label. Count is the number of visible messages.
func LabelRead(_ *Context, l *domain.Label) *LabelResponse {
	return &LabelResponse{UUID: l.UUID.String(), Name: l.Name, Count: l.Count}
}

// LabelWriteSerializer renames an existing label, or gets or creates one
// by name.
type LabelWriteSerializer struct {
	writeBase
	instance *domain.Label
	in       nameInput
}

// NewLabelWriteSerializer returns a serializer which gets or creates a label
// by name, or renames instance when it is non-nil.
func NewLabelWriteSerializer(deps Deps, rc *Context, instance *domain.Label) *LabelWriteSerializer {
	return &LabelWriteSerializer{writeBase: newWriteBase(deps, rc), instance: instance}
}

// Validate decodes body and checks the name.
func (s *LabelWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = nameInput{}
	return s.run(ctx, body, stages{
		input:  &s.in,
		decode: func(p *payload) { s.in.Name = p.str("name", false) },
		resolve: func(ctx context.Context, p *payload) error {
			if p.errs.Has("name") {
				return nil
			}
			if !domain.IsValidName(*s.in.Name, domain.MaxLabelNameLen) {
				p.errs.Add("name", msgIllegalName)
				return nil
			}
			if s.instance == nil {
				return nil
			}
			taken, err := s.deps.Stores.Labels.NameExists(ctx, s.rc.Org.ID, *s.in.Name, s.instance.ID)
			if err != nil {
				return fmt.Errorf("checking label name: %w", err)
			}
			if taken {
				p.errs.Add("name", msgNotUnique)
			}
			return nil
		},
	})
}

// Save renames the label or gets or creates it.
func (s *LabelWriteSerializer) Save(ctx context.Context) (*domain.Label, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	labels := s.deps.Stores.Labels

	if s.instance != nil {
		if err := labels.Rename(ctx, s.instance, s.rc.User, *s.in.Name); err != nil {
			return nil, fmt.Errorf("renaming label: %w", err)
		}
		s.instance.Name = *s.in.Name
		return s.instance, nil
	}

	label, err := labels.GetOrCreate(ctx, s.rc.Org, s.rc.User, *s.in.Name)
	if err != nil {
		return nil, fmt.Errorf("creating label: %w", err)
	}
	s.instance = label
	return label, nil
}

// MsgResponse is the API view of a message.
type MsgResponse struct {
	ID         domain.MsgID        `json:"id"`
	Broadcast  *domain.BroadcastID `json:"broadcast"`
	Contact    *Ref                `json:"contact"`
	URN        *string             `json:"urn"`
	Channel    *Ref                `json:"channel"`
	Direction  *string             `json:"direction"`
	Type       *string             `json:"type"`
	Status     *string             `json:"status"`
	Archived   bool                `json:"archived"`
	Visibility *string             `json:"visibility"`
	Text       string              `json:"text"`
	Labels     []Ref               `json:"labels"`
	CreatedOn  *string             `json:"created_on"`
	SentOn     *string             `json:"sent_on"`
	ModifiedOn *string             `json:"modified_on"`
}

// MsgRead projects a message. Pending messages are reported as queued since
// clients can't tell the two apart.
func MsgRead(rc *Context, m *domain.Msg) *MsgResponse {
	status := m.Status
	if status == domain.MsgStatusPending {
		status = domain.MsgStatusQueued
	}

	labels := make([]Ref, 0, len(m.Labels))
	for _, l := range m.Labels {
		labels = append(labels, Ref{UUID: l.UUID.String(), Name: l.Name})
	}

	resp := &MsgResponse{
		ID:         m.ID,
		Broadcast:  broadcastID(m.BroadcastID),
		Contact:    contactRef(m.Contact),
		Channel:    channelRef(m.Channel),
		Direction:  apiCode(msgDirections, m.Direction),
		Type:       apiCode(msgTypes, m.MsgType),
		Status:     apiCode(msgStatuses, status),
		Archived:   m.Visibility == domain.MsgVisibilityArchived,
		Visibility: apiCode(msgVisibilities, m.Visibility),
		Text:       m.Text,
		Labels:     labels,
		CreatedOn:  formatDatetime(m.CreatedOn),
		SentOn:     formatDatetimePtr(m.SentOn),
		ModifiedOn: formatDatetime(m.ModifiedOn),
	}
	if m.ContactURN != nil && !rc.isAnon() {
		urn := m.ContactURN.Identity.String()
		resp.URN = &urn
	}
	return resp
}
