package serializers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
)

const msgNoStartTargets = "Must specify at least one group, contact or URN"

// FlowResponse is the API view of a flow.
type FlowResponse struct {
	UUID      string           `json:"uuid"`
	Name      string           `json:"name"`
	Archived  bool             `json:"archived"`
	Labels    []Ref            `json:"labels"`
	Expires   int              `json:"expires"`
	Runs      domain.RunCounts `json:"runs"`
	CreatedOn *string          `json:"created_on"`
}

// FlowRead projects f.
func FlowRead(_ *Context, f *domain.Flow) *FlowResponse {
	labels := make([]Ref, 0, len(f.Labels))
	for _, l := range f.Labels {
		labels = append(labels, Ref{UUID: l.UUID.String(), Name: l.Name})
	}
	return &FlowResponse{
		UUID:      f.UUID.String(),
		Name:      f.Name,
		Archived:  f.IsArchived,
		Labels:    labels,
		Expires:   f.ExpiresAfterMinutes,
		Runs:      f.Runs,
		CreatedOn: formatDatetime(f.CreatedOn),
	}
}

// StepMessage is a message sent or received at a step. Messages of purged
// broadcasts have no id.
type StepMessage struct {
	ID        *domain.MsgID       `json:"id"`
	Broadcast *domain.BroadcastID `json:"broadcast"`
	Text      string              `json:"text"`
}

// StepResponse is one step of a run.
type StepResponse struct {
	Type      *string       `json:"type"`
	Node      string        `json:"node"`
	ArrivedOn *string       `json:"arrived_on"`
	LeftOn    *string       `json:"left_on"`
	Messages  []StepMessage `json:"messages"`
	Text      string        `json:"text"`
	Value     *string       `json:"value"`
	Category  *string       `json:"category"`
}

// FlowRunResponse is the API view of a flow run.
type FlowRunResponse struct {
	ID         domain.FlowRunID `json:"id"`
	Flow       *Ref             `json:"flow"`
	Contact    *Ref             `json:"contact"`
	Responded  bool             `json:"responded"`
	Steps      []StepResponse   `json:"steps"`
	CreatedOn  *string          `json:"created_on"`
	ModifiedOn *string          `json:"modified_on"`
	ExitedOn   *string          `json:"exited_on"`
	ExitType   *string          `json:"exit_type"`
}

// FlowRunRead projects a run with its steps in order.
func FlowRunRead(rc *Context, r *domain.FlowRun) *FlowRunResponse {
	steps := make([]StepResponse, 0, len(r.Steps))
	for _, step := range r.Steps {
		value := step.RuleValue
		if step.RuleDecimalValue != nil {
			value = step.RuleDecimalValue
		}
		steps = append(steps, StepResponse{
			Type:      apiCode(stepTypes, step.StepType),
			Node:      step.StepUUID,
			ArrivedOn: formatDatetime(step.ArrivedOn),
			LeftOn:    formatDatetimePtr(step.LeftOn),
			Messages:  stepMessages(rc, r, step),
			Text:      r.StepText(step, rc.Org),
			Value:     value,
			Category:  step.RuleCategory,
		})
	}

	return &FlowRunResponse{
		ID:         r.ID,
		Flow:       flowRef(r.Flow),
		Contact:    contactRef(r.Contact),
		Responded:  r.Responded,
		Steps:      steps,
		CreatedOn:  formatDatetime(r.CreatedOn),
		ModifiedOn: formatDatetime(r.ModifiedOn),
		ExitedOn:   formatDatetimePtr(r.ExitedOn),
		ExitType:   apiCode(exitTypes, r.ExitType),
	}
}

func stepMessages(rc *Context, r *domain.FlowRun, step *domain.FlowStep) []StepMessage {
	msgs := make([]StepMessage, 0, len(step.Messages))
	for _, m := range step.Messages {
		id := m.ID
		msgs = append(msgs, StepMessage{ID: &id, Broadcast: broadcastID(m.BroadcastID), Text: m.Text})
	}

	baseLanguage := ""
	if r.Flow != nil {
		baseLanguage = r.Flow.BaseLanguage
	}
	for _, b := range step.Broadcasts {
		if !b.Purged {
			continue
		}
		msgs = append(msgs, StepMessage{
			Broadcast: broadcastID(b.ID),
			Text:      b.TranslatedText(r.Contact, baseLanguage, rc.Org),
		})
	}
	return msgs
}

func broadcastID(id domain.BroadcastID) *domain.BroadcastID {
	if id == domain.NilBroadcastID {
		return nil
	}
	return &id
}

// FlowStartResponse is the API view of a flow start.
type FlowStartResponse struct {
	ID                  domain.FlowStartID `json:"id"`
	Flow                *Ref               `json:"flow"`
	Status              *string            `json:"status"`
	Groups              []Ref              `json:"groups"`
	Contacts            []Ref              `json:"contacts"`
	RestartParticipants bool               `json:"restart_participants"`
	Extra               any                `json:"extra"`
	CreatedOn           *string            `json:"created_on"`
	ModifiedOn          *string            `json:"modified_on"`
}

// FlowStartRead projects s.
func FlowStartRead(_ *Context, s *domain.FlowStart) *FlowStartResponse {
	resp := &FlowStartResponse{
		ID:                  s.ID,
		Flow:                flowRef(s.Flow),
		Status:              apiCode(flowStartStatuses, s.Status),
		Groups:              groupRefs(s.Groups),
		Contacts:            contactRefs(s.Contacts),
		RestartParticipants: s.RestartParticipants,
		CreatedOn:           formatDatetime(s.CreatedOn),
		ModifiedOn:          formatDatetime(s.ModifiedOn),
	}
	if !isEmptyValue(s.Extra) {
		resp.Extra = s.Extra
	}
	return resp
}

// isEmptyValue reports whether a decoded JSON value is null, false, zero or
// an empty string, list or object.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case float64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

type flowStartInput struct {
	Flow                *string      `json:"flow" validate:"required"`
	Contacts            []string     `json:"contacts"`
	Groups              []string     `json:"groups"`
	URNs                []domain.URN `json:"urns"`
	RestartParticipants *bool        `json:"restart_participants"`
	Extra               any          `json:"extra"`
}

// FlowStartWriteSerializer creates flow starts. The start itself is
// executed by a background task requested once it's saved.
type FlowStartWriteSerializer struct {
	writeBase
	in       flowStartInput
	flow     *domain.Flow
	contacts []*domain.Contact
	groups   []*domain.ContactGroup
}

// NewFlowStartWriteSerializer returns a serializer which creates flow starts.
func NewFlowStartWriteSerializer(deps Deps, rc *Context) *FlowStartWriteSerializer {
	return &FlowStartWriteSerializer{writeBase: newWriteBase(deps, rc)}
}

// Validate decodes body and requires at least one recipient.
func (s *FlowStartWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = flowStartInput{}
	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			s.in.Flow = p.ref("flow")
			s.in.Contacts = p.refs("contacts")
			s.in.Groups = p.refs("groups")
			s.in.URNs = p.urns("urns")
			s.in.RestartParticipants = p.boolean("restart_participants")
			if extra := p.any("extra"); !isEmptyValue(extra) {
				s.in.Extra = domain.NormalizeFields(extra)
			}
		},
		resolve: func(ctx context.Context, p *payload) error {
			var err error
			if s.flow, err = resolve(ctx, p, "flow", s.in.Flow, s.lookups.flow); err != nil {
				return err
			}
			if s.contacts, err = resolveAll(ctx, p, "contacts", s.in.Contacts, s.lookups.contact); err != nil {
				return err
			}
			s.groups, err = resolveAll(ctx, p, "groups", s.in.Groups, s.lookups.group)
			return err
		},
		cross: func(ctx context.Context, p *payload) error {
			if len(s.groups)+len(s.contacts)+len(s.in.URNs) == 0 {
				p.errs.Add(NonFieldErrors, msgNoStartTargets)
			}
			return nil
		},
	})
}

// Save converts URNs to contacts, creating them as needed, saves the start
// and requests its execution.
func (s *FlowStartWriteSerializer) Save(ctx context.Context) (*domain.FlowStart, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	stores := s.deps.Stores

	contacts := append([]*domain.Contact(nil), s.contacts...)
	for _, urn := range s.in.URNs {
		contact, err := stores.Contacts.GetOrCreate(ctx, s.rc.Org, s.rc.User, "", []domain.URN{urn}, "")
		if err != nil {
			return nil, fmt.Errorf("getting contact for %s: %w", urn, err)
		}
		contacts = append(contacts, contact)
	}

	restart := true
	if s.in.RestartParticipants != nil {
		restart = *s.in.RestartParticipants
	}

	start := &domain.FlowStart{
		OrgID:               s.rc.Org.ID,
		Flow:                s.flow,
		Status:              domain.FlowStartStatusPending,
		Groups:              s.groups,
		Contacts:            contacts,
		RestartParticipants: restart,
		Extra:               s.in.Extra,
		CreatedBy:           s.rc.userID(),
	}
	if err := stores.FlowStarts.Create(ctx, start); err != nil {
		return nil, fmt.Errorf("creating flow start: %w", err)
	}

	event, err := events.NewStartFlowEvent(start.OrgID, start.ID)
	if err := s.emit(ctx, event, err); err != nil {
		return nil, err
	}
	return start, nil
}
