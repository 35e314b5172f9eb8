package serializers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

const (
	msgNoResthook        = "No resthook with slug: %s"
	msgAlreadySubscribed = "URL is already subscribed to this event."
)

// ResthookResponse is the API view of a resthook.
type ResthookResponse struct {
	Resthook   string  `json:"resthook"`
	ModifiedOn *string `json:"modified_on"`
	CreatedOn  *string `json:"created_on"`
}

// ResthookRead projects r.
func ResthookRead(_ *Context, r *domain.Resthook) *ResthookResponse {
	return &ResthookResponse{
		Resthook:   r.Slug,
		ModifiedOn: formatDatetime(r.ModifiedOn),
		CreatedOn:  formatDatetime(r.CreatedOn),
	}
}

// ResthookSubscriberResponse is the API view of a resthook subscriber.
type ResthookSubscriberResponse struct {
	ID        domain.ResthookSubscriberID `json:"id"`
	Resthook  string                      `json:"resthook"`
	TargetURL string                      `json:"target_url"`
	CreatedOn *string                     `json:"created_on"`
}

// ResthookSubscriberRead projects s.
func ResthookSubscriberRead(_ *Context, s *domain.ResthookSubscriber) *ResthookSubscriberResponse {
	resp := &ResthookSubscriberResponse{
		ID:        s.ID,
		TargetURL: s.TargetURL,
		CreatedOn: formatDatetime(s.CreatedOn),
	}
	if s.Resthook != nil {
		resp.Resthook = s.Resthook.Slug
	}
	return resp
}

type resthookSubscriberInput struct {
	Resthook  *string `json:"resthook" validate:"required,notblank"`
	TargetURL *string `json:"target_url" validate:"required,notblank,url"`
}

// ResthookSubscriberWriteSerializer subscribes a URL to a resthook.
type ResthookSubscriberWriteSerializer struct {
	writeBase
	in       resthookSubscriberInput
	resthook *domain.Resthook
}

// NewResthookSubscriberWriteSerializer returns a serializer which subscribes
// a URL to a resthook.
func NewResthookSubscriberWriteSerializer(deps Deps, rc *Context) *ResthookSubscriberWriteSerializer {
	return &ResthookSubscriberWriteSerializer{writeBase: newWriteBase(deps, rc)}
}

// Validate decodes body and checks the URL isn't already subscribed.
func (s *ResthookSubscriberWriteSerializer) Validate(ctx context.Context, body []byte) error {
	s.in = resthookSubscriberInput{}
	return s.run(ctx, body, stages{
		input: &s.in,
		decode: func(p *payload) {
			s.in.Resthook = p.str("resthook", false)
			s.in.TargetURL = p.str("target_url", false)
		},
		resolve: func(ctx context.Context, p *payload) error {
			if p.errs.Has("resthook") {
				return nil
			}
			hook, err := s.deps.Stores.Resthooks.GetBySlug(ctx, s.rc.Org.ID, *s.in.Resthook)
			if store.IsNotFoundError(err) {
				p.errs.Add("resthook", fmt.Sprintf(msgNoResthook, *s.in.Resthook))
				return nil
			}
			if err != nil {
				return fmt.Errorf("looking up resthook: %w", err)
			}
			s.resthook = hook
			return nil
		},
		cross: func(ctx context.Context, p *payload) error {
			exists, err := s.deps.Stores.ResthookSubscribers.Exists(ctx, s.resthook.ID, *s.in.TargetURL)
			if err != nil {
				return fmt.Errorf("checking subscribers: %w", err)
			}
			if exists {
				p.errs.Add(NonFieldErrors, msgAlreadySubscribed)
			}
			return nil
		},
	})
}

// Save adds the subscriber.
func (s *ResthookSubscriberWriteSerializer) Save(ctx context.Context) (*domain.ResthookSubscriber, error) {
	if err := s.checkValidated(); err != nil {
		return nil, err
	}
	sub := &domain.ResthookSubscriber{
		Resthook:  s.resthook,
		TargetURL: *s.in.TargetURL,
		IsActive:  true,
		CreatedBy: s.rc.userID(),
	}
	if err := s.deps.Stores.ResthookSubscribers.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("adding subscriber: %w", err)
	}
	return sub, nil
}

// WebHookEventResponse is the API view of a resthook event.
type WebHookEventResponse struct {
	Resthook  string          `json:"resthook"`
	Data      json.RawMessage `json:"data"`
	CreatedOn *string         `json:"created_on"`
}

// WebHookEventRead projects a resthook event. The values and steps members
// of the payload are stored as JSON strings and are decoded in place.
func WebHookEventRead(_ *Context, e *domain.WebHookEvent) *WebHookEventResponse {
	resp := &WebHookEventResponse{
		Data:      decodeWebHookData(e.Data),
		CreatedOn: formatDatetime(e.CreatedOn),
	}
	if e.Resthook != nil {
		resp.Resthook = e.Resthook.Slug
	}
	return resp
}

func decodeWebHookData(data json.RawMessage) json.RawMessage {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		return data
	}
	for _, key := range []string{"values", "steps"} {
		var nested string
		if err := json.Unmarshal(decoded[key], &nested); err != nil {
			continue
		}
		if json.Valid([]byte(nested)) {
			decoded[key] = json.RawMessage(nested)
		}
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return data
	}
	return out
}
