package domain

import (
	"encoding/json"
	"time"
)

// Resthook is a named hook point that external services subscribe to.
type Resthook struct {
	ID         ResthookID `json:"id"`
	OrgID      OrgID      `json:"org_id"`
	Slug       string     `json:"slug"`
	IsActive   bool       `json:"is_active"`
	CreatedOn  time.Time  `json:"created_on"`
	ModifiedOn time.Time  `json:"modified_on"`
}

// ResthookSubscriber is a target URL called when its resthook fires.
type ResthookSubscriber struct {
	ID        ResthookSubscriberID `json:"id"`
	Resthook  *Resthook            `json:"resthook"`
	TargetURL string               `json:"target_url"`
	IsActive  bool                 `json:"is_active"`
	CreatedBy UserID               `json:"created_by"`
	CreatedOn time.Time            `json:"created_on"`
}

// WebHookEvent records a resthook firing. Data is the posted payload, in
// which the values and steps members are themselves JSON encoded strings.
type WebHookEvent struct {
	ID        WebHookEventID  `json:"id"`
	OrgID     OrgID           `json:"org_id"`
	Resthook  *Resthook       `json:"resthook"`
	Data      json.RawMessage `json:"data"`
	CreatedOn time.Time       `json:"created_on"`
}
