package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Campaign schedules events relative to a date field of the contacts in a
// group.
type Campaign struct {
	ID         CampaignID    `json:"id"`
	UUID       uuid.UUID     `json:"uuid"`
	OrgID      OrgID         `json:"org_id"`
	Name       string        `json:"name"`
	Group      *ContactGroup `json:"group"`
	IsActive   bool          `json:"is_active"`
	IsArchived bool          `json:"is_archived"`
	CreatedBy  UserID        `json:"created_by"`
	ModifiedBy UserID        `json:"modified_by"`
	CreatedOn  time.Time     `json:"created_on"`
	ModifiedOn time.Time     `json:"modified_on"`
}

// CampaignEvent triggers a flow for each contact at an offset from a date
// field. Message events trigger a hidden single message flow built from
// Message; flow events trigger a user flow and have no message.
type CampaignEvent struct {
	ID           CampaignEventID   `json:"id"`
	UUID         uuid.UUID         `json:"uuid"`
	Campaign     *Campaign         `json:"campaign"`
	EventType    CampaignEventType `json:"event_type"`
	RelativeTo   *ContactField     `json:"relative_to"`
	Offset       int               `json:"offset"`
	Unit         CampaignEventUnit `json:"unit"`
	DeliveryHour int               `json:"delivery_hour"`
	Flow         *Flow             `json:"flow"`
	Message      string            `json:"message"`
	IsActive     bool              `json:"is_active"`
	CreatedBy    UserID            `json:"created_by"`
	ModifiedBy   UserID            `json:"modified_by"`
	CreatedOn    time.Time         `json:"created_on"`
	ModifiedOn   time.Time         `json:"modified_on"`
}

// IsMessageEvent reports whether the event sends a single message.
func (e *CampaignEvent) IsMessageEvent() bool {
	return e.EventType == CampaignEventTypeMessage
}

// MessageFlowName is the name given to the hidden flow of a message event.
func (e *CampaignEvent) MessageFlowName() string {
	campaign := ""
	if e.Campaign != nil {
		campaign = e.Campaign.Name
	}
	suffix := fmt.Sprintf(" (%d)", e.ID)
	return Truncate(campaign, MaxFlowNameLen-len(suffix)) + suffix
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
