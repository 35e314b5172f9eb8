package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a connection messages are sent and received through.
type Channel struct {
	ID          ChannelID   `json:"id"`
	UUID        uuid.UUID   `json:"uuid"`
	OrgID       OrgID       `json:"org_id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Country     string      `json:"country"`
	ChannelType ChannelType `json:"channel_type"`
	Device      string      `json:"device"`
	IsActive    bool        `json:"is_active"`
	LastSeen    *time.Time  `json:"last_seen,omitempty"`
	CreatedOn   time.Time   `json:"created_on"`

	// LastSync is the most recent status report of an android device.
	LastSync *SyncEvent `json:"last_sync,omitempty"`
}

// SyncEvent is a device status report.
type SyncEvent struct {
	PowerLevel  int    `json:"power_level"`
	PowerStatus string `json:"power_status"`
	PowerSource string `json:"power_source"`
	NetworkType string `json:"network_type"`
}

// IsAndroid reports whether the channel is a relayer phone.
func (c *Channel) IsAndroid() bool {
	return c.ChannelType == ChannelTypeAndroid
}

// ChannelEvent is a non-message event on a channel, such as a call.
type ChannelEvent struct {
	ID        ChannelEventID   `json:"id"`
	OrgID     OrgID            `json:"org_id"`
	EventType ChannelEventType `json:"event_type"`
	Contact   *Contact         `json:"contact"`
	Channel   *Channel         `json:"channel"`
	Time      time.Time        `json:"time"`
	Duration  int              `json:"duration"`
	CreatedOn time.Time        `json:"created_on"`
}
