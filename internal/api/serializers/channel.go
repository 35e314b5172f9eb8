package serializers

import "github.com/phrazzld/temba-api/internal/domain"

// DeviceResponse is the last reported status of an android channel.
type DeviceResponse struct {
	Name        string  `json:"name"`
	PowerLevel  *int    `json:"power_level"`
	PowerStatus *string `json:"power_status"`
	PowerSource *string `json:"power_source"`
	NetworkType *string `json:"network_type"`
}

// ChannelResponse is the API view of a channel.
type ChannelResponse struct {
	UUID      string          `json:"uuid"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Country   *string         `json:"country"`
	Device    *DeviceResponse `json:"device"`
	LastSeen  *string         `json:"last_seen"`
	CreatedOn *string         `json:"created_on"`
}

// ChannelRead projects a channel. Only android channels report a device.
func ChannelRead(_ *Context, c *domain.Channel) *ChannelResponse {
	resp := &ChannelResponse{
		UUID:      c.UUID.String(),
		Name:      c.Name,
		Address:   c.Address,
		LastSeen:  formatDatetimePtr(c.LastSeen),
		CreatedOn: formatDatetime(c.CreatedOn),
	}
	if c.Country != "" {
		country := c.Country
		resp.Country = &country
	}
	if c.IsAndroid() {
		device := &DeviceResponse{Name: c.Device}
		if sync := c.LastSync; sync != nil {
			device.PowerLevel = &sync.PowerLevel
			device.PowerStatus = &sync.PowerStatus
			device.PowerSource = &sync.PowerSource
			device.NetworkType = &sync.NetworkType
		}
		resp.Device = device
	}
	return resp
}

// ChannelEventResponse is the API view of a channel event.
type ChannelEventResponse struct {
	ID        domain.ChannelEventID `json:"id"`
	Type      *string               `json:"type"`
	Contact   *Ref                  `json:"contact"`
	Channel   *Ref                  `json:"channel"`
	Time      *string               `json:"time"`
	Duration  int                   `json:"duration"`
	CreatedOn *string               `json:"created_on"`
}

// ChannelEventRead projects e.
func ChannelEventRead(_ *Context, e *domain.ChannelEvent) *ChannelEventResponse {
	return &ChannelEventResponse{
		ID:        e.ID,
		Type:      apiCode(channelEventTypes, e.EventType),
		Contact:   contactRef(e.Contact),
		Channel:   channelRef(e.Channel),
		Time:      formatDatetime(e.Time),
		Duration:  e.Duration,
		CreatedOn: formatDatetime(e.CreatedOn),
	}
}
