package domain

import (
	"time"

	"github.com/google/uuid"
)

// Label is a message label (a folder in the inbox).
type Label struct {
	ID        LabelID   `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	OrgID     OrgID     `json:"org_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Count     int       `json:"count"`
	CreatedOn time.Time `json:"created_on"`
}

// Broadcast is a message sent to a set of recipients. Text holds the default
// translation; Translations is keyed by iso639-3 language code.
type Broadcast struct {
	ID           BroadcastID       `json:"id"`
	OrgID        OrgID             `json:"org_id"`
	Text         string            `json:"text"`
	Translations map[string]string `json:"translations,omitempty"`
	BaseLanguage string            `json:"base_language"`
	Purged       bool              `json:"purged"`
	Channel      *Channel          `json:"channel,omitempty"`
	URNs         []*ContactURN     `json:"urns,omitempty"`
	Contacts     []*Contact        `json:"contacts,omitempty"`
	Groups       []*ContactGroup   `json:"groups,omitempty"`
	CreatedBy    UserID            `json:"created_by"`
	CreatedOn    time.Time         `json:"created_on"`
}

// TranslatedText returns the text to show contact: their own language if the
// org has it enabled, then the flow's base language, then the org's primary
// language, then the default text.
func (b *Broadcast) TranslatedText(contact *Contact, baseLanguage string, org *Org) string {
	preferred := make([]string, 0, 3)
	if contact != nil && org != nil && org.HasLanguage(contact.Language) {
		preferred = append(preferred, contact.Language)
	}
	if baseLanguage != "" {
		preferred = append(preferred, baseLanguage)
	} else if b.BaseLanguage != "" {
		preferred = append(preferred, b.BaseLanguage)
	}
	if org != nil && org.PrimaryLanguage != "" {
		preferred = append(preferred, org.PrimaryLanguage)
	}

	for _, lang := range preferred {
		if text, ok := b.Translations[lang]; ok && text != "" {
			return text
		}
	}
	return b.Text
}

// Msg is a single incoming or outgoing message.
type Msg struct {
	ID          MsgID         `json:"id"`
	OrgID       OrgID         `json:"org_id"`
	BroadcastID BroadcastID   `json:"broadcast_id"`
	Contact     *Contact      `json:"contact"`
	ContactURN  *ContactURN   `json:"contact_urn,omitempty"`
	Channel     *Channel      `json:"channel,omitempty"`
	Direction   MsgDirection  `json:"direction"`
	MsgType     MsgType       `json:"msg_type"`
	Status      MsgStatus     `json:"status"`
	Visibility  MsgVisibility `json:"visibility"`
	Text        string        `json:"text"`
	Labels      []*Label      `json:"labels,omitempty"`
	CreatedOn   time.Time     `json:"created_on"`
	SentOn      *time.Time    `json:"sent_on,omitempty"`
	ModifiedOn  time.Time     `json:"modified_on"`
}
