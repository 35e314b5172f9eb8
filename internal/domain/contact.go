package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a person an org communicates with.
type Contact struct {
	ID         ContactID     `json:"id"`
	UUID       uuid.UUID     `json:"uuid"`
	OrgID      OrgID         `json:"org_id"`
	Name       string        `json:"name"`
	Language   string        `json:"language"`
	IsActive   bool          `json:"is_active"`
	IsBlocked  bool          `json:"is_blocked"`
	IsStopped  bool          `json:"is_stopped"`
	CreatedOn  time.Time     `json:"created_on"`
	ModifiedOn time.Time     `json:"modified_on"`
	CreatedBy  UserID        `json:"created_by"`
	ModifiedBy UserID        `json:"modified_by"`

	// URNs ordered by priority, highest first.
	URNs []*ContactURN `json:"urns,omitempty"`

	// Groups holds user (non system) group memberships.
	Groups []*ContactGroup `json:"groups,omitempty"`

	// Values keyed by contact field key.
	Values map[string]*Value `json:"values,omitempty"`
}

// URNIdentities returns the contact's URNs in priority order.
func (c *Contact) URNIdentities() []URN {
	urns := make([]URN, 0, len(c.URNs))
	for _, u := range c.URNs {
		urns = append(urns, u.Identity)
	}
	return urns
}

// URN returns the contact URN with the given identity, or nil.
func (c *Contact) URN(identity URN) *ContactURN {
	for _, u := range c.URNs {
		if u.Identity == identity {
			return u
		}
	}
	return nil
}

// Value returns the value of the field with the given key, or nil.
func (c *Contact) Value(key string) *Value {
	if c.Values == nil {
		return nil
	}
	return c.Values[key]
}

// ContactGroup is a named set of contacts. A group with a query is dynamic
// and its membership is computed, so contacts can't be added to it directly.
type ContactGroup struct {
	ID        ContactGroupID `json:"id"`
	UUID      uuid.UUID      `json:"uuid"`
	OrgID     OrgID          `json:"org_id"`
	Name      string         `json:"name"`
	Query     string         `json:"query"`
	IsActive  bool           `json:"is_active"`
	Count     int            `json:"count"`
	CreatedOn time.Time      `json:"created_on"`
}

// IsDynamic reports whether membership is computed from a query.
func (g *ContactGroup) IsDynamic() bool {
	return g.Query != ""
}

// ContactField is an org defined custom field.
type ContactField struct {
	ID        ContactFieldID `json:"id"`
	OrgID     OrgID          `json:"org_id"`
	Key       string         `json:"key"`
	Label     string         `json:"label"`
	ValueType ValueType      `json:"value_type"`
	IsActive  bool           `json:"is_active"`
}
