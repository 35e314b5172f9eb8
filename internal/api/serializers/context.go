package serializers

import (
	"time"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/phrazzld/temba-api/internal/store"
)

// Keys of Context.LookupValues.
const (
	LookupUUID = "uuid"
	LookupURN  = "urn"
)

// Context carries the request state every serializer consults.
type Context struct {
	Org  *domain.Org
	User *domain.User

	// LookupValues holds the query parameter used to find the instance
	// being written, keyed by LookupUUID or LookupURN.
	LookupValues map[string]string

	// ContactFields are the active field definitions of the org, used to
	// render and validate contact fields.
	ContactFields []*domain.ContactField

	// IncludeGeometry adds geometry to admin boundaries.
	IncludeGeometry bool
}

func (c *Context) lookupURN() (string, bool) {
	v, ok := c.LookupValues[LookupURN]
	return v, ok
}

func (c *Context) isAnon() bool {
	return c.Org != nil && c.Org.IsAnon
}

func (c *Context) userID() domain.UserID {
	if c.User == nil {
		return domain.NilUserID
	}
	return c.User.ID
}

// Deps are the collaborators write serializers save through.
type Deps struct {
	Stores *store.Stores
	Events events.EventEmitter
}

func formatDatetime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := domain.FormatDatetime(t)
	return &s
}

func formatDatetimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return formatDatetime(*t)
}
