package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/api/serializers"
	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// filter is a set of lookup query parameters a list endpoint accepts.
type filter uint8

const (
	filterID filter = 1 << iota
	filterUUID
	filterURN
	filterKey
	filterSlug
	filterDeleted
)

// listParams are the raw lookup parameters of a list request.
type listParams struct {
	Before   string `validate:"omitempty,number"`
	ID       string `validate:"omitempty,number"`
	UUID     string `validate:"omitempty,uuid"`
	URN      string `validate:"omitempty,max=255"`
	Key      string `validate:"omitempty,max=36"`
	Resthook string `validate:"omitempty,max=100"`
}

// parseListOptions builds store options from the query parameters allowed
// by accepts. Parameters the endpoint doesn't accept are ignored.
func parseListOptions(q url.Values, accepts filter) (store.ListOptions, error) {
	p := listParams{Before: q.Get("before")}
	if accepts&filterID != 0 {
		p.ID = q.Get("id")
	}
	if accepts&filterUUID != 0 {
		// the uuid tag only matches lowercase hex
		p.UUID = strings.ToLower(q.Get("uuid"))
	}
	if accepts&filterURN != 0 {
		p.URN = q.Get("urn")
	}
	if accepts&filterKey != 0 {
		p.Key = q.Get("key")
	}
	if accepts&filterSlug != 0 {
		p.Resthook = q.Get("resthook")
	}
	if err := shared.ValidateRequest(p); err != nil {
		return store.ListOptions{}, fmt.Errorf("%w: %s", ErrInvalidParam, firstInvalidField(err))
	}

	var opts store.ListOptions
	var err error
	if opts.Before, err = parseID(p.Before); err != nil {
		return opts, fmt.Errorf("%w: before", ErrInvalidParam)
	}
	if opts.ID, err = parseID(p.ID); err != nil {
		return opts, fmt.Errorf("%w: id", ErrInvalidParam)
	}
	if p.UUID != "" {
		opts.UUID = uuid.MustParse(p.UUID)
	}
	if p.URN != "" {
		if opts.URN, err = domain.ParseURN(p.URN); err != nil {
			return opts, fmt.Errorf("%w: urn", ErrInvalidParam)
		}
	}
	opts.Key = p.Key
	opts.Slug = p.Resthook
	if accepts&filterDeleted != 0 {
		opts.Deleted, _ = strconv.ParseBool(q.Get("deleted"))
	}
	return opts, nil
}

func firstInvalidField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return strings.ToLower(verrs[0].Field())
	}
	return "query"
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("bad id %q", s)
	}
	return id, nil
}

// lookupValues returns the instance lookup parameters of a write request.
func lookupValues(r *http.Request) map[string]string {
	values := make(map[string]string)
	q := r.URL.Query()
	for _, key := range []string{serializers.LookupUUID, serializers.LookupURN} {
		if q.Has(key) {
			values[key] = q.Get(key)
		}
	}
	return values
}

// nextURL returns the URL of the page following the one ending at lastID.
func nextURL(r *http.Request, lastID int64) *string {
	u := *r.URL
	q := u.Query()
	q.Set("before", strconv.FormatInt(lastID, 10))
	u.RawQuery = q.Encode()
	next := u.String()
	return &next
}
