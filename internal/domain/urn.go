package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// URN schemes recognised by the API.
const (
	SchemeTel       = "tel"
	SchemeTwitter   = "twitter"
	SchemeTwitterID = "twitterid"
	SchemeMailto    = "mailto"
	SchemeExternal  = "ext"
	SchemeFacebook  = "facebook"
	SchemeTelegram  = "telegram"
	SchemeLine      = "line"
	SchemeViber     = "viber"
	SchemeFCM       = "fcm"
	SchemeJioChat   = "jiochat"
	SchemeWhatsApp  = "whatsapp"
)

var validSchemes = map[string]bool{
	SchemeTel:       true,
	SchemeTwitter:   true,
	SchemeTwitterID: true,
	SchemeMailto:    true,
	SchemeExternal:  true,
	SchemeFacebook:  true,
	SchemeTelegram:  true,
	SchemeLine:      true,
	SchemeViber:     true,
	SchemeFCM:       true,
	SchemeJioChat:   true,
	SchemeWhatsApp:  true,
}

var (
	// ErrInvalidURN is returned for strings which aren't scheme:path URNs of a
	// known scheme.
	ErrInvalidURN = errors.New("invalid URN")

	telPathRegex    = regexp.MustCompile(`^\+?[0-9]{1,64}$`)
	telStripRegex   = regexp.MustCompile(`[\s\-().]`)
	numericRegex    = regexp.MustCompile(`^[0-9]+$`)
	twitterRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]{1,15}$`)
	emailPathRegex  = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
	genericPathRune = regexp.MustCompile(`^[^\s]+$`)
)

// URN is a normalized contact identifier of the form scheme:path.
type URN string

// ParseURN validates and normalizes a URN string.
func ParseURN(s string) (URN, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: missing scheme", ErrInvalidURN)
	}

	scheme := strings.ToLower(strings.TrimSpace(parts[0]))
	path := strings.TrimSpace(parts[1])
	if !validSchemes[scheme] {
		return "", fmt.Errorf("%w: unknown scheme %q", ErrInvalidURN, scheme)
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidURN)
	}

	switch scheme {
	case SchemeTel:
		path = telStripRegex.ReplaceAllString(path, "")
		if !telPathRegex.MatchString(path) {
			return "", fmt.Errorf("%w: invalid phone number", ErrInvalidURN)
		}
	case SchemeTwitter:
		path = strings.ToLower(strings.TrimPrefix(path, "@"))
		if !twitterRegex.MatchString(path) {
			return "", fmt.Errorf("%w: invalid twitter handle", ErrInvalidURN)
		}
	case SchemeTwitterID, SchemeTelegram, SchemeWhatsApp:
		if !numericRegex.MatchString(path) {
			return "", fmt.Errorf("%w: %s path must be numeric", ErrInvalidURN, scheme)
		}
	case SchemeMailto:
		path = strings.ToLower(path)
		if !emailPathRegex.MatchString(path) {
			return "", fmt.Errorf("%w: invalid email address", ErrInvalidURN)
		}
	}

	if !genericPathRune.MatchString(path) {
		return "", fmt.Errorf("%w: path contains whitespace", ErrInvalidURN)
	}

	return URN(scheme + ":" + path), nil
}

// Scheme returns the scheme part of the URN.
func (u URN) Scheme() string {
	scheme, _, _ := strings.Cut(string(u), ":")
	return scheme
}

// Path returns the path part of the URN.
func (u URN) Path() string {
	_, path, _ := strings.Cut(string(u), ":")
	return path
}

func (u URN) String() string { return string(u) }

// ContactURN is a URN owned by a contact. Lower priority values are tried
// first when sending.
type ContactURN struct {
	ID        ContactURNID `json:"id"`
	OrgID     OrgID        `json:"org_id"`
	ContactID ContactID    `json:"contact_id"`
	Identity  URN          `json:"identity"`
	Priority  int          `json:"priority"`
	ChannelID ChannelID    `json:"channel_id"`
}
