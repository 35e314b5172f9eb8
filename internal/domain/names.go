package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Maximum name lengths, in characters.
const (
	MaxGroupNameLen    = 64
	MaxLabelNameLen    = 64
	MaxCampaignNameLen = 255
	MaxContactNameLen  = 64
	MaxFlowNameLen     = 64
)

var validNameRegex = regexp.MustCompile(`^[\p{L}\p{N}_\- ]+$`)

// IsValidName reports whether name can be used for a contact group or a
// label: non-empty, no surrounding whitespace, at most maxLen characters and
// only letters, digits, spaces, underscores and hyphens.
func IsValidName(name string, maxLen int) bool {
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	if utf8.RuneCountInString(name) > maxLen {
		return false
	}
	return validNameRegex.MatchString(name)
}
