package serializers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/temba-api/internal/domain"
)

// NonFieldErrors is the key of errors which concern the request as a whole.
const NonFieldErrors = "non_field_errors"

var (
	// ErrNotValidated is returned by Save when Validate has not succeeded.
	ErrNotValidated = errors.New("serializers: save called before successful validation")

	// ErrReadOnlyResource signals an attempt to write a resource which only
	// has a read projection.
	ErrReadOnlyResource = errors.New("serializers: resource is read only")
)

// ValidationErrors maps field names, or NonFieldErrors, to messages.
type ValidationErrors map[string][]string

// Add records a message against field.
func (e ValidationErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has any error.
func (e ValidationErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Error lists the fields with errors.
func (e ValidationErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes ValidationErrors match domain.ErrValidation.
func (e ValidationErrors) Is(target error) bool {
	return target == domain.ErrValidation
}

func nonFieldError(msg string) ValidationErrors {
	return ValidationErrors{NonFieldErrors: {msg}}
}
