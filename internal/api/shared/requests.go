package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrBodyTooLarge is returned by ReadBody for bodies over the limit.
var ErrBodyTooLarge = errors.New("request body too large")

var validate = validator.New()

// ReadBody reads at most maxBytes of the request body.
func ReadBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	return body, nil
}

// ValidateRequest validates v by its Validate method if it has one, else
// by its struct tags.
func ValidateRequest(v any) error {
	if s, ok := v.(interface{ Validate() error }); ok {
		return s.Validate()
	}
	return validate.Struct(v)
}
