package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/temba-api/internal/api/serializers"
	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// ErrInvalidParam is returned for query parameters that can't be parsed.
var ErrInvalidParam = errors.New("invalid query parameter")

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never decide what clients see.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, ErrInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrOrgSuspended):
		return http.StatusForbidden
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case store.IsDuplicateError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a message for err which is safe to show.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, ErrInvalidParam):
		return err.Error()
	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"
	case errors.Is(err, domain.ErrOrgSuspended):
		return "Workspace is suspended"
	case store.IsNotFoundError(err):
		return "Not found."
	case store.IsDuplicateError(err):
		return "Conflicts with an existing object."
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. Validation errors are
// rendered as their field mapping, anything else as a detail message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs serializers.ValidationErrors
	if errors.As(err, &verrs) {
		shared.RespondWithJSON(w, r, http.StatusBadRequest, verrs)
		return
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
