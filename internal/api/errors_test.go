package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/temba-api/internal/api/serializers"
	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", fmt.Errorf("loading: %w", store.ErrGroupNotFound), http.StatusNotFound, "Not found."},
		{"duplicate", store.ErrURNTaken, http.StatusConflict, "Conflicts with an existing object."},
		{"name taken", fmt.Errorf("renaming group: %w", store.ErrNameTaken), http.StatusConflict, "Conflicts with an existing object."},
		{"bad param", fmt.Errorf("%w: before", ErrInvalidParam), http.StatusBadRequest, "invalid query parameter: before"},
		{"body too large", shared.ErrBodyTooLarge, http.StatusRequestEntityTooLarge, "Request body too large"},
		{"suspended", domain.ErrOrgSuspended, http.StatusForbidden, "Workspace is suspended"},
		{"unexpected", errors.New("pq: connection refused to 10.0.0.3"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v2/labels", nil)

	w := httptest.NewRecorder()
	HandleAPIError(w, r, fmt.Errorf("saving: %w", serializers.ValidationErrors{"name": {"This field is required."}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"name": ["This field is required."]}`, w.Body.String())

	w = httptest.NewRecorder()
	HandleAPIError(w, r, errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}
