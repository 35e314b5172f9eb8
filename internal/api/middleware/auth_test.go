package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/service/auth"
	"github.com/phrazzld/temba-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisaverylongsecretkeyfortesting1234567890"

// failingJWTService returns err from every validation.
type failingJWTService struct{ err error }

func (s failingJWTService) GenerateToken(context.Context, domain.UserID, domain.OrgID) (string, error) {
	return "", s.err
}

func (s failingJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return nil, s.err
}

type authFixture struct {
	db   *memstore.DB
	jwt  auth.JWTService
	org  *domain.Org
	user *domain.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)

	db := memstore.New()
	return &authFixture{
		db:   db,
		jwt:  jwtService,
		org:  db.AddOrg(domain.Org{Name: "Nyaruka", PrimaryLanguage: "eng", Languages: []string{"eng"}}),
		user: db.AddUser(domain.User{Email: "admin@nyaruka.com"}),
	}
}

func (f *authFixture) serve(t *testing.T, jwtService auth.JWTService, header string) (*httptest.ResponseRecorder, *shared.Principal) {
	t.Helper()
	stores := f.db.Stores()
	var principal *shared.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/contacts", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	NewAuthMiddleware(jwtService, stores.Orgs, stores.Users).Authenticate(next).ServeHTTP(w, req)
	return w, principal
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.jwt.GenerateToken(context.Background(), f.user.ID, f.org.ID)
	require.NoError(t, err)

	w, principal := f.serve(t, f.jwt, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, principal)
	assert.Equal(t, f.org.ID, principal.Org.ID)
	assert.Equal(t, f.user.ID, principal.User.ID)
}

func TestAuthenticateRejects(t *testing.T) {
	f := newAuthFixture(t)

	unknownOrg, err := f.jwt.GenerateToken(context.Background(), f.user.ID, domain.OrgID(999))
	require.NoError(t, err)
	unknownUser, err := f.jwt.GenerateToken(context.Background(), domain.UserID(999), f.org.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		jwt        auth.JWTService
		header     string
		wantStatus int
	}{
		{"missing header", f.jwt, "", http.StatusUnauthorized},
		{"wrong scheme", f.jwt, "Token abc", http.StatusUnauthorized},
		{"empty token", f.jwt, "Bearer ", http.StatusUnauthorized},
		{"garbage token", f.jwt, "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired token", failingJWTService{auth.ErrExpiredToken}, "Bearer abc", http.StatusUnauthorized},
		{"missing claims", failingJWTService{auth.ErrMissingClaims}, "Bearer abc", http.StatusUnauthorized},
		{"unexpected failure", failingJWTService{errors.New("boom")}, "Bearer abc", http.StatusInternalServerError},
		{"unknown org", f.jwt, "Bearer " + unknownOrg, http.StatusUnauthorized},
		{"unknown user", f.jwt, "Bearer " + unknownUser, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, principal := f.serve(t, tt.jwt, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Nil(t, principal)
			assert.Contains(t, w.Body.String(), `"detail"`)
		})
	}
}

func TestAuthenticateRejectsSuspendedOrg(t *testing.T) {
	f := newAuthFixture(t)
	suspended := f.db.AddOrg(domain.Org{Name: "Gone", IsSuspended: true})
	token, err := f.jwt.GenerateToken(context.Background(), f.user.ID, suspended.ID)
	require.NoError(t, err)

	w, principal := f.serve(t, f.jwt, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, principal)
}
