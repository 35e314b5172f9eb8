package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/temba-api/internal/api/shared"
	"github.com/phrazzld/temba-api/internal/service/auth"
	"github.com/phrazzld/temba-api/internal/store"
)

// AuthMiddleware authenticates API requests by bearer token and loads the
// org and user the token was issued for.
type AuthMiddleware struct {
	jwtService auth.JWTService
	orgs       store.OrgStore
	users      store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, orgs store.OrgStore, users store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		orgs:       orgs,
		users:      users,
	}
}

// Authenticate validates the Authorization header and adds the principal to
// the request context. Suspended orgs and deactivated users are refused.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Token expired", err)
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingClaims):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err, shared.WithElevatedLogLevel())
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			}
			return
		}

		org, err := m.orgs.GetByID(r.Context(), claims.OrgID)
		if err != nil {
			m.respondLookupError(w, r, err)
			return
		}
		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			m.respondLookupError(w, r, err)
			return
		}
		if org.IsSuspended {
			shared.RespondWithError(w, r, http.StatusForbidden, "Workspace is suspended")
			return
		}

		ctx := shared.WithPrincipal(r.Context(), &shared.Principal{Org: org, User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondLookupError treats a token naming a vanished org or user as
// invalid credentials.
func (m *AuthMiddleware) respondLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err, shared.WithElevatedLogLevel())
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
}
