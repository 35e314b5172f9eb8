package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/service/auth"
	"github.com/phrazzld/temba-api/internal/store"
	"github.com/phrazzld/temba-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) (*AccountServiceImpl, auth.JWTService) {
	t.Helper()
	jwtSvc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "account-service-secret-that-is-32-chars",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAccountService(memstore.New().Stores(), store.NoTx, jwtSvc, logger), jwtSvc
}

func TestAccountService_CreateOrg(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	org, err := svc.CreateOrg(ctx, "  Nyaruka ", "RW", []string{"kin", "eng"}, true)
	require.NoError(t, err)
	assert.NotEqual(t, domain.NilOrgID, org.ID)
	assert.Equal(t, "Nyaruka", org.Name)
	assert.Equal(t, "kin", org.PrimaryLanguage)
	assert.True(t, org.IsAnon)

	_, err = svc.CreateOrg(ctx, " ", "", nil, false)
	assert.ErrorIs(t, err, ErrInvalidOrg)

	_, err = svc.CreateOrg(ctx, "Bad", "", []string{"en"}, false)
	assert.ErrorIs(t, err, ErrInvalidOrg)
}

func TestAccountService_CreateUser(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	_, err = svc.CreateUser(ctx, "ADMIN@example.com")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = svc.CreateUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestAccountService_IssueToken(t *testing.T) {
	svc, jwtSvc := newAccountService(t)
	ctx := context.Background()

	org, err := svc.CreateOrg(ctx, "Nyaruka", "RW", nil, false)
	require.NoError(t, err)
	user, err := svc.CreateUser(ctx, "admin@example.com")
	require.NoError(t, err)

	token, err := svc.IssueToken(ctx, user.ID, org.ID)
	require.NoError(t, err)

	claims, err := jwtSvc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, org.ID, claims.OrgID)

	_, err = svc.IssueToken(ctx, user.ID, 9999)
	assert.ErrorIs(t, err, store.ErrOrgNotFound)

	_, err = svc.IssueToken(ctx, 9999, org.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
