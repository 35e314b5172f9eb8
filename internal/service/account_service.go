package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/service/auth"
	"github.com/phrazzld/temba-api/internal/store"
)

// AccountService provisions orgs and the users that call the API.
type AccountService interface {
	// CreateOrg creates an org whose primary language is the first of
	// languages, if any.
	CreateOrg(ctx context.Context, name, country string, languages []string, anon bool) (*domain.Org, error)

	// CreateUser creates an active user.
	CreateUser(ctx context.Context, email string) (*domain.User, error)

	// IssueToken returns a bearer token acting as userID within orgID. Both
	// must exist.
	IssueToken(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (string, error)
}

// AccountServiceImpl implements AccountService.
type AccountServiceImpl struct {
	stores *store.Stores
	tx     store.TxManager
	jwt    auth.JWTService
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(stores *store.Stores, tx store.TxManager, jwt auth.JWTService, logger *slog.Logger) *AccountServiceImpl {
	if tx == nil {
		tx = store.NoTx
	}
	return &AccountServiceImpl{
		stores: stores,
		tx:     tx,
		jwt:    jwt,
		logger: logger.With("component", "account_service"),
	}
}

var _ AccountService = (*AccountServiceImpl)(nil)

// CreateOrg validates and stores a new org.
func (s *AccountServiceImpl) CreateOrg(ctx context.Context, name, country string, languages []string, anon bool) (*domain.Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidOrg)
	}
	for _, lang := range languages {
		if len(lang) != 3 {
			return nil, fmt.Errorf("%w: language %q is not a 3 letter code", ErrInvalidOrg, lang)
		}
	}

	org := &domain.Org{Name: name, Country: country, Languages: languages, IsAnon: anon}
	if len(languages) > 0 {
		org.PrimaryLanguage = languages[0]
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.stores.Orgs.Create(ctx, org)
	})
	if err != nil {
		s.logger.Error("failed to create org", "error", err, "name", name)
		return nil, fmt.Errorf("failed to create org: %w", err)
	}

	s.logger.Info("org created", "org_id", org.ID, "name", org.Name)
	return org, nil
}

// CreateUser stores a new user after checking the email.
func (s *AccountServiceImpl) CreateUser(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: %q is not an email address", ErrInvalidUser, email)
	}

	user := &domain.User{Email: email, IsActive: true}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.stores.Users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Debug("attempted to create user with existing email", "email", email)
		} else {
			s.logger.Error("failed to create user", "error", err, "email", email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// IssueToken mints a bearer token for the user acting in the org. Both must
// exist.
func (s *AccountServiceImpl) IssueToken(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (string, error) {
	if _, err := s.stores.Users.GetByID(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if _, err := s.stores.Orgs.GetByID(ctx, orgID); err != nil {
		return "", fmt.Errorf("failed to load org: %w", err)
	}

	token, err := s.jwt.GenerateToken(ctx, userID, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	s.logger.Info("token issued", "user_id", userID, "org_id", orgID)
	return token, nil
}
