package postgres

import (
	"context"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// PostgresOrgStore implements store.OrgStore.
type PostgresOrgStore struct{ base }

// NewPostgresOrgStore returns a store of orgs queried through pool.
func NewPostgresOrgStore(pool Pool, logger *slog.Logger) *PostgresOrgStore {
	return &PostgresOrgStore{newBase(pool, logger, "org_store")}
}

var _ store.OrgStore = (*PostgresOrgStore)(nil)

func scanOrg(row pgx.Row) (*domain.Org, error) {
	var o domain.Org
	err := row.Scan(&o.ID, &o.Name, &o.IsAnon, &o.IsSuspended, &o.PrimaryLanguage, &o.Languages, &o.Country, &o.CreatedOn)
	return &o, err
}

func (s *PostgresOrgStore) GetByID(ctx context.Context, id domain.OrgID) (*domain.Org, error) {
	query := psql.Select("id", "name", "is_anon", "is_suspended", "primary_language", "languages", "country", "created_on").
		From("orgs").
		Where(sq.Eq{"id": id})
	return selectOne(ctx, s.q(ctx), query, scanOrg, store.ErrOrgNotFound)
}

func (s *PostgresOrgStore) Create(ctx context.Context, org *domain.Org) error {
	languages := org.Languages
	if languages == nil {
		languages = []string{}
	}
	query := psql.Insert("orgs").
		Columns("name", "is_anon", "is_suspended", "primary_language", "languages", "country").
		Values(org.Name, org.IsAnon, org.IsSuspended, org.PrimaryLanguage, languages, org.Country).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), query, &org.ID, &org.CreatedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create org", "error", err)
		return err
	}
	return nil
}

// PostgresUserStore implements store.UserStore.
type PostgresUserStore struct{ base }

// NewPostgresUserStore returns a store of users queried through pool.
func NewPostgresUserStore(pool Pool, logger *slog.Logger) *PostgresUserStore {
	return &PostgresUserStore{newBase(pool, logger, "user_store")}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

func (s *PostgresUserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	query := psql.Select("id", "email", "is_active", "created_on").
		From("users").
		Where(sq.Eq{"id": id, "is_active": true})
	return selectOne(ctx, s.q(ctx), query, func(row pgx.Row) (*domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.Email, &u.IsActive, &u.CreatedOn)
		return &u, err
	}, store.ErrUserNotFound)
}

// Create inserts an active user. Emails are unique ignoring case.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query := psql.Insert("users").
		Columns("email", "is_active").
		Values(strings.TrimSpace(user.Email), true).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), query, &user.ID, &user.CreatedOn); err != nil {
		return MapUniqueViolation(err, "users_email_key", store.ErrDuplicate)
	}
	user.IsActive = true
	return nil
}

// PostgresBoundaryStore implements store.BoundaryStore.
type PostgresBoundaryStore struct{ base }

// NewPostgresBoundaryStore returns a store of admin boundaries queried through pool.
func NewPostgresBoundaryStore(pool Pool, logger *slog.Logger) *PostgresBoundaryStore {
	return &PostgresBoundaryStore{newBase(pool, logger, "boundary_store")}
}

var _ store.BoundaryStore = (*PostgresBoundaryStore)(nil)

// boundaryTree selects the country boundary of an org and everything below it.
const boundaryTree = `WITH RECURSIVE tree AS (
	SELECT b.id FROM admin_boundaries b JOIN orgs o ON o.country = b.osm_id WHERE o.id = ?
	UNION ALL
	SELECT c.id FROM admin_boundaries c JOIN tree t ON c.parent_id = t.id
)`

// List returns the boundaries of the org's country with the org's aliases.
func (s *PostgresBoundaryStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.AdminBoundary, error) {
	query := psql.Select("b.id", "b.osm_id", "b.name", "b.level", "p.id", "p.osm_id", "p.name", "b.geometry").
		Prefix(boundaryTree, orgID).
		From("admin_boundaries b").
		Join("tree t ON t.id = b.id").
		LeftJoin("admin_boundaries p ON p.id = b.parent_id")
	query = paged(query, "b.id", opts)

	boundaries, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (*domain.AdminBoundary, error) {
		var (
			b                    domain.AdminBoundary
			parentID             *domain.AdminBoundaryID
			parentOsm, parentNme *string
		)
		if err := row.Scan(&b.ID, &b.OsmID, &b.Name, &b.Level, &parentID, &parentOsm, &parentNme, &b.Geometry); err != nil {
			return nil, err
		}
		if parentID != nil {
			b.Parent = &domain.AdminBoundary{ID: *parentID, OsmID: *parentOsm, Name: *parentNme}
		}
		b.Aliases = []string{}
		return &b, nil
	})
	if err != nil || len(boundaries) == 0 {
		return boundaries, err
	}

	byID := make(map[domain.AdminBoundaryID]*domain.AdminBoundary, len(boundaries))
	for _, b := range boundaries {
		byID[b.ID] = b
	}

	aliases := psql.Select("boundary_id", "name").
		From("boundary_aliases").
		Where(sq.Eq{"org_id": orgID, "boundary_id": idsOf(boundaries, func(b *domain.AdminBoundary) domain.AdminBoundaryID { return b.ID })}).
		OrderBy("name")
	_, err = selectAll(ctx, s.q(ctx), aliases, func(row pgx.Row) (struct{}, error) {
		var (
			id   domain.AdminBoundaryID
			name string
		)
		if err := row.Scan(&id, &name); err != nil {
			return struct{}{}, err
		}
		if b := byID[id]; b != nil {
			b.Aliases = append(b.Aliases, name)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	return boundaries, nil
}
