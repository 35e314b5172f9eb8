package postgres

import (
	"context"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

var groupColumns = []string{
	"g.id", "g.uuid", "g.org_id", "g.name", "g.query", "g.is_active", "g.created_on",
	`(SELECT COUNT(*) FROM contact_group_members gm JOIN contacts gc ON gc.id = gm.contact_id
		WHERE gm.group_id = g.id AND gc.is_active)`,
}

func scanGroup(row pgx.Row) (*domain.ContactGroup, error) {
	var g domain.ContactGroup
	err := row.Scan(&g.ID, &g.UUID, &g.OrgID, &g.Name, &g.Query, &g.IsActive, &g.CreatedOn, &g.Count)
	return &g, err
}

// Unique indexes over active names, ignoring case.
const (
	groupNameIndex    = "contact_groups_name_idx"
	labelNameIndex    = "labels_name_idx"
	campaignNameIndex = "campaigns_name_idx"
)

// sameName matches names ignoring case.
func sameName(column, name string) sq.Sqlizer {
	return sq.Expr("LOWER("+column+") = LOWER(?)", name)
}

// PostgresGroupStore implements store.GroupStore.
type PostgresGroupStore struct{ base }

// NewPostgresGroupStore returns a store of contact groups queried through pool.
func NewPostgresGroupStore(pool Pool, logger *slog.Logger) *PostgresGroupStore {
	return &PostgresGroupStore{newBase(pool, logger, "group_store")}
}

var _ store.GroupStore = (*PostgresGroupStore)(nil)

func (s *PostgresGroupStore) selectGroups(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(groupColumns...).From("contact_groups g").Where(sq.Eq{"g.org_id": orgID, "g.is_active": true})
}

func (s *PostgresGroupStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ContactGroup, error) {
	query := s.selectGroups(orgID)
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"g.uuid": opts.UUID})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "g.id", opts), scanGroup)
}

func (s *PostgresGroupStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.ContactGroup, error) {
	query := s.selectGroups(orgID).Where(sq.Eq{"g.uuid": id})
	return selectOne(ctx, s.q(ctx), query, scanGroup, store.ErrGroupNotFound)
}

// GetByName returns the oldest active group named name, ignoring case.
func (s *PostgresGroupStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.ContactGroup, error) {
	query := s.selectGroups(orgID).Where(sameName("g.name", name)).OrderBy("g.id").Limit(1)
	return selectOne(ctx, s.q(ctx), query, scanGroup, store.ErrGroupNotFound)
}

func (s *PostgresGroupStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.ContactGroup, error) {
	group, err := s.GetByName(ctx, org.ID, name)
	if err == nil || !store.IsNotFoundError(err) {
		return group, err
	}

	group = &domain.ContactGroup{UUID: uuid.New(), OrgID: org.ID, Name: name, IsActive: true}
	insert := psql.Insert("contact_groups").
		Columns("uuid", "org_id", "name", "is_active").
		Values(group.UUID, group.OrgID, group.Name, true).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &group.ID, &group.CreatedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create group", "org_id", org.ID, "error", err)
		return nil, MapUniqueViolation(err, groupNameIndex, store.ErrNameTaken)
	}
	return group, nil
}

func (s *PostgresGroupStore) Rename(ctx context.Context, group *domain.ContactGroup, user *domain.User, name string) error {
	update := psql.Update("contact_groups").Set("name", name).Where(sq.Eq{"id": group.ID})
	if err := execQuery(ctx, s.q(ctx), update, store.ErrGroupNotFound); err != nil {
		return MapUniqueViolation(err, groupNameIndex, store.ErrNameTaken)
	}
	group.Name = name
	return nil
}

func (s *PostgresGroupStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.ContactGroupID) (bool, error) {
	query := psql.Select("1").
		From("contact_groups").
		Where(sq.Eq{"org_id": orgID, "is_active": true}).
		Where(sq.NotEq{"id": exclude}).
		Where(sameName("name", name))
	return exists(ctx, s.q(ctx), query)
}

// PostgresContactFieldStore implements store.ContactFieldStore.
type PostgresContactFieldStore struct{ base }

// NewPostgresContactFieldStore returns a store of contact fields queried through pool.
func NewPostgresContactFieldStore(pool Pool, logger *slog.Logger) *PostgresContactFieldStore {
	return &PostgresContactFieldStore{newBase(pool, logger, "contact_field_store")}
}

var _ store.ContactFieldStore = (*PostgresContactFieldStore)(nil)

func scanField(row pgx.Row) (*domain.ContactField, error) {
	var f domain.ContactField
	err := row.Scan(&f.ID, &f.OrgID, &f.Key, &f.Label, &f.ValueType, &f.IsActive)
	return &f, err
}

func (s *PostgresContactFieldStore) selectFields(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select("id", "org_id", "key", "label", "value_type", "is_active").
		From("contact_fields").
		Where(sq.Eq{"org_id": orgID, "is_active": true})
}

func (s *PostgresContactFieldStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ContactField, error) {
	query := s.selectFields(orgID)
	if opts.Key != "" {
		query = query.Where(sq.Eq{"key": opts.Key})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "id", opts), scanField)
}

func (s *PostgresContactFieldStore) GetByKey(ctx context.Context, orgID domain.OrgID, key string) (*domain.ContactField, error) {
	return selectOne(ctx, s.q(ctx), s.selectFields(orgID).Where(sq.Eq{"key": key}), scanField, store.ErrFieldNotFound)
}

var labelColumns = []string{
	"l.id", "l.uuid", "l.org_id", "l.name", "l.is_active", "l.created_on",
	`(SELECT COUNT(*) FROM msg_labels ml JOIN msgs lm ON lm.id = ml.msg_id
		WHERE ml.label_id = l.id AND lm.visibility = 'V')`,
}

func scanLabel(row pgx.Row) (*domain.Label, error) {
	var l domain.Label
	err := row.Scan(&l.ID, &l.UUID, &l.OrgID, &l.Name, &l.IsActive, &l.CreatedOn, &l.Count)
	return &l, err
}

// PostgresLabelStore implements store.LabelStore.
type PostgresLabelStore struct{ base }

// NewPostgresLabelStore returns a store of message labels queried through pool.
func NewPostgresLabelStore(pool Pool, logger *slog.Logger) *PostgresLabelStore {
	return &PostgresLabelStore{newBase(pool, logger, "label_store")}
}

var _ store.LabelStore = (*PostgresLabelStore)(nil)

func (s *PostgresLabelStore) selectLabels(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(labelColumns...).From("labels l").Where(sq.Eq{"l.org_id": orgID, "l.is_active": true})
}

func (s *PostgresLabelStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Label, error) {
	query := s.selectLabels(orgID)
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"l.uuid": opts.UUID})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "l.id", opts), scanLabel)
}

func (s *PostgresLabelStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Label, error) {
	return selectOne(ctx, s.q(ctx), s.selectLabels(orgID).Where(sq.Eq{"l.uuid": id}), scanLabel, store.ErrLabelNotFound)
}

func (s *PostgresLabelStore) GetByName(ctx context.Context, orgID domain.OrgID, name string) (*domain.Label, error) {
	query := s.selectLabels(orgID).Where(sameName("l.name", name)).OrderBy("l.id").Limit(1)
	return selectOne(ctx, s.q(ctx), query, scanLabel, store.ErrLabelNotFound)
}

func (s *PostgresLabelStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string) (*domain.Label, error) {
	label, err := s.GetByName(ctx, org.ID, name)
	if err == nil || !store.IsNotFoundError(err) {
		return label, err
	}

	label = &domain.Label{UUID: uuid.New(), OrgID: org.ID, Name: name, IsActive: true}
	insert := psql.Insert("labels").
		Columns("uuid", "org_id", "name", "is_active").
		Values(label.UUID, label.OrgID, label.Name, true).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &label.ID, &label.CreatedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create label", "org_id", org.ID, "error", err)
		return nil, MapUniqueViolation(err, labelNameIndex, store.ErrNameTaken)
	}
	return label, nil
}

func (s *PostgresLabelStore) Rename(ctx context.Context, label *domain.Label, user *domain.User, name string) error {
	update := psql.Update("labels").Set("name", name).Where(sq.Eq{"id": label.ID})
	if err := execQuery(ctx, s.q(ctx), update, store.ErrLabelNotFound); err != nil {
		return MapUniqueViolation(err, labelNameIndex, store.ErrNameTaken)
	}
	label.Name = name
	return nil
}

func (s *PostgresLabelStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.LabelID) (bool, error) {
	query := psql.Select("1").
		From("labels").
		Where(sq.Eq{"org_id": orgID, "is_active": true}).
		Where(sq.NotEq{"id": exclude}).
		Where(sameName("name", name))
	return exists(ctx, s.q(ctx), query)
}
