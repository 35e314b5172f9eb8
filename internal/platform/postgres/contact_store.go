package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// firstURNPriority is the priority given to the preferred URN of a contact.
const firstURNPriority = 1000

var contactColumns = []string{
	"c.id", "c.uuid", "c.org_id", "c.name", "c.language", "c.is_active", "c.is_blocked", "c.is_stopped",
	"c.created_by", "c.modified_by", "c.created_on", "c.modified_on",
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.Language, &c.IsActive, &c.IsBlocked, &c.IsStopped,
		&c.CreatedBy, &c.ModifiedBy, &c.CreatedOn, &c.ModifiedOn)
	return &c, err
}

var urnColumns = []string{"u.id", "u.org_id", "COALESCE(u.contact_id, 0)", "u.identity", "u.priority", "COALESCE(u.channel_id, 0)"}

func scanURN(row pgx.Row) (*domain.ContactURN, error) {
	var u domain.ContactURN
	err := row.Scan(&u.ID, &u.OrgID, &u.ContactID, &u.Identity, &u.Priority, &u.ChannelID)
	return &u, err
}

// PostgresContactStore implements store.ContactStore.
type PostgresContactStore struct{ base }

// NewPostgresContactStore returns a store of contacts queried through pool.
func NewPostgresContactStore(pool Pool, logger *slog.Logger) *PostgresContactStore {
	return &PostgresContactStore{newBase(pool, logger, "contact_store")}
}

var _ store.ContactStore = (*PostgresContactStore)(nil)

func (s *PostgresContactStore) selectContacts() sq.SelectBuilder {
	return psql.Select(contactColumns...).From("contacts c")
}

func (s *PostgresContactStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Contact, error) {
	query := s.selectContacts().Where(sq.Eq{"c.org_id": orgID, "c.is_active": !opts.Deleted})
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"c.uuid": opts.UUID})
	}
	if opts.URN != "" {
		query = query.Where(sq.Expr("c.id IN (SELECT contact_id FROM contact_urns WHERE org_id = ? AND identity = ?)", orgID, opts.URN))
	}
	return s.load(ctx, paged(query, "c.id", opts))
}

func (s *PostgresContactStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Contact, error) {
	query := s.selectContacts().Where(sq.Eq{"c.org_id": orgID, "c.uuid": id, "c.is_active": true})
	return s.loadOne(ctx, query)
}

func (s *PostgresContactStore) GetByURN(ctx context.Context, orgID domain.OrgID, urn domain.URN) (*domain.Contact, error) {
	query := s.selectContacts().
		Join("contact_urns u ON u.contact_id = c.id").
		Where(sq.Eq{"u.org_id": orgID, "u.identity": urn, "c.is_active": true})
	return s.loadOne(ctx, query)
}

func (s *PostgresContactStore) GetByIDs(ctx context.Context, orgID domain.OrgID, ids []domain.ContactID) ([]*domain.Contact, error) {
	if len(ids) == 0 {
		return []*domain.Contact{}, nil
	}
	query := s.selectContacts().
		Where(sq.Eq{"c.org_id": orgID, "c.id": ids, "c.is_active": true}).
		OrderBy("c.id")
	return s.load(ctx, query)
}

func (s *PostgresContactStore) loadOne(ctx context.Context, query sq.SelectBuilder) (*domain.Contact, error) {
	contacts, err := s.load(ctx, query.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, store.ErrContactNotFound
	}
	return contacts[0], nil
}

// load runs query and attaches URNs, groups and field values.
func (s *PostgresContactStore) load(ctx context.Context, query sq.SelectBuilder) ([]*domain.Contact, error) {
	contacts, err := selectAll(ctx, s.q(ctx), query, scanContact)
	if err != nil {
		return nil, fmt.Errorf("selecting contacts: %w", err)
	}
	if len(contacts) == 0 {
		return []*domain.Contact{}, nil
	}

	ids := idsOf(contacts, func(c *domain.Contact) domain.ContactID { return c.ID })
	var (
		urns   map[domain.ContactID][]*domain.ContactURN
		groups map[domain.ContactID][]*domain.ContactGroup
		values map[domain.ContactID]map[string]*domain.Value
	)
	err = prefetch(ctx,
		func(ctx context.Context) (err error) { urns, err = s.urnsFor(ctx, ids); return err },
		func(ctx context.Context) (err error) { groups, err = s.groupsFor(ctx, ids); return err },
		func(ctx context.Context) (err error) { values, err = s.valuesFor(ctx, ids); return err },
	)
	if err != nil {
		return nil, fmt.Errorf("loading contact relations: %w", err)
	}

	for _, c := range contacts {
		c.URNs = urns[c.ID]
		c.Groups = groups[c.ID]
		c.Values = values[c.ID]
		if c.Values == nil {
			c.Values = map[string]*domain.Value{}
		}
	}
	return contacts, nil
}

func (s *PostgresContactStore) urnsFor(ctx context.Context, ids []domain.ContactID) (map[domain.ContactID][]*domain.ContactURN, error) {
	query := psql.Select(urnColumns...).
		From("contact_urns u").
		Where(sq.Eq{"u.contact_id": ids}).
		OrderBy("u.priority DESC", "u.id")
	urns, err := selectAll(ctx, s.q(ctx), query, scanURN)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ContactID][]*domain.ContactURN, len(ids))
	for _, u := range urns {
		out[u.ContactID] = append(out[u.ContactID], u)
	}
	return out, nil
}

func (s *PostgresContactStore) groupsFor(ctx context.Context, ids []domain.ContactID) (map[domain.ContactID][]*domain.ContactGroup, error) {
	query := psql.Select(append([]string{"m.contact_id"}, groupColumns...)...).
		From("contact_group_members m").
		Join("contact_groups g ON g.id = m.group_id").
		Where(sq.Eq{"m.contact_id": ids, "g.is_active": true}).
		OrderBy("g.id")

	type membership struct {
		contactID domain.ContactID
		group     *domain.ContactGroup
	}
	rows, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (membership, error) {
		var (
			m membership
			g domain.ContactGroup
		)
		err := row.Scan(&m.contactID, &g.ID, &g.UUID, &g.OrgID, &g.Name, &g.Query, &g.IsActive, &g.CreatedOn, &g.Count)
		m.group = &g
		return m, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ContactID][]*domain.ContactGroup, len(ids))
	for _, m := range rows {
		out[m.contactID] = append(out[m.contactID], m.group)
	}
	return out, nil
}

func (s *PostgresContactStore) valuesFor(ctx context.Context, ids []domain.ContactID) (map[domain.ContactID]map[string]*domain.Value, error) {
	query := psql.Select("v.contact_id", "f.key", "v.field_id", "v.string_value", "v.decimal_value::text", "v.datetime_value", "v.location_name").
		From("contact_values v").
		Join("contact_fields f ON f.id = v.field_id").
		Where(sq.Eq{"v.contact_id": ids, "f.is_active": true})

	type keyed struct {
		key   string
		value *domain.Value
	}
	rows, err := selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (keyed, error) {
		var (
			k keyed
			v domain.Value
		)
		err := row.Scan(&v.ContactID, &k.key, &v.FieldID, &v.StringValue, &v.DecimalValue, &v.DatetimeValue, &v.LocationName)
		k.value = &v
		return k, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ContactID]map[string]*domain.Value, len(ids))
	for _, r := range rows {
		if out[r.value.ContactID] == nil {
			out[r.value.ContactID] = map[string]*domain.Value{}
		}
		out[r.value.ContactID][r.key] = r.value
	}
	return out, nil
}

// urnOwner returns the row for urn in org, or nil when there is none.
func (s *PostgresContactStore) urnOwner(ctx context.Context, orgID domain.OrgID, urn domain.URN) (*domain.ContactURN, bool, error) {
	query := psql.Select(append(urnColumns, "COALESCE(c.is_active, FALSE)")...).
		From("contact_urns u").
		LeftJoin("contacts c ON c.id = u.contact_id").
		Where(sq.Eq{"u.org_id": orgID, "u.identity": urn}).
		Suffix("FOR UPDATE OF u")

	type owned struct {
		urn    *domain.ContactURN
		active bool
	}
	row, err := selectOne(ctx, s.q(ctx), query, func(row pgx.Row) (owned, error) {
		var (
			o owned
			u domain.ContactURN
		)
		err := row.Scan(&u.ID, &u.OrgID, &u.ContactID, &u.Identity, &u.Priority, &u.ChannelID, &o.active)
		o.urn = &u
		return o, err
	}, store.ErrNotFound)
	if store.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.urn, row.active, nil
}

// GetOrCreate returns the active contact owning the first of urns that has
// one, or creates a contact. URNs free in the org are attached to it below
// its existing ones.
func (s *PostgresContactStore) GetOrCreate(ctx context.Context, org *domain.Org, user *domain.User, name string, urns []domain.URN, language string) (*domain.Contact, error) {
	var contactID domain.ContactID
	for _, urn := range urns {
		row, active, err := s.urnOwner(ctx, org.ID, urn)
		if err != nil {
			return nil, fmt.Errorf("looking up urn: %w", err)
		}
		if row != nil && active {
			contactID = row.ContactID
			break
		}
	}

	if contactID == domain.NilContactID {
		insert := psql.Insert("contacts").
			Columns("uuid", "org_id", "name", "language", "is_active", "created_by", "modified_by").
			Values(uuid.New(), org.ID, name, language, true, user.ID, user.ID).
			Suffix("RETURNING id")
		if err := insertReturning(ctx, s.q(ctx), insert, &contactID); err != nil {
			s.logger.ErrorContext(ctx, "failed to create contact", "org_id", org.ID, "error", err)
			return nil, fmt.Errorf("creating contact: %w", err)
		}
	}

	lowest := psql.Select().
		Column(sq.Expr("COALESCE(MIN(priority), ?)", firstURNPriority+1)).
		From("contact_urns").
		Where(sq.Eq{"contact_id": contactID})
	priority, err := selectOne(ctx, s.q(ctx), lowest, func(row pgx.Row) (int, error) {
		var p int
		err := row.Scan(&p)
		return p, err
	}, store.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("finding urn priority: %w", err)
	}

	for _, urn := range urns {
		row, active, err := s.urnOwner(ctx, org.ID, urn)
		if err != nil {
			return nil, fmt.Errorf("looking up urn: %w", err)
		}
		if row != nil && (row.ContactID == contactID || active) {
			continue
		}
		priority--
		if err := s.attachURN(ctx, org.ID, contactID, urn, priority); err != nil {
			return nil, err
		}
	}

	return s.loadOne(ctx, s.selectContacts().Where(sq.Eq{"c.id": contactID}))
}

// attachURN points the org's row for urn at contact, creating it if needed.
func (s *PostgresContactStore) attachURN(ctx context.Context, orgID domain.OrgID, contactID domain.ContactID, urn domain.URN, priority int) error {
	upsert := psql.Insert("contact_urns").
		Columns("org_id", "contact_id", "identity", "priority").
		Values(orgID, contactID, urn, priority).
		Suffix("ON CONFLICT (org_id, identity) DO UPDATE SET contact_id = EXCLUDED.contact_id, priority = EXCLUDED.priority")
	if err := execQuery(ctx, s.q(ctx), upsert, nil); err != nil {
		return fmt.Errorf("attaching urn: %w", err)
	}
	return nil
}

// touch records a modification of contact by user.
func (s *PostgresContactStore) touch(ctx context.Context, contact *domain.Contact, user *domain.User, set map[string]any) error {
	update := psql.Update("contacts").
		SetMap(set).
		Set("modified_by", user.ID).
		Set("modified_on", sq.Expr("NOW()")).
		Where(sq.Eq{"id": contact.ID}).
		Suffix("RETURNING modified_on")
	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.q(ctx).QueryRow(ctx, sql, args...).Scan(&contact.ModifiedOn); err != nil {
		return mapNotFound(err, store.ErrContactNotFound)
	}
	contact.ModifiedBy = user.ID
	return nil
}

func (s *PostgresContactStore) Update(ctx context.Context, contact *domain.Contact, user *domain.User) error {
	return s.touch(ctx, contact, user, map[string]any{"name": contact.Name, "language": contact.Language})
}

// UpdateURNs replaces the URNs of contact with urns, in priority order.
// URNs it drops are kept as orphans so they can be claimed again.
func (s *PostgresContactStore) UpdateURNs(ctx context.Context, contact *domain.Contact, user *domain.User, urns []domain.URN) error {
	for _, urn := range urns {
		row, active, err := s.urnOwner(ctx, contact.OrgID, urn)
		if err != nil {
			return fmt.Errorf("looking up urn: %w", err)
		}
		if row != nil && active && row.ContactID != contact.ID {
			return store.ErrURNTaken
		}
	}

	detach := psql.Update("contact_urns").
		Set("contact_id", nil).
		Where(sq.Eq{"contact_id": contact.ID})
	if len(urns) > 0 {
		detach = detach.Where(sq.NotEq{"identity": urns})
	}
	if err := execQuery(ctx, s.q(ctx), detach, nil); err != nil {
		return fmt.Errorf("detaching urns: %w", err)
	}

	for i, urn := range urns {
		if err := s.attachURN(ctx, contact.OrgID, contact.ID, urn, firstURNPriority-i); err != nil {
			return err
		}
	}

	if err := s.touch(ctx, contact, user, nil); err != nil {
		return err
	}
	loaded, err := s.urnsFor(ctx, []domain.ContactID{contact.ID})
	if err != nil {
		return fmt.Errorf("reloading urns: %w", err)
	}
	contact.URNs = loaded[contact.ID]
	return nil
}

// SetField stores value for field on contact, or clears it when value is nil.
func (s *PostgresContactStore) SetField(ctx context.Context, contact *domain.Contact, user *domain.User, field *domain.ContactField, value *string) error {
	var query sq.Sqlizer
	if value == nil {
		query = psql.Delete("contact_values").Where(sq.Eq{"contact_id": contact.ID, "field_id": field.ID})
	} else {
		v := domain.ParseFieldValue(field, *value)
		query = psql.Insert("contact_values").
			Columns("contact_id", "field_id", "string_value", "decimal_value", "datetime_value", "location_name").
			Values(contact.ID, field.ID, v.StringValue, sq.Expr("?::text::numeric", v.DecimalValue), v.DatetimeValue, v.LocationName).
			Suffix(`ON CONFLICT (contact_id, field_id) DO UPDATE SET
				string_value = EXCLUDED.string_value,
				decimal_value = EXCLUDED.decimal_value,
				datetime_value = EXCLUDED.datetime_value,
				location_name = EXCLUDED.location_name`)
	}
	if err := execQuery(ctx, s.q(ctx), query, nil); err != nil {
		return fmt.Errorf("setting field %s: %w", field.Key, err)
	}

	if err := s.touch(ctx, contact, user, nil); err != nil {
		return err
	}
	loaded, err := s.valuesFor(ctx, []domain.ContactID{contact.ID})
	if err != nil {
		return fmt.Errorf("reloading values: %w", err)
	}
	contact.Values = loaded[contact.ID]
	if contact.Values == nil {
		contact.Values = map[string]*domain.Value{}
	}
	return nil
}

// UpdateStaticGroups makes groups the static groups of contact. Dynamic
// group memberships are left alone.
func (s *PostgresContactStore) UpdateStaticGroups(ctx context.Context, contact *domain.Contact, user *domain.User, groups []*domain.ContactGroup) error {
	remove := psql.Delete("contact_group_members").
		Where(sq.Eq{"contact_id": contact.ID}).
		Where("group_id IN (SELECT id FROM contact_groups WHERE query = '')")
	if err := execQuery(ctx, s.q(ctx), remove, nil); err != nil {
		return fmt.Errorf("clearing groups: %w", err)
	}

	if len(groups) > 0 {
		insert := psql.Insert("contact_group_members").Columns("group_id", "contact_id")
		for _, g := range groups {
			insert = insert.Values(g.ID, contact.ID)
		}
		insert = insert.Suffix("ON CONFLICT DO NOTHING")
		if err := execQuery(ctx, s.q(ctx), insert, nil); err != nil {
			return fmt.Errorf("adding groups: %w", err)
		}
	}

	if err := s.touch(ctx, contact, user, nil); err != nil {
		return err
	}
	loaded, err := s.groupsFor(ctx, []domain.ContactID{contact.ID})
	if err != nil {
		return fmt.Errorf("reloading groups: %w", err)
	}
	contact.Groups = loaded[contact.ID]
	return nil
}

// ListIDsInGroups returns the sendable members of any of groupIDs.
func (s *PostgresContactStore) ListIDsInGroups(ctx context.Context, groupIDs []domain.ContactGroupID) ([]domain.ContactID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query := psql.Select("DISTINCT m.contact_id").
		From("contact_group_members m").
		Join("contacts c ON c.id = m.contact_id").
		Where(sq.Eq{"m.group_id": groupIDs, "c.is_active": true, "c.is_blocked": false, "c.is_stopped": false}).
		OrderBy("m.contact_id")
	return selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (domain.ContactID, error) {
		var id domain.ContactID
		err := row.Scan(&id)
		return id, err
	})
}
