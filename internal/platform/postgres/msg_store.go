package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

// contactRefColumns are the contact columns embedded in other entities.
var contactRefColumns = []string{"c.id", "c.uuid", "c.org_id", "c.name", "c.language", "c.is_active"}

func contactRefDest(c *domain.Contact) []any {
	return []any{&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.Language, &c.IsActive}
}

// PostgresBroadcastStore implements store.BroadcastStore.
type PostgresBroadcastStore struct{ base }

// NewPostgresBroadcastStore returns a store of broadcasts queried through pool.
func NewPostgresBroadcastStore(pool Pool, logger *slog.Logger) *PostgresBroadcastStore {
	return &PostgresBroadcastStore{newBase(pool, logger, "broadcast_store")}
}

var _ store.BroadcastStore = (*PostgresBroadcastStore)(nil)

func (s *PostgresBroadcastStore) selectBroadcasts(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select("b.id", "b.org_id", "b.text", "b.translations", "b.base_language", "b.purged",
		"ch.id", "ch.uuid", "ch.name", "b.created_by", "b.created_on").
		From("broadcasts b").
		LeftJoin("channels ch ON ch.id = b.channel_id").
		Where(sq.Eq{"b.org_id": orgID})
}

func scanBroadcast(row pgx.Row) (*domain.Broadcast, error) {
	var (
		b            domain.Broadcast
		translations []byte
		channel      nullableRef
	)
	err := row.Scan(&b.ID, &b.OrgID, &b.Text, &translations, &b.BaseLanguage, &b.Purged,
		&channel.id, &channel.uuid, &channel.name, &b.CreatedBy, &b.CreatedOn)
	if err != nil {
		return nil, err
	}
	if len(translations) > 0 {
		if err := json.Unmarshal(translations, &b.Translations); err != nil {
			return nil, fmt.Errorf("decoding translations: %w", err)
		}
	}
	if channel.id != nil {
		b.Channel = &domain.Channel{ID: domain.ChannelID(*channel.id), UUID: *channel.uuid, Name: *channel.name}
	}
	return &b, nil
}

func (s *PostgresBroadcastStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Broadcast, error) {
	return s.load(ctx, paged(s.selectBroadcasts(orgID), "b.id", opts))
}

func (s *PostgresBroadcastStore) GetByID(ctx context.Context, orgID domain.OrgID, id domain.BroadcastID) (*domain.Broadcast, error) {
	broadcasts, err := s.load(ctx, s.selectBroadcasts(orgID).Where(sq.Eq{"b.id": id}))
	if err != nil {
		return nil, err
	}
	if len(broadcasts) == 0 {
		return nil, store.ErrBroadcastNotFound
	}
	return broadcasts[0], nil
}

// load runs query and attaches recipients.
func (s *PostgresBroadcastStore) load(ctx context.Context, query sq.SelectBuilder) ([]*domain.Broadcast, error) {
	broadcasts, err := selectAll(ctx, s.q(ctx), query, scanBroadcast)
	if err != nil || len(broadcasts) == 0 {
		return broadcasts, err
	}

	byID := make(map[domain.BroadcastID]*domain.Broadcast, len(broadcasts))
	for _, b := range broadcasts {
		byID[b.ID] = b
	}
	ids := idsOf(broadcasts, func(b *domain.Broadcast) domain.BroadcastID { return b.ID })

	var (
		urns     []recipient[*domain.ContactURN]
		contacts []recipient[*domain.Contact]
		groups   []recipient[*domain.ContactGroup]
	)
	err = prefetch(ctx,
		func(ctx context.Context) (err error) {
			query := psql.Select(append([]string{"bu.broadcast_id"}, urnColumns...)...).
				From("broadcast_urns bu").
				Join("contact_urns u ON u.id = bu.urn_id").
				Where(sq.Eq{"bu.broadcast_id": ids}).
				OrderBy("u.id")
			urns, err = selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (recipient[*domain.ContactURN], error) {
				var (
					r recipient[*domain.ContactURN]
					u domain.ContactURN
				)
				err := row.Scan(&r.broadcastID, &u.ID, &u.OrgID, &u.ContactID, &u.Identity, &u.Priority, &u.ChannelID)
				r.item = &u
				return r, err
			})
			return err
		},
		func(ctx context.Context) (err error) {
			query := psql.Select(append([]string{"bc.broadcast_id"}, contactRefColumns...)...).
				From("broadcast_contacts bc").
				Join("contacts c ON c.id = bc.contact_id").
				Where(sq.Eq{"bc.broadcast_id": ids}).
				OrderBy("c.id")
			contacts, err = selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (recipient[*domain.Contact], error) {
				var (
					r recipient[*domain.Contact]
					c domain.Contact
				)
				err := row.Scan(append([]any{&r.broadcastID}, contactRefDest(&c)...)...)
				r.item = &c
				return r, err
			})
			return err
		},
		func(ctx context.Context) (err error) {
			query := psql.Select(append([]string{"bg.broadcast_id"}, groupColumns...)...).
				From("broadcast_groups bg").
				Join("contact_groups g ON g.id = bg.group_id").
				Where(sq.Eq{"bg.broadcast_id": ids}).
				OrderBy("g.id")
			groups, err = selectAll(ctx, s.q(ctx), query, func(row pgx.Row) (recipient[*domain.ContactGroup], error) {
				var (
					r recipient[*domain.ContactGroup]
					g domain.ContactGroup
				)
				err := row.Scan(&r.broadcastID, &g.ID, &g.UUID, &g.OrgID, &g.Name, &g.Query, &g.IsActive, &g.CreatedOn, &g.Count)
				r.item = &g
				return r, err
			})
			return err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("loading broadcast recipients: %w", err)
	}

	for _, r := range urns {
		byID[r.broadcastID].URNs = append(byID[r.broadcastID].URNs, r.item)
	}
	for _, r := range contacts {
		byID[r.broadcastID].Contacts = append(byID[r.broadcastID].Contacts, r.item)
	}
	for _, r := range groups {
		byID[r.broadcastID].Groups = append(byID[r.broadcastID].Groups, r.item)
	}
	return broadcasts, nil
}

type recipient[T any] struct {
	broadcastID domain.BroadcastID
	item        T
}

// Create saves broadcast and its recipients. Recipient URNs must already
// exist as contact URN rows.
func (s *PostgresBroadcastStore) Create(ctx context.Context, broadcast *domain.Broadcast) error {
	var translations []byte
	if len(broadcast.Translations) > 0 {
		var err error
		if translations, err = json.Marshal(broadcast.Translations); err != nil {
			return fmt.Errorf("encoding translations: %w", err)
		}
	}
	var channelID *domain.ChannelID
	if broadcast.Channel != nil {
		channelID = &broadcast.Channel.ID
	}

	insert := psql.Insert("broadcasts").
		Columns("org_id", "text", "translations", "base_language", "purged", "channel_id", "created_by").
		Values(broadcast.OrgID, broadcast.Text, translations, broadcast.BaseLanguage, broadcast.Purged, channelID, broadcast.CreatedBy).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &broadcast.ID, &broadcast.CreatedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create broadcast", "org_id", broadcast.OrgID, "error", err)
		return fmt.Errorf("creating broadcast: %w", err)
	}

	if len(broadcast.URNs) > 0 {
		insert := psql.Insert("broadcast_urns").Columns("broadcast_id", "urn_id")
		for _, u := range broadcast.URNs {
			insert = insert.Values(broadcast.ID, sq.Expr("(SELECT id FROM contact_urns WHERE org_id = ? AND identity = ?)", broadcast.OrgID, u.Identity))
		}
		if err := execQuery(ctx, s.q(ctx), insert, nil); err != nil {
			return fmt.Errorf("adding broadcast urns: %w", err)
		}
	}
	if len(broadcast.Contacts) > 0 {
		insert := psql.Insert("broadcast_contacts").Columns("broadcast_id", "contact_id")
		for _, c := range broadcast.Contacts {
			insert = insert.Values(broadcast.ID, c.ID)
		}
		if err := execQuery(ctx, s.q(ctx), insert.Suffix("ON CONFLICT DO NOTHING"), nil); err != nil {
			return fmt.Errorf("adding broadcast contacts: %w", err)
		}
	}
	if len(broadcast.Groups) > 0 {
		insert := psql.Insert("broadcast_groups").Columns("broadcast_id", "group_id")
		for _, g := range broadcast.Groups {
			insert = insert.Values(broadcast.ID, g.ID)
		}
		if err := execQuery(ctx, s.q(ctx), insert.Suffix("ON CONFLICT DO NOTHING"), nil); err != nil {
			return fmt.Errorf("adding broadcast groups: %w", err)
		}
	}
	return nil
}

// nullableRef scans the uuid reference columns of an outer joined row.
type nullableRef struct {
	id   *int64
	uuid *uuid.UUID
	name *string
}

// PostgresMsgStore implements store.MsgStore.
type PostgresMsgStore struct{ base }

// NewPostgresMsgStore returns a store of messages queried through pool.
func NewPostgresMsgStore(pool Pool, logger *slog.Logger) *PostgresMsgStore {
	return &PostgresMsgStore{newBase(pool, logger, "msg_store")}
}

var _ store.MsgStore = (*PostgresMsgStore)(nil)

// List returns messages which aren't deleted, with their labels.
func (s *PostgresMsgStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Msg, error) {
	query := psql.Select(append([]string{
		"m.id", "m.org_id", "COALESCE(m.broadcast_id, 0)", "m.direction", "m.msg_type", "m.status", "m.visibility",
		"m.text", "m.created_on", "m.sent_on", "m.modified_on",
		"u.id", "u.identity",
		"ch.id", "ch.uuid", "ch.name",
	}, contactRefColumns...)...).
		From("msgs m").
		Join("contacts c ON c.id = m.contact_id").
		LeftJoin("contact_urns u ON u.id = m.contact_urn_id").
		LeftJoin("channels ch ON ch.id = m.channel_id").
		Where(sq.Eq{"m.org_id": orgID}).
		Where(sq.NotEq{"m.visibility": domain.MsgVisibilityDeleted})

	msgs, err := selectAll(ctx, s.q(ctx), paged(query, "m.id", opts), scanMsg)
	if err != nil || len(msgs) == 0 {
		return msgs, err
	}

	byID := make(map[domain.MsgID]*domain.Msg, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}
	labels := psql.Select("ml.msg_id", "l.id", "l.uuid", "l.org_id", "l.name", "l.is_active", "l.created_on").
		From("msg_labels ml").
		Join("labels l ON l.id = ml.label_id").
		Where(sq.Eq{"ml.msg_id": idsOf(msgs, func(m *domain.Msg) domain.MsgID { return m.ID }), "l.is_active": true}).
		OrderBy("l.id")
	_, err = selectAll(ctx, s.q(ctx), labels, func(row pgx.Row) (struct{}, error) {
		var (
			msgID domain.MsgID
			l     domain.Label
		)
		if err := row.Scan(&msgID, &l.ID, &l.UUID, &l.OrgID, &l.Name, &l.IsActive, &l.CreatedOn); err != nil {
			return struct{}{}, err
		}
		byID[msgID].Labels = append(byID[msgID].Labels, &l)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading msg labels: %w", err)
	}
	return msgs, nil
}

func scanMsg(row pgx.Row) (*domain.Msg, error) {
	var (
		m        domain.Msg
		contact  domain.Contact
		urnID    *domain.ContactURNID
		identity *domain.URN
		channel  nullableRef
	)
	dest := []any{&m.ID, &m.OrgID, &m.BroadcastID, &m.Direction, &m.MsgType, &m.Status, &m.Visibility,
		&m.Text, &m.CreatedOn, &m.SentOn, &m.ModifiedOn,
		&urnID, &identity,
		&channel.id, &channel.uuid, &channel.name}
	if err := row.Scan(append(dest, contactRefDest(&contact)...)...); err != nil {
		return nil, err
	}
	m.Contact = &contact
	if urnID != nil {
		m.ContactURN = &domain.ContactURN{ID: *urnID, OrgID: m.OrgID, ContactID: contact.ID, Identity: *identity}
	}
	if channel.id != nil {
		m.Channel = &domain.Channel{ID: domain.ChannelID(*channel.id), UUID: *channel.uuid, Name: *channel.name}
	}
	return &m, nil
}

// CreateOutgoing inserts msgs as outgoing messages in a single statement.
func (s *PostgresMsgStore) CreateOutgoing(ctx context.Context, msgs []*domain.Msg) error {
	if len(msgs) == 0 {
		return nil
	}

	insert := psql.Insert("msgs").
		Columns("org_id", "broadcast_id", "contact_id", "contact_urn_id", "channel_id", "direction", "msg_type",
			"status", "visibility", "text")
	for _, m := range msgs {
		var (
			broadcastID *domain.BroadcastID
			urnID       *domain.ContactURNID
			channelID   *domain.ChannelID
		)
		if m.BroadcastID != domain.NilBroadcastID {
			broadcastID = &m.BroadcastID
		}
		if m.ContactURN != nil {
			urnID = &m.ContactURN.ID
		}
		if m.Channel != nil {
			channelID = &m.Channel.ID
		}
		msgType := m.MsgType
		if msgType == "" {
			msgType = domain.MsgTypeInbox
		}
		visibility := m.Visibility
		if visibility == "" {
			visibility = domain.MsgVisibilityVisible
		}
		insert = insert.Values(m.OrgID, broadcastID, m.Contact.ID, urnID, channelID, domain.MsgDirectionOut, msgType,
			m.Status, visibility, m.Text)
	}
	insert = insert.Suffix("RETURNING id, created_on")

	sql, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return MapError(err)
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		m := msgs[i]
		if err := rows.Scan(&m.ID, &m.CreatedOn); err != nil {
			return MapError(err)
		}
		m.ModifiedOn = m.CreatedOn
		m.Direction = domain.MsgDirectionOut
	}
	if err := rows.Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to create outgoing msgs", "count", len(msgs), "error", err)
		return MapError(err)
	}
	return nil
}
