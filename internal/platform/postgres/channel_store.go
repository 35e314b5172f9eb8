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

// PostgresChannelStore implements store.ChannelStore.
type PostgresChannelStore struct{ base }

// NewPostgresChannelStore returns a store of channels queried through pool.
func NewPostgresChannelStore(pool Pool, logger *slog.Logger) *PostgresChannelStore {
	return &PostgresChannelStore{newBase(pool, logger, "channel_store")}
}

var _ store.ChannelStore = (*PostgresChannelStore)(nil)

// selectChannels joins each channel to its most recent sync event.
func (s *PostgresChannelStore) selectChannels(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(
		"ch.id", "ch.uuid", "ch.org_id", "ch.name", "ch.address", "ch.country", "ch.channel_type", "ch.device",
		"ch.is_active", "ch.last_seen", "ch.created_on",
		"se.power_level", "se.power_status", "se.power_source", "se.network_type",
	).
		From("channels ch").
		JoinClause(`LEFT JOIN LATERAL (
			SELECT power_level, power_status, power_source, network_type FROM channel_sync_events
			WHERE channel_id = ch.id ORDER BY id DESC LIMIT 1
		) se ON TRUE`).
		Where(sq.Eq{"ch.org_id": orgID, "ch.is_active": true})
}

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var (
		c                                      domain.Channel
		powerLevel                             *int
		powerStatus, powerSource, networkType *string
	)
	err := row.Scan(&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.Address, &c.Country, &c.ChannelType, &c.Device,
		&c.IsActive, &c.LastSeen, &c.CreatedOn,
		&powerLevel, &powerStatus, &powerSource, &networkType)
	if err != nil {
		return nil, err
	}
	if powerLevel != nil {
		c.LastSync = &domain.SyncEvent{
			PowerLevel:  *powerLevel,
			PowerStatus: *powerStatus,
			PowerSource: *powerSource,
			NetworkType: *networkType,
		}
	}
	return &c, nil
}

func (s *PostgresChannelStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Channel, error) {
	query := s.selectChannels(orgID)
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"ch.uuid": opts.UUID})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "ch.id", opts), scanChannel)
}

func (s *PostgresChannelStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Channel, error) {
	return selectOne(ctx, s.q(ctx), s.selectChannels(orgID).Where(sq.Eq{"ch.uuid": id}), scanChannel, store.ErrChannelNotFound)
}

// PostgresChannelEventStore implements store.ChannelEventStore.
type PostgresChannelEventStore struct{ base }

// NewPostgresChannelEventStore returns a store of channel events queried through pool.
func NewPostgresChannelEventStore(pool Pool, logger *slog.Logger) *PostgresChannelEventStore {
	return &PostgresChannelEventStore{newBase(pool, logger, "channel_event_store")}
}

var _ store.ChannelEventStore = (*PostgresChannelEventStore)(nil)

func (s *PostgresChannelEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ChannelEvent, error) {
	query := psql.Select(
		"e.id", "e.org_id", "e.event_type", "e.time", "e.duration", "e.created_on",
		"c.id", "c.uuid", "c.name",
		"ch.id", "ch.uuid", "ch.name",
	).
		From("channel_events e").
		Join("contacts c ON c.id = e.contact_id").
		Join("channels ch ON ch.id = e.channel_id").
		Where(sq.Eq{"e.org_id": orgID})

	return selectAll(ctx, s.q(ctx), paged(query, "e.id", opts), func(row pgx.Row) (*domain.ChannelEvent, error) {
		var (
			e       domain.ChannelEvent
			contact domain.Contact
			channel domain.Channel
		)
		err := row.Scan(&e.ID, &e.OrgID, &e.EventType, &e.Time, &e.Duration, &e.CreatedOn,
			&contact.ID, &contact.UUID, &contact.Name,
			&channel.ID, &channel.UUID, &channel.Name)
		e.Contact = &contact
		e.Channel = &channel
		return &e, err
	})
}
