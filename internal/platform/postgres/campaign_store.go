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

var campaignColumns = append([]string{
	"cp.id", "cp.uuid", "cp.org_id", "cp.name", "cp.is_active", "cp.is_archived",
	"cp.created_by", "cp.modified_by", "cp.created_on", "cp.modified_on",
}, groupColumns...)

func campaignDest(c *domain.Campaign, g *domain.ContactGroup) []any {
	return []any{
		&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.IsActive, &c.IsArchived,
		&c.CreatedBy, &c.ModifiedBy, &c.CreatedOn, &c.ModifiedOn,
		&g.ID, &g.UUID, &g.OrgID, &g.Name, &g.Query, &g.IsActive, &g.CreatedOn, &g.Count,
	}
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c domain.Campaign
		g domain.ContactGroup
	)
	if err := row.Scan(campaignDest(&c, &g)...); err != nil {
		return nil, err
	}
	c.Group = &g
	return &c, nil
}

// PostgresCampaignStore implements store.CampaignStore.
type PostgresCampaignStore struct{ base }

// NewPostgresCampaignStore returns a store of campaigns queried through pool.
func NewPostgresCampaignStore(pool Pool, logger *slog.Logger) *PostgresCampaignStore {
	return &PostgresCampaignStore{newBase(pool, logger, "campaign_store")}
}

var _ store.CampaignStore = (*PostgresCampaignStore)(nil)

func (s *PostgresCampaignStore) selectCampaigns(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(campaignColumns...).
		From("campaigns cp").
		Join("contact_groups g ON g.id = cp.group_id").
		Where(sq.Eq{"cp.org_id": orgID, "cp.is_active": true})
}

func (s *PostgresCampaignStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Campaign, error) {
	query := s.selectCampaigns(orgID)
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"cp.uuid": opts.UUID})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "cp.id", opts), scanCampaign)
}

func (s *PostgresCampaignStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.Campaign, error) {
	query := s.selectCampaigns(orgID).Where(sq.Eq{"cp.uuid": id})
	return selectOne(ctx, s.q(ctx), query, scanCampaign, store.ErrCampaignNotFound)
}

func (s *PostgresCampaignStore) Create(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.UUID == uuid.Nil {
		campaign.UUID = uuid.New()
	}
	if campaign.ModifiedBy == domain.NilUserID {
		campaign.ModifiedBy = campaign.CreatedBy
	}
	insert := psql.Insert("campaigns").
		Columns("uuid", "org_id", "name", "group_id", "is_active", "created_by", "modified_by").
		Values(campaign.UUID, campaign.OrgID, campaign.Name, campaign.Group.ID, true, campaign.CreatedBy, campaign.ModifiedBy).
		Suffix("RETURNING id, created_on, modified_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &campaign.ID, &campaign.CreatedOn, &campaign.ModifiedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create campaign", "org_id", campaign.OrgID, "error", err)
		return fmt.Errorf("creating campaign: %w", MapUniqueViolation(err, campaignNameIndex, store.ErrNameTaken))
	}
	campaign.IsActive = true
	return nil
}

func (s *PostgresCampaignStore) Update(ctx context.Context, campaign *domain.Campaign) error {
	update := psql.Update("campaigns").
		Set("name", campaign.Name).
		Set("group_id", campaign.Group.ID).
		Set("modified_by", campaign.ModifiedBy).
		Set("modified_on", sq.Expr("NOW()")).
		Where(sq.Eq{"id": campaign.ID}).
		Suffix("RETURNING modified_on")

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.q(ctx).QueryRow(ctx, sql, args...).Scan(&campaign.ModifiedOn); err != nil {
		return MapUniqueViolation(mapNotFound(err, store.ErrCampaignNotFound), campaignNameIndex, store.ErrNameTaken)
	}
	return nil
}

func (s *PostgresCampaignStore) NameExists(ctx context.Context, orgID domain.OrgID, name string, exclude domain.CampaignID) (bool, error) {
	query := psql.Select("1").
		From("campaigns").
		Where(sq.Eq{"org_id": orgID, "is_active": true}).
		Where(sq.NotEq{"id": exclude}).
		Where(sameName("name", name))
	return exists(ctx, s.q(ctx), query)
}

// PostgresCampaignEventStore implements store.CampaignEventStore.
type PostgresCampaignEventStore struct{ base }

// NewPostgresCampaignEventStore returns a store of campaign events queried through pool.
func NewPostgresCampaignEventStore(pool Pool, logger *slog.Logger) *PostgresCampaignEventStore {
	return &PostgresCampaignEventStore{newBase(pool, logger, "campaign_event_store")}
}

var _ store.CampaignEventStore = (*PostgresCampaignEventStore)(nil)

func (s *PostgresCampaignEventStore) selectEvents(orgID domain.OrgID) sq.SelectBuilder {
	columns := append([]string{
		"e.id", "e.uuid", "e.event_type", `e."offset"`, "e.unit", "e.delivery_hour", "e.message", "e.is_active",
		"e.created_by", "e.modified_by", "e.created_on", "e.modified_on",
		"f.id", "f.org_id", "f.key", "f.label", "f.value_type", "f.is_active",
		"fl.id", "fl.uuid", "fl.name", "fl.flow_type", "fl.base_language",
	}, campaignColumns...)

	return psql.Select(columns...).
		From("campaign_events e").
		Join("campaigns cp ON cp.id = e.campaign_id").
		Join("contact_groups g ON g.id = cp.group_id").
		Join("contact_fields f ON f.id = e.relative_to_id").
		Join("flows fl ON fl.id = e.flow_id").
		Where(sq.Eq{"cp.org_id": orgID, "e.is_active": true})
}

func scanEvent(row pgx.Row) (*domain.CampaignEvent, error) {
	var (
		e        domain.CampaignEvent
		field    domain.ContactField
		flow     domain.Flow
		campaign domain.Campaign
		group    domain.ContactGroup
	)
	dest := []any{
		&e.ID, &e.UUID, &e.EventType, &e.Offset, &e.Unit, &e.DeliveryHour, &e.Message, &e.IsActive,
		&e.CreatedBy, &e.ModifiedBy, &e.CreatedOn, &e.ModifiedOn,
		&field.ID, &field.OrgID, &field.Key, &field.Label, &field.ValueType, &field.IsActive,
		&flow.ID, &flow.UUID, &flow.Name, &flow.FlowType, &flow.BaseLanguage,
	}
	if err := row.Scan(append(dest, campaignDest(&campaign, &group)...)...); err != nil {
		return nil, err
	}
	campaign.Group = &group
	flow.OrgID = campaign.OrgID
	e.Campaign = &campaign
	e.RelativeTo = &field
	e.Flow = &flow
	return &e, nil
}

func (s *PostgresCampaignEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.CampaignEvent, error) {
	query := s.selectEvents(orgID)
	if opts.UUID != uuid.Nil {
		query = query.Where(sq.Eq{"e.uuid": opts.UUID})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "e.id", opts), scanEvent)
}

func (s *PostgresCampaignEventStore) GetByUUID(ctx context.Context, orgID domain.OrgID, id uuid.UUID) (*domain.CampaignEvent, error) {
	query := s.selectEvents(orgID).Where(sq.Eq{"e.uuid": id})
	return selectOne(ctx, s.q(ctx), query, scanEvent, store.ErrEventNotFound)
}

func (s *PostgresCampaignEventStore) Create(ctx context.Context, event *domain.CampaignEvent) error {
	if event.UUID == uuid.Nil {
		event.UUID = uuid.New()
	}
	if event.ModifiedBy == domain.NilUserID {
		event.ModifiedBy = event.CreatedBy
	}
	insert := psql.Insert("campaign_events").
		Columns("uuid", "campaign_id", "event_type", "relative_to_id", `"offset"`, "unit", "delivery_hour",
			"flow_id", "message", "is_active", "created_by", "modified_by").
		Values(event.UUID, event.Campaign.ID, event.EventType, event.RelativeTo.ID, event.Offset, event.Unit,
			event.DeliveryHour, event.Flow.ID, event.Message, true, event.CreatedBy, event.ModifiedBy).
		Suffix("RETURNING id, created_on, modified_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &event.ID, &event.CreatedOn, &event.ModifiedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create campaign event", "campaign_id", event.Campaign.ID, "error", err)
		return fmt.Errorf("creating campaign event: %w", err)
	}
	event.IsActive = true
	return nil
}

// Update rewrites every mutable column of the event.
func (s *PostgresCampaignEventStore) Update(ctx context.Context, event *domain.CampaignEvent) error {
	update := psql.Update("campaign_events").
		SetMap(map[string]any{
			"campaign_id":    event.Campaign.ID,
			"event_type":     event.EventType,
			"relative_to_id": event.RelativeTo.ID,
			`"offset"`:       event.Offset,
			"unit":           event.Unit,
			"delivery_hour":  event.DeliveryHour,
			"flow_id":        event.Flow.ID,
			"message":        event.Message,
			"modified_by":    event.ModifiedBy,
			"modified_on":    sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": event.ID}).
		Suffix("RETURNING modified_on")

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.q(ctx).QueryRow(ctx, sql, args...).Scan(&event.ModifiedOn); err != nil {
		return mapNotFound(err, store.ErrEventNotFound)
	}
	return nil
}
