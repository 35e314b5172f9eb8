package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
)

var resthookColumns = []string{"rh.id", "rh.org_id", "rh.slug", "rh.is_active", "rh.created_on", "rh.modified_on"}

func resthookDest(r *domain.Resthook) []any {
	return []any{&r.ID, &r.OrgID, &r.Slug, &r.IsActive, &r.CreatedOn, &r.ModifiedOn}
}

// PostgresResthookStore implements store.ResthookStore.
type PostgresResthookStore struct{ base }

// NewPostgresResthookStore returns a store of resthooks queried through pool.
func NewPostgresResthookStore(pool Pool, logger *slog.Logger) *PostgresResthookStore {
	return &PostgresResthookStore{newBase(pool, logger, "resthook_store")}
}

var _ store.ResthookStore = (*PostgresResthookStore)(nil)

func (s *PostgresResthookStore) selectResthooks(orgID domain.OrgID) sq.SelectBuilder {
	return psql.Select(resthookColumns...).
		From("resthooks rh").
		Where(sq.Eq{"rh.org_id": orgID, "rh.is_active": true})
}

func scanResthook(row pgx.Row) (*domain.Resthook, error) {
	var r domain.Resthook
	err := row.Scan(resthookDest(&r)...)
	return &r, err
}

func (s *PostgresResthookStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.Resthook, error) {
	query := s.selectResthooks(orgID)
	if opts.Slug != "" {
		query = query.Where(sq.Eq{"rh.slug": opts.Slug})
	}
	return selectAll(ctx, s.q(ctx), paged(query, "rh.id", opts), scanResthook)
}

func (s *PostgresResthookStore) GetBySlug(ctx context.Context, orgID domain.OrgID, slug string) (*domain.Resthook, error) {
	query := s.selectResthooks(orgID).Where(sq.Eq{"rh.slug": slug})
	return selectOne(ctx, s.q(ctx), query, scanResthook, store.ErrResthookNotFound)
}

// PostgresResthookSubscriberStore implements store.ResthookSubscriberStore.
type PostgresResthookSubscriberStore struct{ base }

// NewPostgresResthookSubscriberStore returns a store of resthook subscribers queried through pool.
func NewPostgresResthookSubscriberStore(pool Pool, logger *slog.Logger) *PostgresResthookSubscriberStore {
	return &PostgresResthookSubscriberStore{newBase(pool, logger, "resthook_subscriber_store")}
}

var _ store.ResthookSubscriberStore = (*PostgresResthookSubscriberStore)(nil)

func (s *PostgresResthookSubscriberStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.ResthookSubscriber, error) {
	columns := append([]string{"rs.id", "rs.target_url", "rs.is_active", "rs.created_by", "rs.created_on"}, resthookColumns...)
	query := psql.Select(columns...).
		From("resthook_subscribers rs").
		Join("resthooks rh ON rh.id = rs.resthook_id").
		Where(sq.Eq{"rh.org_id": orgID, "rs.is_active": true})
	if opts.Slug != "" {
		query = query.Where(sq.Eq{"rh.slug": opts.Slug})
	}

	return selectAll(ctx, s.q(ctx), paged(query, "rs.id", opts), func(row pgx.Row) (*domain.ResthookSubscriber, error) {
		var (
			sub domain.ResthookSubscriber
			rh  domain.Resthook
		)
		dest := []any{&sub.ID, &sub.TargetURL, &sub.IsActive, &sub.CreatedBy, &sub.CreatedOn}
		err := row.Scan(append(dest, resthookDest(&rh)...)...)
		sub.Resthook = &rh
		return &sub, err
	})
}

func (s *PostgresResthookSubscriberStore) Exists(ctx context.Context, resthookID domain.ResthookID, targetURL string) (bool, error) {
	query := psql.Select("1").
		From("resthook_subscribers").
		Where(sq.Eq{"resthook_id": resthookID, "target_url": targetURL, "is_active": true})
	return exists(ctx, s.q(ctx), query)
}

func (s *PostgresResthookSubscriberStore) Create(ctx context.Context, subscriber *domain.ResthookSubscriber) error {
	insert := psql.Insert("resthook_subscribers").
		Columns("resthook_id", "target_url", "is_active", "created_by").
		Values(subscriber.Resthook.ID, subscriber.TargetURL, true, subscriber.CreatedBy).
		Suffix("RETURNING id, created_on")
	if err := insertReturning(ctx, s.q(ctx), insert, &subscriber.ID, &subscriber.CreatedOn); err != nil {
		s.logger.ErrorContext(ctx, "failed to create resthook subscriber", "resthook_id", subscriber.Resthook.ID, "error", err)
		return fmt.Errorf("creating subscriber: %w", err)
	}
	subscriber.IsActive = true
	return nil
}

// PostgresWebHookEventStore implements store.WebHookEventStore.
type PostgresWebHookEventStore struct{ base }

// NewPostgresWebHookEventStore returns a store of resthook events queried through pool.
func NewPostgresWebHookEventStore(pool Pool, logger *slog.Logger) *PostgresWebHookEventStore {
	return &PostgresWebHookEventStore{newBase(pool, logger, "webhook_event_store")}
}

var _ store.WebHookEventStore = (*PostgresWebHookEventStore)(nil)

func (s *PostgresWebHookEventStore) List(ctx context.Context, orgID domain.OrgID, opts store.ListOptions) ([]*domain.WebHookEvent, error) {
	columns := append([]string{"we.id", "we.org_id", "we.data", "we.created_on"}, resthookColumns...)
	query := psql.Select(columns...).
		From("webhook_events we").
		Join("resthooks rh ON rh.id = we.resthook_id").
		Where(sq.Eq{"we.org_id": orgID})
	if opts.Slug != "" {
		query = query.Where(sq.Eq{"rh.slug": opts.Slug})
	}

	return selectAll(ctx, s.q(ctx), paged(query, "we.id", opts), func(row pgx.Row) (*domain.WebHookEvent, error) {
		var (
			e    domain.WebHookEvent
			rh   domain.Resthook
			data []byte
		)
		dest := []any{&e.ID, &e.OrgID, &data, &e.CreatedOn}
		if err := row.Scan(append(dest, resthookDest(&rh)...)...); err != nil {
			return nil, err
		}
		e.Data = data
		e.Resthook = &rh
		return &e, nil
	})
}
