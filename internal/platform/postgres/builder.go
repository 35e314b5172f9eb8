package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/store"
	"golang.org/x/sync/errgroup"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// base is embedded by every store.
type base struct {
	pool   Pool
	logger *slog.Logger
}

func newBase(pool Pool, logger *slog.Logger, component string) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{pool: pool, logger: logger.With(slog.String("component", component))}
}

func (b base) q(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, b.pool)
}

// selectAll runs query and scans every row.
func selectAll[T any](ctx context.Context, q Querier, query sq.Sqlizer, scan func(pgx.Row) (T, error)) ([]T, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// selectOne runs query and scans its single row. A missing row maps to
// notFound.
func selectOne[T any](ctx context.Context, q Querier, query sq.Sqlizer, scan func(pgx.Row) (T, error), notFound error) (T, error) {
	var zero T
	sql, args, err := query.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}

	item, err := scan(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return zero, mapNotFound(err, notFound)
	}
	return item, nil
}

// exists runs a SELECT EXISTS wrapper around query.
func exists(ctx context.Context, q Querier, query sq.SelectBuilder) (bool, error) {
	sql, args, err := query.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var found bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return false, MapError(err)
	}
	return found, nil
}

// execQuery runs a statement. When notFound is non-nil, affecting no rows
// returns it.
func execQuery(ctx context.Context, q Querier, query sq.Sqlizer, notFound error) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err)
	}
	if notFound != nil {
		return CheckRowsAffected(tag, notFound)
	}
	return nil
}

// insertReturning runs an INSERT and scans the RETURNING columns into dest.
func insertReturning(ctx context.Context, q Querier, query sq.InsertBuilder, dest ...any) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return MapError(q.QueryRow(ctx, sql, args...).Scan(dest...))
}

// paged orders query newest first by idCol and applies the paging options.
func paged(query sq.SelectBuilder, idCol string, opts store.ListOptions) sq.SelectBuilder {
	if opts.Before > 0 {
		query = query.Where(sq.Lt{idCol: opts.Before})
	}
	if opts.ID > 0 {
		query = query.Where(sq.Eq{idCol: opts.ID})
	}
	query = query.OrderBy(idCol + " DESC")
	if opts.Limit > 0 {
		query = query.Limit(uint64(opts.Limit))
	}
	return query
}

// prefetch runs the loaders concurrently. A transaction connection can't
// serve concurrent queries, so inside one they run in turn.
func prefetch(ctx context.Context, loaders ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if _, ok := txFromCtx(ctx); ok {
		g.SetLimit(1)
	}
	for _, load := range loaders {
		g.Go(func() error { return load(gctx) })
	}
	return g.Wait()
}

// idsOf maps items to their keys.
func idsOf[T any, K comparable](items []T, key func(T) K) []K {
	out := make([]K, 0, len(items))
	for _, item := range items {
		out = append(out, key(item))
	}
	return out
}
