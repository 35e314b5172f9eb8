package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/temba-api/internal/task"
)

var taskColumns = []string{"id", "type", "payload", "status", "COALESCE(error_message, '')", "created_at", "updated_at"}

// PostgresTaskStore implements task.TaskStore so that queued tasks survive
// restarts.
type PostgresTaskStore struct{ base }

// NewPostgresTaskStore returns a store of persisted tasks queried through pool.
func NewPostgresTaskStore(pool Pool, logger *slog.Logger) *PostgresTaskStore {
	return &PostgresTaskStore{newBase(pool, logger, "task_store")}
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

func scanTask(row pgx.Row) (task.Record, error) {
	var rec task.Record
	err := row.Scan(&rec.ID, &rec.Type, &rec.Payload, &rec.Status, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// SaveTask inserts t as pending.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	now := time.Now().UTC()
	insert := psql.Insert("tasks").
		Columns("id", "type", "payload", "status", "created_at", "updated_at").
		Values(t.ID(), t.Type(), t.Payload(), task.TaskStatusPending, now, now)

	if err := execQuery(ctx, s.q(ctx), insert, nil); err != nil {
		s.logger.ErrorContext(ctx, "failed to save task", "task_id", t.ID(), "task_type", t.Type(), "error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}
	return nil
}

func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status task.TaskStatus, errorMsg string) error {
	var message any
	if errorMsg != "" {
		message = errorMsg
	}
	update := psql.Update("tasks").
		Set("status", status).
		Set("error_message", message).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})

	if err := execQuery(ctx, s.q(ctx), update, task.ErrTaskNotFound); err != nil {
		s.logger.ErrorContext(ctx, "failed to update task status", "task_id", id, "status", status, "error", err)
		return err
	}
	return nil
}

func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Record, error) {
	query := psql.Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"status": task.TaskStatusPending}).
		OrderBy("created_at ASC")
	return selectAll(ctx, s.q(ctx), query, scanTask)
}

// GetProcessingTasks returns processing tasks, only those not updated for
// olderThan when it's positive.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Record, error) {
	query := psql.Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"status": task.TaskStatusProcessing}).
		OrderBy("created_at ASC")
	if olderThan > 0 {
		query = query.Where(sq.Lt{"updated_at": time.Now().UTC().Add(-olderThan)})
	}
	return selectAll(ctx, s.q(ctx), query, scanTask)
}
