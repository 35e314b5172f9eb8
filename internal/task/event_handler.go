package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/temba-api/internal/events"
)

// Submitter accepts tasks for background execution. *TaskRunner satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns task request events into tasks built by a
// registry and submits them for execution.
type TaskFactoryEventHandler struct {
	registry *Registry
	runner   Submitter
	logger   *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler.
func NewTaskFactoryEventHandler(registry *Registry, runner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		registry: registry,
		runner:   runner,
		logger:   logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent builds the task for the event's type from its payload and
// submits it. Events of types with no builder are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	logger := h.logger.With("event_id", event.ID, "event_type", event.Type)

	task, err := h.registry.New(event.Type, event.Payload)
	if errors.Is(err, ErrUnknownTaskType) {
		logger.Debug("ignoring event with unsupported type")
		return nil
	}
	if err != nil {
		logger.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		logger.Error("failed to submit task", "error", err, "task_id", task.ID())
		return fmt.Errorf("failed to submit task: %w", err)
	}

	logger.Info("task created and submitted", "task_id", task.ID())
	return nil
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
