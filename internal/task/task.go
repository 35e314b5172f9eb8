package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/events"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task types share their names with the events requesting them.
const (
	TaskTypeSendBroadcast = events.TypeSendBroadcast
	TaskTypeStartFlow     = events.TypeStartFlow
)

// ErrTaskNotFound is returned by stores for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the status the task had when it was built
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// Record is a persisted task row. The runner turns records back into
// tasks through a Registry.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task as pending
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task.
	// Returns ErrTaskNotFound if there is no such task.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status, oldest first
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)
}

// baseTask holds the identity every task carries.
type baseTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
}

func (t *baseTask) ID() uuid.UUID      { return t.id }
func (t *baseTask) Type() string       { return t.taskType }
func (t *baseTask) Payload() []byte    { return t.payload }
func (t *baseTask) Status() TaskStatus { return t.status }
