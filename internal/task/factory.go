package task

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/store"
)

// ErrUnknownTaskType is returned when no builder is registered for a type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Builder makes a task of one type from its id and payload.
type Builder func(id uuid.UUID, payload []byte) (Task, error)

// Registry maps task types to builders. It's used both for new tasks
// requested by events and for tasks recovered from the store.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates a registry with no builders.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{}}
}

// Register sets the builder for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, build Builder) {
	r.builders[taskType] = build
}

// New builds a fresh pending task of taskType.
func (r *Registry) New(taskType string, payload []byte) (Task, error) {
	return r.build(uuid.New(), taskType, payload)
}

// Build rebuilds the task a record was saved from.
func (r *Registry) Build(rec Record) (Task, error) {
	return r.build(rec.ID, rec.Type, rec.Payload)
}

func (r *Registry) build(id uuid.UUID, taskType string, payload []byte) (Task, error) {
	build, ok := r.builders[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	return build(id, payload)
}

// Deps are the collaborators the messaging tasks need.
type Deps struct {
	Stores *store.Stores
	Tx     store.TxManager
	Logger *slog.Logger
}

// NewMessagingRegistry registers the broadcast send and flow start tasks.
func NewMessagingRegistry(deps Deps) *Registry {
	if deps.Tx == nil {
		deps.Tx = store.NoTx
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := NewRegistry()
	r.Register(TaskTypeSendBroadcast, func(id uuid.UUID, payload []byte) (Task, error) {
		return NewSendBroadcastTask(id, payload, deps)
	})
	r.Register(TaskTypeStartFlow, func(id uuid.UUID, payload []byte) (Task, error) {
		return NewStartFlowTask(id, payload, deps)
	})
	return r
}
