package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
)

// Task types requested through events.
const (
	// TypeSendBroadcast asks for a created broadcast to be sent.
	TypeSendBroadcast = "send_broadcast"

	// TypeStartFlow asks for a created flow start to be executed.
	TypeStartFlow = "start_flow"
)

// TaskRequestEvent represents a request to create a background task.
// It contains the necessary information for task creation without
// direct dependencies on the task package.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SendBroadcastPayload is the payload of a TypeSendBroadcast event.
type SendBroadcastPayload struct {
	OrgID       domain.OrgID       `json:"org_id"`
	BroadcastID domain.BroadcastID `json:"broadcast_id"`
}

// StartFlowPayload is the payload of a TypeStartFlow event.
type StartFlowPayload struct {
	OrgID   domain.OrgID       `json:"org_id"`
	StartID domain.FlowStartID `json:"start_id"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewSendBroadcastEvent creates the event requesting a broadcast be sent.
func NewSendBroadcastEvent(orgID domain.OrgID, id domain.BroadcastID) (*TaskRequestEvent, error) {
	return NewTaskRequestEvent(TypeSendBroadcast, SendBroadcastPayload{OrgID: orgID, BroadcastID: id})
}

// NewStartFlowEvent creates the event requesting a flow start be executed.
func NewStartFlowEvent(orgID domain.OrgID, id domain.FlowStartID) (*TaskRequestEvent, error) {
	return NewTaskRequestEvent(TypeStartFlow, StartFlowPayload{OrgID: orgID, StartID: id})
}

// EventHandler defines the interface for components that can handle events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter defines the interface for components that can emit events.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
