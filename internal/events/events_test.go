package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	Events       []*TaskRequestEvent
	HandlerError error
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, event)
	return h.HandlerError
}

func (h *MockEventHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Events)
}

func TestNewSendBroadcastEvent(t *testing.T) {
	event, err := NewSendBroadcastEvent(domain.OrgID(3), domain.BroadcastID(42))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeSendBroadcast, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var payload SendBroadcastPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, domain.OrgID(3), payload.OrgID)
	assert.Equal(t, domain.BroadcastID(42), payload.BroadcastID)
}

func TestNewStartFlowEvent(t *testing.T) {
	event, err := NewStartFlowEvent(domain.OrgID(3), domain.FlowStartID(7))
	require.NoError(t, err)
	assert.Equal(t, TypeStartFlow, event.Type)
	assert.JSONEq(t, `{"org_id": 3, "start_id": 7}`, string(event.Payload))
}

func TestNewTaskRequestEventBadPayload(t *testing.T) {
	_, err := NewTaskRequestEvent("bad", make(chan int))
	assert.Error(t, err)
}
