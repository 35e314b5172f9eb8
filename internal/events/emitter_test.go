package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewSendBroadcastEvent(domain.OrgID(1), domain.BroadcastID(1))
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		ok := &MockEventHandler{}
		failing := &MockEventHandler{HandlerError: errors.New("handler error")}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		event, err := NewSendBroadcastEvent(domain.OrgID(1), domain.BroadcastID(1))
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "handler error")

		// later handlers still run
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, 1, failing.count())
	})
}

func TestBatchHoldsEventsUntilFlush(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := NewInMemoryEventEmitter(logger)
	handler := &MockEventHandler{}
	emitter.RegisterHandler(handler)

	ctx, batch := WithBatch(context.Background())

	first, err := NewSendBroadcastEvent(domain.OrgID(1), domain.BroadcastID(1))
	require.NoError(t, err)
	second, err := NewStartFlowEvent(domain.OrgID(1), domain.FlowStartID(2))
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(ctx, first))
	require.NoError(t, emitter.EmitEvent(ctx, second))
	assert.Equal(t, 0, handler.count())
	assert.Equal(t, 2, batch.Len())

	require.NoError(t, batch.Flush(ctx, emitter))
	require.Equal(t, 2, handler.count())
	assert.Equal(t, first, handler.Events[0])
	assert.Equal(t, second, handler.Events[1])
	assert.Equal(t, 0, batch.Len())
}

func TestBatchDiscard(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := NewInMemoryEventEmitter(logger)
	handler := &MockEventHandler{}
	emitter.RegisterHandler(handler)

	ctx, batch := WithBatch(context.Background())
	event, err := NewSendBroadcastEvent(domain.OrgID(1), domain.BroadcastID(1))
	require.NoError(t, err)
	require.NoError(t, emitter.EmitEvent(ctx, event))

	batch.Discard()
	require.NoError(t, batch.Flush(ctx, emitter))
	assert.Equal(t, 0, handler.count())
}

func TestBatchFlushJoinsErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(&MockEventHandler{HandlerError: errors.New("queue full")})

	ctx, batch := WithBatch(context.Background())
	for i := 0; i < 2; i++ {
		event, err := NewSendBroadcastEvent(domain.OrgID(1), domain.BroadcastID(i))
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(ctx, event))
	}

	err := batch.Flush(ctx, emitter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}
