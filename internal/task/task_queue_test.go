package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID      { return m.id }
func (m *mockTask) Type() string       { return m.taskType }
func (m *mockTask) Payload() []byte    { return m.payload }
func (m *mockTask) Status() TaskStatus { return m.status }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte(`{"n":1}`),
		status:   TaskStatusPending,
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTaskQueue_Enqueue(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	first, second := newMockTask(), newMockTask()
	require.NoError(t, queue.Enqueue(first))
	require.NoError(t, queue.Enqueue(second))

	err := queue.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueFull)

	ch := queue.GetChannel()
	assert.Equal(t, first.ID(), (<-ch).ID())
	assert.Equal(t, second.ID(), (<-ch).ID())
}

func TestTaskQueue_Close(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())
	require.NoError(t, queue.Enqueue(newMockTask()))

	queue.Close()
	queue.Close() // second close is a no-op

	assert.ErrorIs(t, queue.Enqueue(newMockTask()), ErrQueueClosed)

	// buffered tasks are still delivered before the channel reports closed
	_, ok := <-queue.GetChannel()
	assert.True(t, ok)
	_, ok = <-queue.GetChannel()
	assert.False(t, ok)
}

func TestTaskQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	queue := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = queue.Enqueue(newMockTask())
		}()
	}
	queue.Close()
	wg.Wait()

	count := 0
	for range queue.GetChannel() {
		count++
	}
	assert.LessOrEqual(t, count, 50)
}
