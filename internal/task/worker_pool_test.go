package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTaskQueue implements TaskQueueReader for testing
type mockTaskQueue struct {
	ch chan Task
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{ch: make(chan Task, 10)}
}

func (m *mockTaskQueue) GetChannel() <-chan Task {
	return m.ch
}

func TestNewWorkerPool(t *testing.T) {
	logger := setupTestLogger()
	queue := newMockTaskQueue()

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 5}, logger)
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)

	pool = NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 0}, logger)
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: -5}, logger)
	assert.Equal(t, 1, pool.workerCount)
}

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	queue := newMockTaskQueue()
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 3}, setupTestLogger())

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		done = make(chan struct{}, 5)
	)
	pool.Start(func(ctx context.Context, task Task, workerID int) error {
		mu.Lock()
		seen[task.ID().String()] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	for i := 0; i < 5; i++ {
		queue.ch <- newMockTask()
	}
	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 5)
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	queue := newMockTaskQueue()
	pool := NewWorkerPool(queue, DefaultWorkerPoolConfig(), setupTestLogger())

	failures := make(chan error, 1)
	pool.SetErrorHandler(func(task Task, err error) { failures <- err })

	boom := errors.New("boom")
	pool.Start(func(ctx context.Context, task Task, workerID int) error { return boom })
	queue.ch <- newMockTask()

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
	pool.Stop()
}

func TestWorkerPool_StopsWhenQueueCloses(t *testing.T) {
	queue := newMockTaskQueue()
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 2}, setupTestLogger())
	pool.Start(func(ctx context.Context, task Task, workerID int) error { return nil })

	close(queue.ch)

	stopped := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		require.Fail(t, "workers did not exit after the queue closed")
	}
	pool.Stop()
}
