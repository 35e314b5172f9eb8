package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded in-memory queue satisfying both TaskQueueReader
// and TaskQueueWriter.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan Task
	logger *slog.Logger
	closed bool
}

// NewTaskQueue returns a queue holding at most size tasks waiting for a
// worker.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue adds a task without blocking. It fails when the queue is full or
// closed.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("queued task", "task_id", task.ID(), "task_type", task.Type(), "pending", len(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: %d tasks waiting", ErrQueueFull, cap(q.tasks))
	}
}

// Close closes the task queue. It's safe to call more than once.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel is drained by the worker pool. It is closed by Close.
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}
