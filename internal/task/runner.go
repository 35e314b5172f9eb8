package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists submitted tasks, queues them and processes them on a
// worker pool. On start it requeues tasks left pending or processing by a
// previous run, and it periodically resets tasks stuck in processing.
type TaskRunner struct {
	store    TaskStore
	registry *Registry
	queue    *TaskQueue
	pool     *WorkerPool
	config   TaskRunnerConfig
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner. The registry rebuilds persisted
// tasks during recovery.
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:    store,
		registry: registry,
		queue:    queue,
		pool:     NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		config:   config,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetErrorHandler sets a handler called for every failed task
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit saves the task then queues it. A saved task which can't be queued
// stays pending and is picked up by the next recovery.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start(r.processTask)

	r.wg.Add(1)
	go r.stuckTaskMonitor()
	return nil
}

// Stop gracefully shuts down the task runner
func (r *TaskRunner) Stop() {
	r.cancel()
	r.pool.Stop()
	r.wg.Wait()
	r.queue.Close()
}

// Recover requeues pending tasks, and processing tasks interrupted by a
// crash after resetting them to pending.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, false, "")
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, true, "Reset after recovery")
	}
	return nil
}

// requeue rebuilds the task of rec and queues it, first resetting it to
// pending when reset is set. Records that can't be rebuilt are failed.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, reset bool, reason string) {
	logger := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	task, err := r.registry.Build(rec)
	if err != nil {
		logger.Error("failed to rebuild task", "error", err)
		if uerr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); uerr != nil {
			logger.Error("failed to mark unbuildable task as failed", "error", uerr)
		}
		return
	}

	if reset {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, reason); err != nil {
			logger.Error("failed to reset task status", "error", err)
			return
		}
	}

	if err := r.queue.Enqueue(task); err != nil {
		logger.Error("failed to requeue task", "error", err)
		return
	}
	logger.Debug("requeued task")
}

// processTask records the task's progress around its execution. Execution
// isn't cancelled by Stop so that a started task runs to completion.
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) error {
	ctx = context.WithoutCancel(ctx)
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update task status to processing: %w", err)
	}

	logger.Info("processing task")
	start := time.Now()

	if err := task.Execute(ctx); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		return err
	}

	logger.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); err != nil {
		logger.Error("failed to update task status to completed", "error", err)
	}
	return nil
}

// stuckTaskMonitor periodically resets and requeues tasks which have been
// processing for longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", "count", len(stuck))
	for _, rec := range stuck {
		r.requeue(ctx, rec, true, "Reset after being stuck in processing state")
	}
}
