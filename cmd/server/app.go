package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/phrazzld/temba-api/internal/service/auth"
	"github.com/phrazzld/temba-api/internal/store"
	"github.com/phrazzld/temba-api/internal/task"
)

// application holds the shared dependencies of the server so that they can
// be started and shut down together.
type application struct {
	config *config.Config
	logger *slog.Logger

	stores *store.Stores
	tx     store.TxManager

	jwtService   auth.JWTService
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication wires the services on top of the given stores. Task
// request events emitted by the API are turned into tasks and run in the
// background by the task runner.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	stores *store.Stores,
	tx store.TxManager,
	taskStore task.TaskStore,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		stores: stores,
		tx:     tx,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	registry := task.NewMessagingRegistry(task.Deps{
		Stores: stores,
		Tx:     tx,
		Logger: logger,
	})
	app.taskRunner = task.NewTaskRunner(taskStore, registry, task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(registry, app.taskRunner, logger))

	logger.Info("application initialized")
	return app, nil
}

// Run starts the task runner and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background processing. Tasks in flight finish first.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	app.logger.Info("application shutdown completed")
}
