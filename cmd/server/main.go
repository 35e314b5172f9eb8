// Package main runs the temba v2 API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/platform/logger"
	"github.com/phrazzld/temba-api/internal/platform/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (defaults to ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "", "Run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *migrateCmd); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, migrateCmd string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database", postgres.MaskDatabaseURL(cfg.Database.URL))

	if migrateCmd != "" {
		return postgres.Migrate(ctx, cfg.Database.URL, migrateCmd, log)
	}
	if cfg.Server.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Database.URL, "up", log); err != nil {
			return err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	app, err := newApplication(cfg, log, postgres.NewStores(pool, log), postgres.NewTxManager(pool, log),
		postgres.NewPostgresTaskStore(pool, log))
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
