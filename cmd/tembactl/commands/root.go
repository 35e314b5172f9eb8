package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/temba-api/internal/config"
	"github.com/phrazzld/temba-api/internal/platform/logger"
	"github.com/phrazzld/temba-api/internal/platform/postgres"
	"github.com/phrazzld/temba-api/internal/service"
	"github.com/phrazzld/temba-api/internal/service/auth"
)

// Backend is what the commands act on. It's swapped out in tests.
type Backend struct {
	LoadConfig func(path string) (*config.Config, error)
	Migrate    func(ctx context.Context, dbURL, command string, logger *slog.Logger) error

	// OpenAccounts returns the account service and a func releasing what it
	// holds.
	OpenAccounts func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.AccountService, func(), error)
}

// PostgresBackend acts on the database named by the configuration.
func PostgresBackend() Backend {
	return Backend{
		LoadConfig: func(path string) (*config.Config, error) {
			if path != "" {
				return config.LoadFrom(path)
			}
			return config.Load()
		},
		Migrate:      postgres.Migrate,
		OpenAccounts: openPostgresAccounts,
	}
}

func openPostgresAccounts(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.AccountService, func(), error) {
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	accounts := service.NewAccountService(postgres.NewStores(pool, log), postgres.NewTxManager(pool, log), jwtService, log)
	return accounts, pool.Close, nil
}

// Execute runs the CLI against PostgreSQL.
func Execute() error {
	return NewRootCmd(PostgresBackend()).Execute()
}

// cli carries the state shared by every command.
type cli struct {
	backend    Backend
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd builds the command tree on backend.
func NewRootCmd(backend Backend) *cobra.Command {
	c := &cli{backend: backend}

	root := &cobra.Command{
		Use:           "tembactl",
		Short:         "Administer the temba v2 API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.backend.LoadConfig(c.configPath)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("setting up logger: %w", err)
			}
			c.cfg, c.logger = cfg, log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./config.yaml if present)")

	root.AddCommand(c.migrateCmd(), c.orgCmd(), c.userCmd(), c.tokenCmd())
	return root
}

// withAccounts runs fn with an open account service.
func (c *cli) withAccounts(ctx context.Context, fn func(service.AccountService) error) error {
	accounts, release, err := c.backend.OpenAccounts(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer release()
	return fn(accounts)
}
