package commands

import (
	"github.com/spf13/cobra"

	"github.com/phrazzld/temba-api/internal/platform/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.backend.Migrate(cmd.Context(), c.cfg.Database.URL, args[0], c.logger)
		},
	}
}
