package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/service"
)

func (c *cli) orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage orgs",
	}

	var (
		name, country string
		languages     []string
		anon          bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an org",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAccounts(cmd.Context(), func(accounts service.AccountService) error {
				org, err := accounts.CreateOrg(cmd.Context(), name, country, languages, anon)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created org %d (%s)\n", org.ID, org.Name)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "org name")
	create.Flags().StringVar(&country, "country", "", "osm id of the org's country boundary")
	create.Flags().StringSliceVar(&languages, "language", nil, "ISO 639-3 language codes, the first is primary")
	create.Flags().BoolVar(&anon, "anon", false, "hide contact URNs from API clients")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAccounts(cmd.Context(), func(accounts service.AccountService) error {
				user, err := accounts.CreateUser(cmd.Context(), email)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s)\n", user.ID, user.Email)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "user email")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var userID, orgID int64
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user acting in an org",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withAccounts(cmd.Context(), func(accounts service.AccountService) error {
				token, err := accounts.IssueToken(cmd.Context(), domain.UserID(userID), domain.OrgID(orgID))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&orgID, "org", 0, "org id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
