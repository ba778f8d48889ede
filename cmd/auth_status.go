package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"steamlink/internal/cli"
)

var statusFlags cli.CommandFlags

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	Long: `Show the account, Steam ID and expiry of the stored session credential.
Token values are never printed.

Examples:
  steamlink auth status
  steamlink auth status -o json`,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().StringVarP(&statusFlags.OutputFormat, "output", "o", string(cli.OutputFormatTable), "Output format (table, json, yaml)")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	format, err := statusFlags.Format()
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}

	status := application.Services().Session.Status()
	return cli.PrintStatus(cmd.OutOrStdout(), status, format, time.Now())
}
