package cmd

import (
	"github.com/spf13/cobra"

	"steamlink/pkg/logging"
)

// newDaemonCmd creates the command that keeps the stored credential fresh.
func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep the stored credential renewed",
		Long: `Run in the foreground and renew the stored credential before it expires.

The credential is checked every daemon.refreshInterval and whenever the
credential file changes, for example after 'steamlink auth login' in another
terminal. With daemon.metricsAddress set, Prometheus metrics are served on
/metrics and the session status on /status.

The daemon supports systemd Type=notify units and the watchdog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd)
			if err != nil {
				return err
			}

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			logging.Info("Daemon", "Starting steamlink daemon %s", rootCmd.Version)
			return application.RunDaemon(ctx)
		},
	}
}
