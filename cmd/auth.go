package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"steamlink/internal/cli"
	"steamlink/internal/credential"
	"steamlink/internal/session"
)

// Service labels used when classifying connection errors.
const (
	serviceProvider = "identity provider"
	serviceRelay    = "relay"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Steam session of this device",
	Long: `Manage the Steam session credential stored on this device.

Examples:
  steamlink auth login                 # Pair by scanning a QR code in the Steam app
  steamlink auth relay                 # Pair through a companion device
  steamlink auth relay --mode code-hash --code 4821
  steamlink auth status                # Show the stored credential
  steamlink auth refresh               # Renew the credential now
  steamlink auth token                 # Print a usable access token
  steamlink auth logout                # Remove the stored credential`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential",
	Long: `Remove the stored Steam session credential from this device.

The session itself stays valid on Steam's side until it expires or is revoked
from the account's authorized devices.`,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the stored credential now",
	Long: `Exchange the stored refresh token for a new access token, regardless of
how long the current one remains valid, and store the result.`,
	RunE: runAuthRefresh,
}

// authPrint prints output only if the --quiet flag is not set.
func authPrint(w io.Writer, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(w, format, args...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRelayCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authLogoutCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	services := application.Services()

	if err := services.Session.Logout(); err != nil {
		return err
	}
	authPrint(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess("Removed stored credential "+services.Store.Path()))
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	services := application.Services()

	cred, err := services.Session.ForceRefresh(cmd.Context())
	if err != nil {
		if errors.Is(err, credential.ErrNoValidCredential) {
			return &cli.AuthRequiredError{Path: services.Store.Path()}
		}
		if errors.Is(err, session.ErrInvalidCredential) {
			return &cli.AuthExpiredError{}
		}
		return cli.ClassifyError(err, serviceProvider)
	}

	msg := "Renewed credential"
	if cred.AccountName != "" {
		msg += " for " + cred.AccountName
	}
	if claims, err := cred.Claims(); err == nil {
		msg += ", valid until " + claims.ExpiresAt.Local().Format(time.RFC1123)
	}
	authPrint(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(msg))
	return nil
}
