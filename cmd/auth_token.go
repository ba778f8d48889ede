package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"steamlink/internal/cli"
	"steamlink/internal/credential"
)

var tokenHeader bool

// authTokenCmd represents the auth token command
var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a usable access token",
	Long: `Print the stored access token for use by scripts, renewing it first when
it is about to expire.

Examples:
  steamlink auth token
  curl -H "$(steamlink auth token --header)" https://api.steampowered.com/...`,
	RunE: runAuthToken,
}

func init() {
	authTokenCmd.Flags().BoolVar(&tokenHeader, "header", false, "Print an Authorization header instead of the bare token")
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	services := application.Services()

	token, err := services.Session.TokenSource(cmd.Context()).Token()
	if err != nil {
		return tokenError(err, services.Store.Path())
	}

	if tokenHeader {
		fmt.Fprintf(cmd.OutOrStdout(), "Authorization: %s %s\n", token.Type(), token.AccessToken)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
	return nil
}

// tokenError tells a missing credential apart from a failed renewal.
func tokenError(err error, path string) error {
	if !errors.Is(err, credential.ErrNoValidCredential) {
		return cli.ClassifyError(err, serviceProvider)
	}

	var urlErr *url.Error
	switch {
	case errors.As(err, &urlErr):
		return cli.ClassifyConnectionError(err, serviceProvider)
	case err == credential.ErrNoValidCredential: //nolint:errorlint // bare sentinel means nothing was refreshed
		return &cli.AuthRequiredError{Path: path}
	default:
		return &cli.AuthExpiredError{}
	}
}
