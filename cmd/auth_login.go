package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"steamlink/internal/app"
	"steamlink/internal/authservice"
	"steamlink/internal/cli"
	"steamlink/internal/credential"
	"steamlink/internal/pairing"
)

// Login-specific flags
var loginForce bool

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Pair by scanning a QR code with the Steam mobile app",
	Long: `Pair this device with a Steam account by approving a QR challenge in the
Steam mobile app.

The challenge URL is printed; render it as a QR code or open it on the phone.
Steam may rotate the challenge while waiting, in which case the new URL is
printed. Press Ctrl-C to cancel. On approval the session credential is stored
in the data directory.`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Pair again even when a valid credential is stored")
}

// interruptContext is cancelled on Ctrl-C or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	services := application.Services()
	out := cmd.OutOrStdout()

	if !loginForce {
		if stored := services.Session.LoadStoredCredential(); stored != nil {
			authPrint(out, "Already signed in as %s. Use --force to pair again.\n", accountLabel(stored))
			return nil
		}
	}

	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	challenge, err := services.Session.BeginPairing(ctx)
	if err != nil {
		return cli.ClassifyError(fmt.Errorf("failed to start pairing: %w", err), serviceProvider)
	}

	fmt.Fprintf(out, "Device %q is requesting access.\n", services.Device.FriendlyName)
	printChallenge(out, challenge.ChallengeURL)

	progress := cli.NewProgress(cmd.ErrOrStderr(), authQuiet, "Waiting for approval in the Steam mobile app...")
	cred, err := services.Session.PollForCompletion(ctx, func(rotated authservice.PairingChallenge) {
		progress.Println(challengeText("The challenge changed, scan again:", rotated.ChallengeURL))
	})
	if err != nil {
		progress.Fail("Pairing did not complete")
		return pairingError(err, serviceProvider)
	}

	return persistPaired(services, cred, progress)
}

func printChallenge(w io.Writer, url string) {
	fmt.Fprintln(w, challengeText("Scan this challenge with the Steam mobile app:", url))
}

func challengeText(heading, url string) string {
	return fmt.Sprintf("%s\n\n  %s\n", heading, text.Bold.Sprint(url))
}

// pairingError maps a failed pairing loop to the CLI error types.
func pairingError(err error, service string) error {
	switch {
	case errors.Is(err, pairing.ErrCancelled):
		return errors.New("pairing cancelled")
	case errors.Is(err, pairing.ErrTimedOut):
		return &cli.AuthFailedError{Reason: err}
	}
	return cli.ClassifyError(err, service)
}

func persistPaired(services *app.Services, cred *credential.SessionCredential, progress *cli.Progress) error {
	if err := services.Session.Persist(cred); err != nil {
		progress.Fail("Received credential could not be stored")
		return &cli.AuthFailedError{Reason: err}
	}
	progress.Succeed("Signed in as " + accountLabel(cred))
	return nil
}

func accountLabel(cred *credential.SessionCredential) string {
	if cred.AccountName != "" {
		return cred.AccountName
	}
	if claims, err := cred.Claims(); err == nil && claims.Subject != "" {
		return claims.Subject
	}
	return "an unnamed account"
}
