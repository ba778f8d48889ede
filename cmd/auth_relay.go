package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"steamlink/internal/cli"
	"steamlink/internal/relay"
)

// Relay-specific flags
var (
	relayMode string
	relayCode string
)

// authRelayCmd represents the auth relay command
var authRelayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Pair through a companion device and the relay broker",
	Long: `Pair this device by signing in on a companion device (a phone or PC
browser) that hands the credential to this device through the relay broker.

Modes:
  public-key   (default) a one-time key pair is generated; the companion
               encrypts the credential with the public key in the link
  code-hash    the session is addressed by a short code entered on both sides
  plain-code   code in the query; the relay returns the session credential in clear

The code is prompted for when a mode needs one and --code is not given.`,
	RunE: runAuthRelay,
}

func init() {
	authRelayCmd.Flags().StringVar(&relayMode, "mode", "", "Relay mode: public-key, code-hash or plain-code (default from config)")
	authRelayCmd.Flags().StringVar(&relayCode, "code", "", "Short pairing code for code-hash and plain-code modes")
}

func runAuthRelay(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	services := application.Services()
	out := cmd.OutOrStdout()

	modeName := services.Config.Relay.Mode
	if relayMode != "" {
		modeName = relayMode
	}
	mode, err := relay.ParseMode(modeName)
	if err != nil {
		return err
	}

	code := strings.TrimSpace(relayCode)
	if mode.NeedsCode() && code == "" {
		code, err = promptCode(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	p, err := services.NewRelayPairing(mode, code)
	if err != nil {
		return err
	}

	link, err := services.CompanionURL(p)
	if err != nil {
		p.Close()
		return err
	}

	switch mode {
	case relay.ModePublicKey:
		fmt.Fprintln(out, challengeText("Open this link on your companion device and sign in:", link))
	case relay.ModeCodeHash:
		fmt.Fprintln(out, challengeText("Open this link on your companion device, sign in and enter the same code:", link))
	case relay.ModePlainCode:
		fmt.Fprintf(out, "Sign in on your companion device and enter the code %s\n\n", p.Code())
	}

	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	progress := cli.NewProgress(cmd.ErrOrStderr(), authQuiet, "Waiting for the companion device...")
	cred, err := services.Session.PairViaRelay(ctx, p)
	if err != nil {
		progress.Fail("Relay pairing did not complete")
		return pairingError(err, serviceRelay)
	}

	return persistPaired(services, cred, progress)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

// promptCode reads the short code from in.
func promptCode(in io.Reader, prompt io.Writer) (string, error) {
	interactive := isTerminal(in)
	cfg := &readline.Config{
		Prompt:          "Pairing code: ",
		InterruptPrompt: "^C",
		Stdin:           io.NopCloser(in),
		Stdout:          prompt,
		Stderr:          prompt,
		FuncIsTerminal:  func() bool { return interactive },
	}
	if !interactive {
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", errors.New("pairing cancelled")
		}
		if err != nil {
			return "", fmt.Errorf("failed to read pairing code: %w", err)
		}
		if code := strings.TrimSpace(line); code != "" {
			return code, nil
		}
	}
}
