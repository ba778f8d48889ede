package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steamlink/internal/app"
	"steamlink/internal/cli"
	"steamlink/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates there is no usable credential.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates pairing or renewal was rejected.
	ExitCodeAuthFailed = 3
)

// Global flags shared by every command.
var (
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command for the steamlink application.
var rootCmd = &cobra.Command{
	Use:   "steamlink",
	Short: "Pair this device with a Steam account and keep the session alive",
	Long: `steamlink signs a device in to Steam without typing a password on it.

Pair by scanning a QR code with the Steam mobile app (steamlink auth login),
or through a companion device and the relay broker (steamlink auth relay).
The resulting session credential is stored on disk and renewed before it
expires (steamlink daemon).`,
	// Errors are printed by Execute.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "steamlink version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd, err)
		os.Exit(getExitCode(err))
	}
}

func printError(cmd *cobra.Command, err error) {
	var configErr config.ConfigurationError
	if errors.As(err, &configErr) {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(errors.New(configErr.DetailedError())))
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// newApplication bootstraps configuration, logging and services for cmd.
// Replaced in tests.
var newApplication = func(cmd *cobra.Command) (*app.Application, error) {
	return app.NewApplication(&app.Config{
		ConfigPath: configPath,
		DataDir:    dataDir,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		LogOutput:  cmd.ErrOrStderr(),
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the credential and device id (default: <config-path>/data)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides config)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDaemonCmd())
}
