package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable renders a coloured table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON renders indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML renders YAML.
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// CommandFlags holds the presentation flags shared by auth commands.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// Quiet suppresses spinners and non-essential output
	Quiet bool
}

// RegisterOutputFlags registers --output/-o and --quiet/-q on cmd.
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// Format validates and returns the selected output format.
func (f *CommandFlags) Format() (OutputFormat, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return "", err
	}
	return OutputFormat(f.OutputFormat), nil
}
