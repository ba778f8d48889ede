package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFlags_Format(t *testing.T) {
	tests := []struct {
		name         string
		outputFormat string
		wantErr      bool
	}{
		{name: "table", outputFormat: "table"},
		{name: "json", outputFormat: "json"},
		{name: "yaml", outputFormat: "yaml"},
		{name: "wide is not offered", outputFormat: "wide", wantErr: true},
		{name: "empty", outputFormat: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := &CommandFlags{OutputFormat: tt.outputFormat}
			format, err := flags.Format()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, OutputFormat(tt.outputFormat), format)
		})
	}
}

func TestRegisterOutputFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "status"}
	flags := &CommandFlags{}
	RegisterOutputFlags(cmd, flags)

	require.NoError(t, cmd.ParseFlags([]string{"-o", "json", "-q"}))
	assert.Equal(t, "json", flags.OutputFormat)
	assert.True(t, flags.Quiet)
}
