package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"steamlink/pkg/auth"
)

// expiringSoon is the window in which a valid credential is shown in yellow.
const expiringSoon = 24 * time.Hour

// PrintStatus writes status to w in the requested format. now is used to
// render the remaining lifetime of the credential.
func PrintStatus(w io.Writer, status auth.StatusResponse, format OutputFormat, now time.Time) error {
	switch format {
	case OutputFormatJSON:
		return writeJSON(w, status)
	case OutputFormatYAML:
		return writeYAML(w, status)
	case OutputFormatTable:
		printStatusTable(w, status, now)
		return nil
	default:
		return ValidateOutputFormat(string(format))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML converts through JSON so the json tags name the keys.
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to convert status to YAML: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func printStatusTable(w io.Writer, status auth.StatusResponse, now time.Time) {
	t := newTable(w)
	t.SetTitle("Steam credential")

	cred := status.Credential
	if cred == nil {
		cred = &auth.CredentialStatus{State: auth.CredentialStateMissing}
	}

	t.AppendRow(table.Row{text.FgHiCyan.Sprint("Status"), credentialStateText(cred, now)})
	if cred.AccountName != "" {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Account"), cred.AccountName})
	}
	if cred.Subject != "" {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Steam ID"), cred.Subject})
	}
	if cred.ExpiresAt != nil {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Expires"), expiryText(*cred.ExpiresAt, now)})
	}
	if cred.State == auth.CredentialStateValid || cred.State == auth.CredentialStateExpired {
		refresh := text.FgGreen.Sprint("Available")
		if !cred.HasRefreshToken {
			refresh = text.FgYellow.Sprint("Not available (sign in again on expiry)")
		}
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Refresh"), refresh})
	}
	t.AppendRow(table.Row{text.FgHiCyan.Sprint("File"), cred.Path})

	if p := status.Pairing; p != nil {
		t.AppendSeparator()
		state := fmt.Sprintf("%s (%d polls)", p.State, p.Polls)
		if p.Scanned && p.State == "polling" {
			state += ", scanned, awaiting approval"
		}
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Pairing"), state})
		if p.ChallengeURL != "" {
			t.AppendRow(table.Row{text.FgHiCyan.Sprint("Challenge"), p.ChallengeURL})
		}
	}

	t.Render()
}

func credentialStateText(cred *auth.CredentialStatus, now time.Time) string {
	switch cred.State {
	case auth.CredentialStateValid:
		if cred.ExpiresAt != nil && cred.ExpiresAt.Sub(now) < expiringSoon {
			return text.FgYellow.Sprint("Signed in (expires soon)")
		}
		return text.FgGreen.Sprint("Signed in")
	case auth.CredentialStateExpired:
		return text.FgYellow.Sprint("Expired")
	case auth.CredentialStateCorrupt:
		return text.FgRed.Sprint("Unreadable")
	default:
		return text.FgHiBlack.Sprint("Not signed in")
	}
}

func expiryText(expiresAt, now time.Time) string {
	stamp := expiresAt.Local().Format(time.RFC1123)
	if !expiresAt.After(now) {
		return fmt.Sprintf("%s (%s ago)", stamp, formatDuration(now.Sub(expiresAt)))
	}
	return fmt.Sprintf("%s (in %s)", stamp, formatDuration(expiresAt.Sub(now)))
}

// formatDuration renders d coarsely: days and hours, hours and minutes, or
// minutes.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
