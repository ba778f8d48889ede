// Package cli holds presentation helpers shared by the steamlink commands.
//
// Errors from the session layer are mapped to user-facing types by
// ClassifyError: AuthRequiredError, AuthExpiredError, AuthFailedError and
// ConnectionError. Each message ends with the command that fixes the
// problem. The cmd package turns these types into exit codes.
//
// PrintStatus renders an auth.StatusResponse as a go-pretty table, JSON or
// YAML. Progress wraps a spinner for the pairing loops.
package cli
