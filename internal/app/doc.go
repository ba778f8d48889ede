// Package app bootstraps a steamlink process.
//
// NewApplication loads config.yaml from the configuration directory, applies
// command-line overrides, validates the result, initializes logging and
// builds the Services every command works with: the credential store, the
// identity provider and relay clients, and the session facade on top of them.
//
// # Daemon
//
// RunDaemon is the long-running mode behind `steamlink daemon`. It checks
// the stored credential at startup, on every daemon.refreshInterval and
// whenever the credential file changes on disk, and renews it through the
// provider when it expires within daemon.refreshSkew. When
// daemon.metricsAddress is set it serves:
//
//	/metrics   Prometheus metrics
//	/status    the auth.StatusResponse as JSON
//	/healthz   liveness
//
// Under systemd the daemon reports READY=1 once the first check has run,
// pings the watchdog when WatchdogSec is configured and reports STOPPING=1 on
// shutdown.
package app
