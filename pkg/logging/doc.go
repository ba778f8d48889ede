// Package logging provides structured logging for steamlink on top of slog.
//
// Every record carries a subsystem attribute so output from the pairing loop,
// the credential store and the relay client can be told apart:
//
//	logging.Init(logging.Options{Level: logging.LevelInfo, Format: logging.FormatText})
//
//	logging.Info("Pairing", "Challenge rotated, redraw the code")
//	logging.Error("Relay", err, "Relay poll failed")
//
// Credential lifecycle events go through Audit, which emits a
// "SECURITY_AUDIT:" record with an event attribute. Token values are never
// passed to the logger.
package logging
