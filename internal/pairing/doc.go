// Package pairing runs the polling loops that turn a pairing challenge into a
// session credential.
//
// Orchestrator drives QR pairing against the identity provider and
// RelayPoller drives relay pairing. Both wait, check for cancellation, poll
// once, and repeat. Cancellation comes from the context and is observed
// before and after every wait; a poll already in flight runs to completion.
// Neither loop has an upper bound unless WithMaxDuration is given.
package pairing
