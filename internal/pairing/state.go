package pairing

import "errors"

// State is the pairing state machine's current state.
type State int

const (
	// StateIdle means no pairing has begun.
	StateIdle State = iota

	// StateAwaitingChallenge means the challenge was requested or issued but
	// polling has not started.
	StateAwaitingChallenge

	// StatePolling means the provider is being polled.
	StatePolling

	// StateAuthenticated means a credential was obtained.
	StateAuthenticated

	// StateCancelled means the caller cancelled the pairing.
	StateCancelled

	// StateFailed means the provider call failed or the pairing timed out.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StatePolling:
		return "polling"
	case StateAuthenticated:
		return "authenticated"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state ends a pairing attempt.
func (s State) IsTerminal() bool {
	return s == StateAuthenticated || s == StateCancelled || s == StateFailed
}

var (
	// ErrCancelled is returned when the context is cancelled at a loop boundary.
	ErrCancelled = errors.New("pairing cancelled")

	// ErrTimedOut is returned when a configured maximum duration elapses.
	ErrTimedOut = errors.New("pairing timed out")

	// ErrNotStarted is returned by PollForCompletion before a successful Begin.
	ErrNotStarted = errors.New("pairing has not begun")

	// ErrInProgress is returned by Begin while an attempt is still running.
	ErrInProgress = errors.New("pairing already in progress")
)
