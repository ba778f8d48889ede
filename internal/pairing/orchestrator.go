package pairing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"steamlink/internal/authservice"
	"steamlink/internal/credential"
	"steamlink/pkg/logging"
)

// Provider is the part of the identity provider client the orchestrator drives.
type Provider interface {
	BeginPairing(ctx context.Context, details authservice.DeviceDetails) (*authservice.PairingChallenge, error)
	PollOnce(ctx context.Context, clientID uint64, requestID []byte) (authservice.PollOutcome, error)
}

// RotationFunc is called with the updated challenge after the provider
// rotated it, before the next poll. The display must be redrawn.
type RotationFunc func(challenge authservice.PairingChallenge)

// Orchestrator drives one QR pairing attempt at a time:
//
//	idle -> awaiting_challenge -> polling -> authenticated | cancelled | failed
//
// It does not persist the credential; the caller does.
type Orchestrator struct {
	provider Provider
	device   authservice.DeviceDetails
	loop     loopConfig

	mu        sync.Mutex
	state     State
	challenge *authservice.PairingChallenge
	polls     int
	scanned   bool
}

// NewOrchestrator creates an orchestrator that pairs device with provider.
func NewOrchestrator(provider Provider, device authservice.DeviceDetails, opts ...Option) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		device:   device,
		loop:     newLoopConfig(0, opts),
		state:    StateIdle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Challenge returns a copy of the current challenge, or nil before Begin.
func (o *Orchestrator) Challenge() *authservice.PairingChallenge {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.challenge == nil {
		return nil
	}
	c := *o.challenge
	return &c
}

// Scanned reports whether the provider saw the challenge being scanned in
// the current attempt.
func (o *Orchestrator) Scanned() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scanned
}

// Polls returns how many poll round trips the current attempt made.
func (o *Orchestrator) Polls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.polls
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()

	if prev != s {
		logging.Debug("Pairing", "State %s -> %s", prev, s)
	}
}

// Begin requests a new challenge from the provider. It may be called again
// once a previous attempt reached a terminal state.
func (o *Orchestrator) Begin(ctx context.Context) (*authservice.PairingChallenge, error) {
	o.mu.Lock()
	if o.state != StateIdle && !o.state.IsTerminal() {
		o.mu.Unlock()
		return nil, ErrInProgress
	}
	o.state = StateAwaitingChallenge
	o.challenge = nil
	o.polls = 0
	o.scanned = false
	o.mu.Unlock()

	challenge, err := o.provider.BeginPairing(ctx, o.device)
	if err != nil {
		o.setState(StateFailed)
		logging.Error("Pairing", err, "Failed to obtain pairing challenge")
		return nil, err
	}

	o.mu.Lock()
	o.challenge = challenge
	o.mu.Unlock()

	logging.Info("Pairing", "Pairing challenge ready, polling every %s", challenge.Interval)

	c := *challenge
	return &c, nil
}

// PollForCompletion polls until the pairing is approved, the provider call
// fails, or ctx is cancelled. onRotated may be nil.
//
// On cancellation it returns ErrCancelled and never a credential, even if
// the provider has already approved the pairing.
func (o *Orchestrator) PollForCompletion(ctx context.Context, onRotated RotationFunc) (*credential.SessionCredential, error) {
	o.mu.Lock()
	if o.state != StateAwaitingChallenge || o.challenge == nil {
		o.mu.Unlock()
		return nil, ErrNotStarted
	}
	o.state = StatePolling
	o.mu.Unlock()

	var result *credential.SessionCredential

	interval := func() time.Duration {
		if o.loop.interval > 0 {
			return o.loop.interval
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.challenge.Interval
	}

	err := o.loop.run(ctx, interval, func(pollCtx context.Context) (bool, error) {
		o.mu.Lock()
		clientID, requestID := o.challenge.ClientID, o.challenge.RequestID
		o.polls++
		o.mu.Unlock()

		outcome, err := o.provider.PollOnce(pollCtx, clientID, requestID)
		if err != nil {
			return false, err
		}

		switch out := outcome.(type) {
		case authservice.Pending:
			if out.HadRemoteInteraction && o.markScanned() {
				logging.Info("Pairing", "Challenge scanned, waiting for approval")
			}
			return false, nil

		case authservice.ChallengeRotated:
			o.mu.Lock()
			o.challenge.Apply(out)
			updated := *o.challenge
			o.mu.Unlock()

			logging.Info("Pairing", "Provider rotated the challenge")
			if onRotated != nil {
				onRotated(updated)
			}
			return false, nil

		case authservice.CredentialReady:
			result = out.Credential
			return true, nil

		default:
			return false, fmt.Errorf("unexpected poll outcome %T", outcome)
		}
	})

	switch {
	case err == nil:
		o.setState(StateAuthenticated)
		logging.Info("Pairing", "Pairing approved for account %s after %d polls", result.AccountName, o.Polls())
		return result, nil

	case errors.Is(err, ErrCancelled):
		o.setState(StateCancelled)
		logging.Info("Pairing", "Pairing cancelled after %d polls", o.Polls())
		return nil, err

	default:
		o.setState(StateFailed)
		logging.Error("Pairing", err, "Pairing failed after %d polls", o.Polls())
		return nil, err
	}
}

// markScanned records a remote interaction and reports whether it is the
// first one of the attempt.
func (o *Orchestrator) markScanned() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	first := !o.scanned
	o.scanned = true
	return first
}
