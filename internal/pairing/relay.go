package pairing

import (
	"context"
	"errors"
	"sync"
	"time"

	"steamlink/internal/credential"
	"steamlink/internal/relay"
	"steamlink/pkg/logging"
)

// DefaultRelayInterval is the delay between relay polls.
const DefaultRelayInterval = 2 * time.Second

// RelayClient is the part of the relay client the poller drives.
type RelayClient interface {
	Poll(ctx context.Context, p *relay.Pairing) (*credential.SessionCredential, error)
}

// RelayPoller polls the relay for one pairing at a time with the same
// cancellation rules as the QR orchestrator.
type RelayPoller struct {
	client RelayClient
	loop   loopConfig

	mu    sync.Mutex
	state State
	polls int
}

// NewRelayPoller creates a poller. The interval defaults to
// DefaultRelayInterval.
func NewRelayPoller(client RelayClient, opts ...Option) *RelayPoller {
	return &RelayPoller{
		client: client,
		loop:   newLoopConfig(DefaultRelayInterval, opts),
		state:  StateIdle,
	}
}

// State returns the current state.
func (r *RelayPoller) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Polls returns how many relay round trips the last run made.
func (r *RelayPoller) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

func (r *RelayPoller) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// Run polls until the relay delivers a credential, a poll fails, or ctx is
// cancelled. The pairing is closed when Run returns, dropping its key.
func (r *RelayPoller) Run(ctx context.Context, p *relay.Pairing) (*credential.SessionCredential, error) {
	defer p.Close()

	r.mu.Lock()
	if r.state == StatePolling {
		r.mu.Unlock()
		return nil, ErrInProgress
	}
	r.state = StatePolling
	r.polls = 0
	r.mu.Unlock()

	logging.Info("Relay", "Polling relay (%s mode) every %s", p.Mode(), r.loop.interval)

	var result *credential.SessionCredential
	err := r.loop.run(ctx, func() time.Duration { return r.loop.interval }, func(pollCtx context.Context) (bool, error) {
		r.mu.Lock()
		r.polls++
		r.mu.Unlock()

		cred, err := r.client.Poll(pollCtx, p)
		if err != nil {
			return false, err
		}
		if cred.IsEmpty() {
			return false, nil
		}
		result = cred
		return true, nil
	})

	switch {
	case err == nil:
		r.setState(StateAuthenticated)
		logging.Info("Relay", "Relay delivered credential for account %s", result.AccountName)
		return result, nil
	case errors.Is(err, ErrCancelled):
		r.setState(StateCancelled)
		return nil, err
	default:
		r.setState(StateFailed)
		logging.Error("Relay", err, "Relay pairing failed")
		return nil, err
	}
}
