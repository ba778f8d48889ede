package pairing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamlink/internal/credential"
	"steamlink/internal/relay"
)

type scriptedRelay struct {
	mu        sync.Mutex
	results   []*credential.SessionCredential
	err       error
	calls     int
	afterPoll func(n int)
}

func (r *scriptedRelay) Poll(ctx context.Context, p *relay.Pairing) (*credential.SessionCredential, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()

	if r.afterPoll != nil {
		defer r.afterPoll(n)
	}
	if r.err != nil {
		return nil, r.err
	}
	if n > len(r.results) {
		return nil, nil
	}
	return r.results[n-1], nil
}

func TestRelayPoller_DeliversCredential(t *testing.T) {
	want := &credential.SessionCredential{AccessToken: "a", RefreshToken: "r", AccountName: "gaben"}
	client := &scriptedRelay{results: []*credential.SessionCredential{nil, nil, want}}
	sleeper := &recordingSleep{}

	p, err := relay.NewPlainCodePairing("ABC")
	require.NoError(t, err)

	poller := NewRelayPoller(client, WithSleep(sleeper.sleep))
	cred, err := poller.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, want, cred)
	assert.Equal(t, 3, poller.Polls())
	assert.Equal(t, StateAuthenticated, poller.State())

	require.Len(t, sleeper.calls, 3)
	assert.Equal(t, DefaultRelayInterval, sleeper.calls[0])
}

func TestRelayPoller_CancelBetweenPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedRelay{
		results:   []*credential.SessionCredential{nil, {AccessToken: "a"}},
		afterPoll: func(n int) { cancel() },
	}
	p, err := relay.NewPlainCodePairing("ABC")
	require.NoError(t, err)

	poller := NewRelayPoller(client, WithSleep((&recordingSleep{}).sleep))
	cred, err := poller.Run(ctx, p)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateCancelled, poller.State())
	assert.Equal(t, 1, poller.Polls())
}

func TestRelayPoller_ErrorStops(t *testing.T) {
	relayErr := &relay.StatusError{StatusCode: 500}
	client := &scriptedRelay{err: relayErr}

	p, err := relay.NewPlainCodePairing("ABC")
	require.NoError(t, err)

	poller := NewRelayPoller(client, WithSleep((&recordingSleep{}).sleep), WithInterval(time.Millisecond))
	_, err = poller.Run(context.Background(), p)

	var statusErr *relay.StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StateFailed, poller.State())
}
