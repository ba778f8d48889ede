package pairing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamlink/internal/authservice"
	"steamlink/internal/credential"
)

// scriptedProvider returns a fixed challenge and then the scripted poll
// outcomes in order.
type scriptedProvider struct {
	mu        sync.Mutex
	challenge *authservice.PairingChallenge
	beginErr  error
	outcomes  []authservice.PollOutcome
	pollErr   error
	afterPoll func(n int)

	polls    []polledWith
	pollCtxs []context.Context
}

type polledWith struct {
	clientID  uint64
	requestID []byte
}

func (p *scriptedProvider) BeginPairing(ctx context.Context, details authservice.DeviceDetails) (*authservice.PairingChallenge, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	c := *p.challenge
	return &c, nil
}

func (p *scriptedProvider) PollOnce(ctx context.Context, clientID uint64, requestID []byte) (authservice.PollOutcome, error) {
	p.mu.Lock()
	p.polls = append(p.polls, polledWith{clientID: clientID, requestID: requestID})
	p.pollCtxs = append(p.pollCtxs, ctx)
	n := len(p.polls)
	p.mu.Unlock()

	if p.afterPoll != nil {
		defer p.afterPoll(n)
	}
	if p.pollErr != nil {
		return nil, p.pollErr
	}
	if n > len(p.outcomes) {
		return authservice.Pending{}, nil
	}
	return p.outcomes[n-1], nil
}

func testChallenge() *authservice.PairingChallenge {
	return &authservice.PairingChallenge{
		ClientID:     1,
		RequestID:    []byte{0xaa, 0xbb},
		ChallengeURL: "https://s.team/q/1/1",
		Interval:     5 * time.Second,
	}
}

// recordingSleep never blocks and records the requested durations.
type recordingSleep struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

func readyOutcome() authservice.CredentialReady {
	return authservice.CredentialReady{Credential: &credential.SessionCredential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		AccountName:  "gaben",
	}}
}

func TestOrchestrator_ScriptedSequence(t *testing.T) {
	provider := &scriptedProvider{
		challenge: testChallenge(),
		outcomes: []authservice.PollOutcome{
			authservice.Pending{},
			authservice.Pending{HadRemoteInteraction: true},
			authservice.ChallengeRotated{NewClientID: 2, NewChallengeURL: "https://s.team/q/1/2"},
			authservice.Pending{},
			readyOutcome(),
		},
	}
	sleeper := &recordingSleep{}
	o := NewOrchestrator(provider, authservice.DeviceDetails{FriendlyName: "NXD-test"}, WithSleep(sleeper.sleep))
	assert.Equal(t, StateIdle, o.State())

	challenge, err := o.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://s.team/q/1/1", challenge.ChallengeURL)
	assert.Equal(t, StateAwaitingChallenge, o.State())
	assert.False(t, o.Scanned())

	var rotations []authservice.PairingChallenge
	cred, err := o.PollForCompletion(context.Background(), func(c authservice.PairingChallenge) {
		rotations = append(rotations, c)
	})
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, o.State())
	assert.Equal(t, readyOutcome().Credential, cred)
	assert.Equal(t, 5, o.Polls())
	assert.True(t, o.Scanned())
	require.Len(t, provider.polls, 5)

	require.Len(t, rotations, 1)
	assert.Equal(t, uint64(2), rotations[0].ClientID)
	assert.Equal(t, "https://s.team/q/1/2", rotations[0].ChallengeURL)

	// Polls after the rotation use the new client id and keep the request id.
	assert.Equal(t, uint64(1), provider.polls[2].clientID)
	assert.Equal(t, uint64(2), provider.polls[3].clientID)
	assert.Equal(t, []byte{0xaa, 0xbb}, provider.polls[4].requestID)

	// One sleep of the challenge interval before every poll.
	require.Len(t, sleeper.calls, 5)
	for _, d := range sleeper.calls {
		assert.Equal(t, 5*time.Second, d)
	}
}

func TestOrchestrator_CancelBetweenPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &scriptedProvider{
		challenge: testChallenge(),
		outcomes:  []authservice.PollOutcome{authservice.Pending{}, authservice.Pending{}, readyOutcome()},
		afterPoll: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	o := NewOrchestrator(provider, authservice.DeviceDetails{}, WithSleep((&recordingSleep{}).sleep))

	_, err := o.Begin(ctx)
	require.NoError(t, err)

	cred, err := o.PollForCompletion(ctx, nil)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, o.State())
	assert.Equal(t, 2, o.Polls())
}

func TestOrchestrator_CancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &scriptedProvider{challenge: testChallenge(), outcomes: []authservice.PollOutcome{readyOutcome()}}
	sleep := func(ctx context.Context, d time.Duration) {
		cancel()
		<-ctx.Done()
	}
	o := NewOrchestrator(provider, authservice.DeviceDetails{}, WithSleep(sleep))

	_, err := o.Begin(ctx)
	require.NoError(t, err)

	cred, err := o.PollForCompletion(ctx, nil)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, provider.polls, "no poll after a cancelled sleep")
}

func TestOrchestrator_PollRunsWithoutCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &scriptedProvider{challenge: testChallenge(), outcomes: []authservice.PollOutcome{readyOutcome()}}
	o := NewOrchestrator(provider, authservice.DeviceDetails{}, WithSleep((&recordingSleep{}).sleep))

	_, err := o.Begin(ctx)
	require.NoError(t, err)
	_, err = o.PollForCompletion(ctx, nil)
	require.NoError(t, err)

	require.Len(t, provider.pollCtxs, 1)
	cancel()
	assert.NoError(t, provider.pollCtxs[0].Err())
}

func TestOrchestrator_PollError(t *testing.T) {
	pollErr := errors.New("connection reset")
	provider := &scriptedProvider{challenge: testChallenge(), pollErr: pollErr}
	o := NewOrchestrator(provider, authservice.DeviceDetails{}, WithSleep((&recordingSleep{}).sleep))

	_, err := o.Begin(context.Background())
	require.NoError(t, err)

	cred, err := o.PollForCompletion(context.Background(), nil)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, pollErr)
	assert.Equal(t, StateFailed, o.State())
}

func TestOrchestrator_BeginError(t *testing.T) {
	beginErr := errors.New("provider unavailable")
	o := NewOrchestrator(&scriptedProvider{beginErr: beginErr}, authservice.DeviceDetails{})

	_, err := o.Begin(context.Background())
	assert.ErrorIs(t, err, beginErr)
	assert.Equal(t, StateFailed, o.State())

	_, err = o.PollForCompletion(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestOrchestrator_PollWithoutBegin(t *testing.T) {
	o := NewOrchestrator(&scriptedProvider{challenge: testChallenge()}, authservice.DeviceDetails{})

	_, err := o.PollForCompletion(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestrator_BeginWhileAwaiting(t *testing.T) {
	o := NewOrchestrator(&scriptedProvider{challenge: testChallenge()}, authservice.DeviceDetails{})

	_, err := o.Begin(context.Background())
	require.NoError(t, err)

	_, err = o.Begin(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestOrchestrator_MaxDuration(t *testing.T) {
	start := time.Now()
	var mu sync.Mutex
	now := start
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	sleep := func(_ context.Context, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	provider := &scriptedProvider{challenge: testChallenge()}
	o := NewOrchestrator(provider, authservice.DeviceDetails{},
		WithSleep(sleep), WithClock(clock), WithMaxDuration(12*time.Second))

	_, err := o.Begin(context.Background())
	require.NoError(t, err)

	cred, err := o.PollForCompletion(context.Background(), nil)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, StateFailed, o.State())
	// Sleeps end at 5s and 10s; the third ends at 15s, past the limit.
	assert.Equal(t, 2, o.Polls())
}

func TestOrchestrator_IntervalOverride(t *testing.T) {
	provider := &scriptedProvider{challenge: testChallenge(), outcomes: []authservice.PollOutcome{readyOutcome()}}
	sleeper := &recordingSleep{}
	o := NewOrchestrator(provider, authservice.DeviceDetails{}, WithSleep(sleeper.sleep), WithInterval(time.Second))

	_, err := o.Begin(context.Background())
	require.NoError(t, err)
	_, err = o.PollForCompletion(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second}, sleeper.calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting_challenge", StateAwaitingChallenge.String())
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateCancelled.IsTerminal())
	assert.False(t, StatePolling.IsTerminal())
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)

	sleepContext(context.Background(), 0)
}
