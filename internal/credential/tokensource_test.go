package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	t       *testing.T
	calls   atomic.Int32
	err     error
	expiry  time.Time
	release chan struct{}
}

func (f *fakeRefresher) Refresh(_ context.Context, cred *SessionCredential) (*SessionCredential, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &SessionCredential{
		AccessToken:  signedAccessToken(f.t, testSubject, f.expiry),
		RefreshToken: cred.RefreshToken,
		AccountName:  cred.AccountName,
	}, nil
}

func TestTokenSource_ValidCredential(t *testing.T) {
	store := NewStore(t.TempDir())
	cred := testCredential(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Save(cred))

	refresher := &fakeRefresher{t: t}
	src := NewTokenSource(context.Background(), store, refresher, time.Minute)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestTokenSource_RefreshesExpiring(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testCredential(t, time.Now().Add(10*time.Second))))

	newExpiry := time.Now().Add(time.Hour).Truncate(time.Second)
	refresher := &fakeRefresher{t: t, expiry: newExpiry}
	src := NewTokenSource(context.Background(), store, refresher, time.Minute)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.True(t, newExpiry.Equal(tok.Expiry))

	// The refreshed credential was written back.
	stored, status := store.Load()
	require.Equal(t, LoadStatusLoaded, status)
	assert.Equal(t, tok.AccessToken, stored.AccessToken)
}

func TestTokenSource_RefreshFailure(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testCredential(t, time.Now().Add(-time.Hour))))

	refresher := &fakeRefresher{t: t, err: errors.New("provider unavailable")}
	src := NewTokenSource(context.Background(), store, refresher, time.Minute)

	_, err := src.Token()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidCredential)
}

func TestTokenSource_NoCredential(t *testing.T) {
	src := NewTokenSource(context.Background(), NewStore(t.TempDir()), &fakeRefresher{t: t}, time.Minute)

	_, err := src.Token()
	assert.ErrorIs(t, err, ErrNoValidCredential)
}

func TestTokenSource_NoRefreshToken(t *testing.T) {
	store := NewStore(t.TempDir())
	cred := testCredential(t, time.Now().Add(-time.Hour))
	cred.RefreshToken = ""
	require.NoError(t, store.Save(cred))

	refresher := &fakeRefresher{t: t}
	src := NewTokenSource(context.Background(), store, refresher, time.Minute)

	_, err := src.Token()
	assert.ErrorIs(t, err, ErrNoValidCredential)
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestTokenSource_ConcurrentRefreshDeduplicated(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testCredential(t, time.Now().Add(-time.Hour))))

	refresher := &fakeRefresher{t: t, expiry: time.Now().Add(time.Hour), release: make(chan struct{})}

	// Bypass the reuse wrapper so every goroutine reaches the store source.
	src := &storeTokenSource{
		ctx:       context.Background(),
		store:     store,
		refresher: refresher,
		skew:      time.Minute,
		now:       time.Now,
	}

	const workers = 5
	var started, done sync.WaitGroup
	started.Add(workers)
	done.Add(workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			_, err := src.Token()
			errs <- err
		}()
	}

	started.Wait()
	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(refresher.release)
	done.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, refresher.calls.Load(), int32(workers))
	assert.GreaterOrEqual(t, refresher.calls.Load(), int32(1))
}
