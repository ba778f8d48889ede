package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamlink/internal/authservice"
	"steamlink/internal/config"
	"steamlink/internal/credential"
	"steamlink/internal/session"
)

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "76561197960287930",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

type refreshingProvider struct {
	mu        sync.Mutex
	refreshed *credential.SessionCredential
	err       error
	calls     int
}

func (p *refreshingProvider) BeginPairing(context.Context, authservice.DeviceDetails) (*authservice.PairingChallenge, error) {
	return nil, errors.New("not used")
}

func (p *refreshingProvider) PollOnce(context.Context, uint64, []byte) (authservice.PollOutcome, error) {
	return nil, errors.New("not used")
}

func (p *refreshingProvider) Refresh(ctx context.Context, cred *credential.SessionCredential) (*credential.SessionCredential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.refreshed, p.err
}

func (p *refreshingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testServices(t *testing.T, provider session.Provider) *Services {
	t.Helper()
	c := config.GetDefaultConfig()
	c.DataDir = t.TempDir()
	c.Daemon.RefreshInterval = time.Hour

	store := credential.NewStore(c.DataDir)
	return &Services{
		Config: c,
		Store:  store,
		Session: session.New(session.Config{
			Store:    store,
			Provider: provider,
		}),
	}
}

func TestRefreshDaemon_Check(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		provider := &refreshingProvider{}
		d := &refreshDaemon{services: testServices(t, provider)}

		assert.False(t, d.check(context.Background(), "test"))
		assert.Zero(t, provider.Calls())
	})

	t.Run("fresh credential is left alone", func(t *testing.T) {
		provider := &refreshingProvider{}
		services := testServices(t, provider)
		require.NoError(t, services.Store.Save(&credential.SessionCredential{
			AccessToken:  accessToken(t, time.Now().Add(time.Hour)),
			RefreshToken: "refresh",
		}))

		d := &refreshDaemon{services: services}
		assert.True(t, d.check(context.Background(), "test"))
		assert.Zero(t, provider.Calls())
	})

	t.Run("expiring credential is renewed and persisted", func(t *testing.T) {
		renewed := &credential.SessionCredential{
			AccessToken:  accessToken(t, time.Now().Add(24*time.Hour)),
			RefreshToken: "rotated",
			AccountName:  "gaben",
		}
		provider := &refreshingProvider{refreshed: renewed}
		services := testServices(t, provider)
		require.NoError(t, services.Store.Save(&credential.SessionCredential{
			AccessToken:  accessToken(t, time.Now().Add(time.Minute)),
			RefreshToken: "refresh",
			AccountName:  "gaben",
		}))

		d := &refreshDaemon{services: services}
		assert.True(t, d.check(context.Background(), "test"))
		assert.Equal(t, 1, provider.Calls())

		stored, status := services.Store.Load()
		require.Equal(t, credential.LoadStatusLoaded, status)
		assert.Equal(t, "rotated", stored.RefreshToken)
	})

	t.Run("expired credential that cannot be renewed", func(t *testing.T) {
		provider := &refreshingProvider{err: authservice.ErrNoRefreshToken}
		services := testServices(t, provider)
		require.NoError(t, services.Store.Save(&credential.SessionCredential{
			AccessToken: accessToken(t, time.Now().Add(-time.Minute)),
		}))

		d := &refreshDaemon{services: services}
		assert.False(t, d.check(context.Background(), "test"))
		assert.Equal(t, 1, provider.Calls())
	})
}

func TestRefreshDaemon_Handler(t *testing.T) {
	services := testServices(t, &refreshingProvider{})
	d := &refreshDaemon{services: services}

	server := httptest.NewServer(d.handler())
	defer server.Close()

	for _, path := range []string{"/healthz", "/metrics", "/status"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	states []string
	ready  chan struct{}
}

func (n *recordingNotifier) notify(state string) error {
	n.mu.Lock()
	n.states = append(n.states, state)
	n.mu.Unlock()
	if state == daemon.SdNotifyReady {
		close(n.ready)
	}
	return nil
}

func (n *recordingNotifier) States() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.states...)
}

func TestRunDaemon_Lifecycle(t *testing.T) {
	services := testServices(t, &refreshingProvider{})
	services.Config.Daemon.MetricsAddress = "127.0.0.1:0"

	notifier := &recordingNotifier{ready: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runDaemon(ctx, services, notifier.notify) }()

	select {
	case <-notifier.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon never reported ready")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	assert.Equal(t, []string{daemon.SdNotifyReady, daemon.SdNotifyStopping}, notifier.States())
}

func TestRunDaemon_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	services := testServices(t, &refreshingProvider{})
	services.Config.Daemon.MetricsAddress = ln.Addr().String()

	err = runDaemon(context.Background(), services, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
