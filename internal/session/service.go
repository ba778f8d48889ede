package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"steamlink/internal/authservice"
	"steamlink/internal/credential"
	"steamlink/internal/metrics"
	"steamlink/internal/pairing"
	"steamlink/internal/relay"
	"steamlink/pkg/auth"
	"steamlink/pkg/logging"
)

// DefaultRefreshSkew is how long before expiry a credential is refreshed.
const DefaultRefreshSkew = 5 * time.Minute

var (
	// ErrNotPairing is returned by PollForCompletion without a prior
	// successful BeginPairing.
	ErrNotPairing = errors.New("no pairing in progress")

	// ErrPairingInProgress is returned when a second pairing attempt is
	// started while one is running.
	ErrPairingInProgress = errors.New("a pairing attempt is already in progress")

	// ErrInvalidCredential is returned by Persist for a credential whose
	// claims do not decode or are expired.
	ErrInvalidCredential = errors.New("credential is invalid or expired")
)

// Provider is the identity provider client: it pairs and refreshes.
type Provider interface {
	pairing.Provider
	credential.Refresher
}

// Config wires a Service.
type Config struct {
	Store    *credential.Store
	Provider Provider
	Relay    pairing.RelayClient
	Device   authservice.DeviceDetails

	// RefreshSkew defaults to DefaultRefreshSkew.
	RefreshSkew time.Duration

	// PairingOptions and RelayOptions configure the polling loops.
	PairingOptions []pairing.Option
	RelayOptions   []pairing.Option
}

// Service is the host-facing session API. It owns at most one pairing
// attempt at a time.
type Service struct {
	cfg Config
	now func() time.Time

	mu           sync.Mutex
	orchestrator *pairing.Orchestrator
	relayPoller  *pairing.RelayPoller
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.RefreshSkew == 0 {
		cfg.RefreshSkew = DefaultRefreshSkew
	}
	return &Service{cfg: cfg, now: time.Now}
}

// BeginPairing starts a QR pairing attempt and returns the challenge to
// display.
func (s *Service) BeginPairing(ctx context.Context) (*authservice.PairingChallenge, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return nil, ErrPairingInProgress
	}
	o := pairing.NewOrchestrator(s.cfg.Provider, s.cfg.Device, s.cfg.PairingOptions...)
	s.orchestrator = o
	s.mu.Unlock()

	return o.Begin(ctx)
}

// PollForCompletion polls the pairing started by BeginPairing until it is
// approved or ctx is cancelled. onRotated is called each time the displayed
// challenge must be redrawn. The credential is not persisted; call Persist.
func (s *Service) PollForCompletion(ctx context.Context, onRotated pairing.RotationFunc) (*credential.SessionCredential, error) {
	s.mu.Lock()
	o := s.orchestrator
	s.mu.Unlock()

	if o == nil || o.State() != pairing.StateAwaitingChallenge {
		return nil, ErrNotPairing
	}
	return o.PollForCompletion(ctx, onRotated)
}

// PairViaRelay polls the relay for p until it delivers a credential or ctx
// is cancelled. p is closed on return. The credential is not persisted.
func (s *Service) PairViaRelay(ctx context.Context, p *relay.Pairing) (*credential.SessionCredential, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		p.Close()
		return nil, ErrPairingInProgress
	}
	poller := pairing.NewRelayPoller(s.cfg.Relay, s.cfg.RelayOptions...)
	s.relayPoller = poller
	s.mu.Unlock()

	return poller.Run(ctx, p)
}

func (s *Service) busyLocked() bool {
	if s.orchestrator != nil && !isIdleOrTerminal(s.orchestrator.State()) {
		return true
	}
	return s.relayPoller != nil && s.relayPoller.State() == pairing.StatePolling
}

func isIdleOrTerminal(state pairing.State) bool {
	return state == pairing.StateIdle || state.IsTerminal()
}

// LoadStoredCredential returns the persisted credential, or nil when it is
// missing, corrupt or expired.
func (s *Service) LoadStoredCredential() *credential.SessionCredential {
	cred, _ := s.cfg.Store.Load()
	return cred
}

// RefreshIfNeeded returns cred unchanged while it is valid beyond the
// refresh skew, otherwise a refreshed credential. It returns nil when the
// refresh fails; the caller must then pair again. A nil cred is loaded from
// the store, expired or not. The result is not persisted.
func (s *Service) RefreshIfNeeded(ctx context.Context, cred *credential.SessionCredential) *credential.SessionCredential {
	if cred == nil {
		cred, _ = s.cfg.Store.LoadIncludingExpired()
		if cred == nil {
			return nil
		}
	}

	if !cred.ExpiresWithin(s.cfg.RefreshSkew, s.now()) {
		metrics.CredentialRefreshes.WithLabelValues("skipped").Inc()
		return cred
	}

	refreshed, err := s.cfg.Provider.Refresh(ctx, cred)
	if err != nil {
		logging.Warn("Session", "Could not refresh credential for %s, pairing is required: %v", cred.AccountName, err)
		return nil
	}
	return refreshed
}

// ForceRefresh refreshes the stored credential regardless of its remaining
// lifetime and persists the result. Unlike RefreshIfNeeded it reports why a
// refresh failed.
func (s *Service) ForceRefresh(ctx context.Context) (*credential.SessionCredential, error) {
	cred, status := s.cfg.Store.LoadIncludingExpired()
	if cred == nil {
		return nil, fmt.Errorf("stored credential is %s: %w", status, credential.ErrNoValidCredential)
	}

	refreshed, err := s.cfg.Provider.Refresh(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh credential: %w", err)
	}
	if err := s.Persist(refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Persist saves cred. A nil or empty credential is ignored; a credential that
// is not currently valid is rejected and never written.
func (s *Service) Persist(cred *credential.SessionCredential) error {
	if cred.IsEmpty() {
		return nil
	}
	if !cred.IsValid(s.now()) {
		return ErrInvalidCredential
	}
	return s.cfg.Store.Save(cred)
}

// Logout removes the stored credential.
func (s *Service) Logout() error {
	if err := s.cfg.Store.Clear(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	logging.Info("Session", "Stored credential removed")
	return nil
}

// TokenSource returns an oauth2.TokenSource over the stored credential that
// refreshes through the provider.
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	return credential.NewTokenSource(ctx, s.cfg.Store, s.cfg.Provider, s.cfg.RefreshSkew)
}

// Status reports the stored credential and the current pairing attempt.
func (s *Service) Status() auth.StatusResponse {
	resp := auth.StatusResponse{Credential: s.credentialStatus()}

	s.mu.Lock()
	o := s.orchestrator
	poller := s.relayPoller
	s.mu.Unlock()

	switch {
	case o != nil:
		ps := &auth.PairingStatus{State: o.State().String(), Polls: o.Polls(), Scanned: o.Scanned()}
		if c := o.Challenge(); c != nil && !o.State().IsTerminal() {
			ps.ChallengeURL = c.ChallengeURL
		}
		resp.Pairing = ps
	case poller != nil:
		resp.Pairing = &auth.PairingStatus{State: poller.State().String(), Polls: poller.Polls()}
	}

	return resp
}

func (s *Service) credentialStatus() *auth.CredentialStatus {
	status := &auth.CredentialStatus{Path: s.cfg.Store.Path()}

	cred, loadStatus := s.cfg.Store.LoadIncludingExpired()
	switch loadStatus {
	case credential.LoadStatusMissing:
		status.State = auth.CredentialStateMissing
		return status
	case credential.LoadStatusCorrupt:
		status.State = auth.CredentialStateCorrupt
		return status
	}

	status.AccountName = cred.AccountName
	status.HasRefreshToken = cred.RefreshToken != ""

	claims, err := cred.Claims()
	if err != nil {
		status.State = auth.CredentialStateExpired
		return status
	}
	status.Subject = claims.Subject
	expiry := claims.ExpiresAt
	status.ExpiresAt = &expiry

	if claims.ExpiresAt.After(s.now()) {
		status.State = auth.CredentialStateValid
		status.Authenticated = true
	} else {
		status.State = auth.CredentialStateExpired
	}
	return status
}
