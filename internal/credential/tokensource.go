package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"steamlink/pkg/logging"
)

// ErrNoValidCredential is returned by the token source when neither the stored
// credential nor a refresh of it yields a usable access token.
var ErrNoValidCredential = errors.New("no valid credential available")

// Refresher exchanges a credential's refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, cred *SessionCredential) (*SessionCredential, error)
}

// storeTokenSource serves the persisted credential as an oauth2 token,
// refreshing and re-persisting it when it is about to expire.
type storeTokenSource struct {
	ctx       context.Context
	store     *Store
	refresher Refresher
	skew      time.Duration
	now       func() time.Time

	// group deduplicates concurrent refreshes of the same stored credential
	group singleflight.Group
}

// NewTokenSource returns an oauth2.TokenSource backed by store. Tokens are
// cached until skew before expiry; after that the stored credential is
// refreshed through refresher and saved back. ctx bounds refresh requests.
func NewTokenSource(ctx context.Context, store *Store, refresher Refresher, skew time.Duration) oauth2.TokenSource {
	src := &storeTokenSource{
		ctx:       ctx,
		store:     store,
		refresher: refresher,
		skew:      skew,
		now:       time.Now,
	}
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, skew)
}

// Token implements oauth2.TokenSource.
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	v, err, _ := s.group.Do(s.store.Path(), func() (interface{}, error) {
		return s.token()
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (s *storeTokenSource) token() (*oauth2.Token, error) {
	cred, _ := s.store.LoadIncludingExpired()
	if cred == nil {
		return nil, ErrNoValidCredential
	}

	if !cred.ExpiresWithin(s.skew, s.now()) {
		return toOAuth2(cred)
	}

	if s.refresher == nil || cred.RefreshToken == "" {
		return nil, ErrNoValidCredential
	}

	logging.Debug("TokenSource", "Stored credential for %s is expiring, refreshing", cred.AccountName)
	refreshed, err := s.refresher.Refresh(s.ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoValidCredential, err)
	}
	if !refreshed.IsValid(s.now()) {
		return nil, ErrNoValidCredential
	}

	if err := s.store.Save(refreshed); err != nil {
		// The refreshed token is still usable for this process.
		logging.Warn("TokenSource", "Refreshed credential could not be persisted: %v", err)
	}

	return toOAuth2(refreshed)
}

// toOAuth2 converts cred to an oauth2.Token carrying the decoded expiry.
func toOAuth2(cred *SessionCredential) (*oauth2.Token, error) {
	claims, err := cred.Claims()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       claims.ExpiresAt,
	}, nil
}
