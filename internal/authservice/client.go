package authservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"steamlink/internal/credential"
	"steamlink/internal/metrics"
	"steamlink/pkg/logging"
	pkgstrings "steamlink/pkg/strings"
)

const (
	// DefaultBaseURL is the provider's web API host.
	DefaultBaseURL = "https://api.steampowered.com"

	// DefaultUserAgent identifies the client as the provider's mobile app.
	DefaultUserAgent = "okhttp/4.9.2"

	// MobileClientCookie is sent ahead of any session cookies on every request.
	MobileClientCookie = "mobileClient=android; mobileClientVersion=777777 3.10.3"

	// DefaultHTTPTimeout bounds a single provider round trip.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultOSType and DefaultGamingDeviceType are the device codes the
	// mobile app reports.
	DefaultOSType           int32  = -500
	DefaultGamingDeviceType uint32 = 528

	maxResponseBytes = 1 << 20
)

// Endpoint paths relative to the base URL.
const (
	EndpointBeginAuthSessionViaQR     = "/IAuthenticationService/BeginAuthSessionViaQR/v1/"
	EndpointPollAuthSessionStatus     = "/IAuthenticationService/PollAuthSessionStatus/v1/"
	EndpointGenerateAccessTokenForApp = "/IAuthenticationService/GenerateAccessTokenForApp/v1/"
)

// formField carries the base64-encoded request body.
const formField = "input_protobuf_encoded"

// Client talks to the provider's authentication service.
//
// The cookie jar is shared by every request from one Client; requests are
// expected to be issued sequentially by a single pairing flow.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	mobileCookie string
	jar          *CookieJar
	now          func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMobileCookie overrides MobileClientCookie.
func WithMobileCookie(cookie string) ClientOption {
	return func(c *Client) {
		c.mobileCookie = cookie
	}
}

// NewClient creates a provider client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:      DefaultBaseURL,
		userAgent:    DefaultUserAgent,
		mobileCookie: MobileClientCookie,
		jar:          NewCookieJar(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Cookies returns the client's cookie jar.
func (c *Client) Cookies() *CookieJar {
	return c.jar
}

// BeginPairing starts a QR pairing session for the described device.
func (c *Client) BeginPairing(ctx context.Context, details DeviceDetails) (*PairingChallenge, error) {
	body, err := c.call(ctx, EndpointBeginAuthSessionViaQR, marshalBeginRequest(details))
	if err != nil {
		return nil, fmt.Errorf("failed to begin pairing: %w", err)
	}

	resp, err := unmarshalBeginResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pairing challenge: %w", err)
	}
	if resp.challengeURL == "" {
		return nil, fmt.Errorf("%w: challenge has no URL", ErrMalformedResponse)
	}

	interval := time.Duration(float64(resp.interval) * float64(time.Second))
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	logging.Debug("AuthService", "Pairing challenge issued (client %d, interval %s, version %d)", resp.clientID, interval, resp.version)

	return &PairingChallenge{
		ClientID:             resp.clientID,
		RequestID:            resp.requestID,
		ChallengeURL:         resp.challengeURL,
		Interval:             interval,
		AllowedConfirmations: resp.allowedConfirmations,
		Version:              resp.version,
	}, nil
}

// PollOnce asks the provider whether the pairing identified by clientID and
// requestID has progressed.
func (c *Client) PollOnce(ctx context.Context, clientID uint64, requestID []byte) (PollOutcome, error) {
	body, err := c.call(ctx, EndpointPollAuthSessionStatus, marshalPollRequest(clientID, requestID))
	if err != nil {
		metrics.PairingPolls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to poll pairing status: %w", err)
	}

	resp, err := unmarshalPollResponse(body)
	if err != nil {
		metrics.PairingPolls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode pairing status: %w", err)
	}

	outcome := classifyPoll(resp)
	metrics.PairingPolls.WithLabelValues(outcome.Name()).Inc()
	return outcome, nil
}

// Refresh exchanges the credential's refresh token for a new access token.
// The refresh token is not rotated; when the provider returns none the
// existing one is kept. Any failure returns a nil credential.
func (c *Client) Refresh(ctx context.Context, cred *credential.SessionCredential) (*credential.SessionCredential, error) {
	refreshed, err := c.refresh(ctx, cred)
	if err != nil {
		metrics.CredentialRefreshes.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.CredentialRefreshes.WithLabelValues("success").Inc()
	return refreshed, nil
}

func (c *Client) refresh(ctx context.Context, cred *credential.SessionCredential) (*credential.SessionCredential, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	claims, err := cred.Claims()
	if err != nil {
		return nil, fmt.Errorf("cannot refresh: %w", err)
	}
	steamID, err := claims.SubjectID()
	if err != nil {
		return nil, fmt.Errorf("cannot refresh: %w", err)
	}

	body, err := c.call(ctx, EndpointGenerateAccessTokenForApp, marshalRefreshRequest(cred.RefreshToken, steamID))
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	resp, err := unmarshalRefreshResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode refreshed token: %w", err)
	}

	refreshed := &credential.SessionCredential{
		AccessToken:  resp.accessToken,
		RefreshToken: resp.refreshToken,
		AccountName:  cred.AccountName,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}

	newClaims, err := refreshed.Claims()
	if err != nil {
		return nil, fmt.Errorf("refreshed token is unusable: %w", err)
	}
	if !newClaims.ExpiresAt.After(c.now()) {
		return nil, fmt.Errorf("%w: refreshed token is already expired", ErrMalformedResponse)
	}

	logging.Audit("credential_refreshed",
		slog.String("account", refreshed.AccountName),
		slog.String("subject", newClaims.Subject),
		slog.String("expiry", newClaims.ExpiresAt.Format(time.RFC3339)),
	)

	return refreshed, nil
}

// call posts a binary request body to endpoint and returns the binary
// response body.
func (c *Client) call(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	form := url.Values{}
	form.Set(formField, base64.StdEncoding.EncodeToString(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", c.jar.Header(c.mobileCookie))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.jar.Store(resp.Cookies())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
		}
	}

	if result := resp.Header.Get("X-eresult"); result != "" && result != "1" {
		code, _ := strconv.Atoi(result)
		return nil, &ResultError{Endpoint: endpoint, EResult: code}
	}

	return body, nil
}

// maxErrorBodyLen bounds the response excerpt carried by StatusError.
const maxErrorBodyLen = 200

func truncateBody(body []byte) string {
	return pkgstrings.Truncate(string(body), maxErrorBodyLen)
}
