package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"steamlink/internal/credential"
	"steamlink/internal/metrics"
	"steamlink/pkg/logging"
	pkgstrings "steamlink/pkg/strings"
)

const (
	// DefaultBaseURL is the relay broker.
	DefaultBaseURL = "https://nxe-steam-api-relay.pages.dev"

	// DefaultHTTPTimeout bounds one relay round trip.
	DefaultHTTPTimeout = 15 * time.Second

	maxResponseBytes = 64 << 10
	maxErrorBodyLen  = 200
)

var (
	// ErrUnexpectedStatus is wrapped by StatusError.
	ErrUnexpectedStatus = errors.New("unexpected relay response status")

	// ErrInvalidPayload is returned when the relay response or the decrypted
	// payload is not a credential document.
	ErrInvalidPayload = errors.New("invalid relay payload")
)

// StatusError is a non-2xx, non-401 relay response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// pollResponse is the relay's JSON body. It carries either encryptedData or
// the credential fields in clear.
type pollResponse struct {
	EncryptedData string `json:"encryptedData"`
	credentialPayload

	// APIKey is set by relays that hand out a web API key instead of a
	// session credential.
	APIKey string `json:"apikey"`
}

type credentialPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	AccountName  string `json:"accountName"`
}

func (c credentialPayload) toCredential() *credential.SessionCredential {
	return &credential.SessionCredential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		AccountName:  c.AccountName,
	}
}

// Client polls the relay broker.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// NewClient creates a relay client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PollURL returns the URL polled for pairing.
func (c *Client) PollURL(p *Pairing) string {
	key, value := p.pollQuery()
	return c.baseURL + "/poll?" + url.Values{key: {value}}.Encode()
}

// Poll asks the relay once for the pairing's credential. A nil credential
// with a nil error means the credential is not available yet: the relay
// answered 401 or its response has no payload field.
func (c *Client) Poll(ctx context.Context, p *Pairing) (*credential.SessionCredential, error) {
	cred, outcome, err := c.poll(ctx, p)
	metrics.RelayPolls.WithLabelValues(outcome).Inc()
	return cred, err
}

func (c *Client) poll(ctx context.Context, p *Pairing) (*credential.SessionCredential, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PollURL(p), nil)
	if err != nil {
		return nil, "error", fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "error", fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		logging.Debug("Relay", "Relay has no credential for %s session %s yet", p.Mode(), pkgstrings.Mask(p.Address()))
		return nil, "unauthorized", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "error", &StatusError{StatusCode: resp.StatusCode, Body: pkgstrings.Truncate(string(body), maxErrorBodyLen)}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, "pending", nil
	}

	var parsed pollResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "error", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if p.Mode() == ModePublicKey {
		if parsed.EncryptedData == "" {
			return nil, "pending", nil
		}
		cred, err := c.decryptCredential(p, parsed.EncryptedData)
		if err != nil {
			return nil, "error", err
		}
		return cred, "ready", nil
	}

	if parsed.AccessToken == "" {
		if parsed.APIKey != "" {
			return nil, "error", fmt.Errorf("%w: relay returned a web API key, not a session credential", ErrInvalidPayload)
		}
		return nil, "pending", nil
	}
	return parsed.toCredential(), "ready", nil
}

func (c *Client) decryptCredential(p *Pairing, ciphertext string) (*credential.SessionCredential, error) {
	plaintext, err := p.decrypt(ciphertext)
	if err != nil {
		return nil, err
	}

	var payload credentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: decrypted payload is not JSON: %w", ErrInvalidPayload, err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: decrypted payload has no access token", ErrInvalidPayload)
	}
	return payload.toCredential(), nil
}
