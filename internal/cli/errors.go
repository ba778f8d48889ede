package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"steamlink/internal/authservice"
	"steamlink/internal/credential"
	"steamlink/internal/relay"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates refused, reset or unreachable connections.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the identity provider or the relay could not be
// reached.
type ConnectionError struct {
	// Service names what was being contacted ("identity provider", "relay").
	Service string
	Type    ConnectionErrorType
	Reason  error
}

// ClassifyConnectionError wraps err in a ConnectionError with the best
// matching type. It returns nil for a nil error.
func ClassifyConnectionError(err error, service string) *ConnectionError {
	if err == nil {
		return nil
	}

	connErr := &ConnectionError{Service: service, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		connErr.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		connErr.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		connErr.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		connErr.Type = ConnectionErrorNetwork
	}
	return connErr
}

func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// Error returns a user-facing message with a hint for the error type.
func (e *ConnectionError) Error() string {
	var hint string
	switch e.Type {
	case ConnectionErrorTLS:
		hint = "Check the system certificate store or any intercepting proxy."
	case ConnectionErrorDNS:
		hint = "Check the configured base URL and your DNS settings."
	case ConnectionErrorTimeout:
		hint = "The service did not answer in time. Try again or raise provider.httpTimeout."
	case ConnectionErrorNetwork:
		hint = "Check your network connection."
	default:
		hint = "Run with --log-level debug for details."
	}
	return fmt.Sprintf("%s: cannot reach the %s: %v\n\n%s", e.Type, e.Service, e.Reason, hint)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// AuthRequiredError indicates there is no usable stored credential.
type AuthRequiredError struct {
	// Path is the credential file that was consulted.
	Path string
}

func (e *AuthRequiredError) Error() string {
	msg := "Not signed in to Steam."
	if e.Path != "" {
		msg = fmt.Sprintf("Not signed in to Steam (no usable credential at %s).", e.Path)
	}
	return msg + `

To sign in, run:
  steamlink auth login

To pair through the companion relay instead, run:
  steamlink auth relay`
}

// Is matches any AuthRequiredError.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the stored credential expired and could not be
// renewed.
type AuthExpiredError struct {
	AccountName string
}

func (e *AuthExpiredError) Error() string {
	who := "The stored Steam credential"
	if e.AccountName != "" {
		who = fmt.Sprintf("The Steam credential for %s", e.AccountName)
	}
	return who + ` has expired.

To try renewing it, run:
  steamlink auth refresh

If renewal keeps failing, sign in again:
  steamlink auth login`
}

// Is matches any AuthExpiredError.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the provider or relay rejected the attempt.
type AuthFailedError struct {
	Reason error
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Steam sign-in failed: %v

Check the account status with:
  steamlink auth status`, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is matches any AuthFailedError.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ClassifyError maps errors from the session layer to the user-facing types
// above. Errors it does not recognise are returned unchanged.
func ClassifyError(err error, service string) error {
	if err == nil {
		return nil
	}

	var (
		resultErr      *authservice.ResultError
		providerStatus *authservice.StatusError
		relayStatus    *relay.StatusError
		urlErr         *url.Error
	)

	switch {
	case errors.Is(err, credential.ErrNoValidCredential),
		errors.Is(err, authservice.ErrNoRefreshToken):
		return &AuthRequiredError{}
	case errors.As(err, &resultErr):
		return &AuthFailedError{Reason: err}
	case errors.As(err, &providerStatus):
		if isAuthStatus(providerStatus.StatusCode) {
			return &AuthFailedError{Reason: err}
		}
		return err
	case errors.As(err, &relayStatus):
		if isAuthStatus(relayStatus.StatusCode) {
			return &AuthFailedError{Reason: err}
		}
		return err
	case errors.Is(err, relay.ErrDecryption):
		return &AuthFailedError{Reason: err}
	case errors.As(err, &urlErr):
		return ClassifyConnectionError(err, service)
	}
	return err
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
