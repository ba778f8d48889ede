package authservice

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken is returned by Refresh when the credential carries no
	// refresh token.
	ErrNoRefreshToken = errors.New("credential has no refresh token")

	// ErrUnexpectedStatus is wrapped by StatusError.
	ErrUnexpectedStatus = errors.New("unexpected provider response status")
)

// StatusError is a non-2xx response from a provider endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// ResultError is a 2xx response whose X-eresult header reports a failure.
// The provider uses it for expired or unknown pairing sessions.
type ResultError struct {
	Endpoint string
	EResult  int
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed with result code %d", e.Endpoint, e.EResult)
}
