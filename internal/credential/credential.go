package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedClaims is returned when the claims segment of an access token
// cannot be decoded or lacks the fields the client depends on.
var ErrMalformedClaims = errors.New("malformed access token claims")

// SessionCredential is the bearer material issued by the identity provider.
// Subject and expiry are not stored; they are decoded from the access token.
type SessionCredential struct {
	// AccessToken is the short-lived access credential.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived refresh credential.
	RefreshToken string `json:"refresh_token"`

	// AccountName is the human-readable account label.
	AccountName string `json:"account_name"`
}

// Claims holds the fields decoded from the access token's claims segment.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// SubjectID returns the subject as the 64-bit account identifier used by the
// refresh endpoint.
func (c Claims) SubjectID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not numeric", ErrMalformedClaims, c.Subject)
	}
	return id, nil
}

// IsEmpty reports whether c carries no access token.
func (c *SessionCredential) IsEmpty() bool {
	return c == nil || c.AccessToken == ""
}

// Claims decodes the claims embedded in the access token.
func (c *SessionCredential) Claims() (Claims, error) {
	if c.IsEmpty() {
		return Claims{}, fmt.Errorf("%w: empty access token", ErrMalformedClaims)
	}
	return DecodeClaims(c.AccessToken)
}

// IsValid reports whether the claims decode and the expiry is strictly after now.
func (c *SessionCredential) IsValid(now time.Time) bool {
	claims, err := c.Claims()
	if err != nil {
		return false
	}
	return claims.ExpiresAt.After(now)
}

// ExpiresWithin reports whether the credential is invalid at now+d.
// A credential whose claims cannot be decoded always "expires within" d.
func (c *SessionCredential) ExpiresWithin(d time.Duration, now time.Time) bool {
	return !c.IsValid(now.Add(d))
}

// DecodeClaims decodes the claims segment of a three-part access token. The
// header and signature are not inspected; the claims are used for display and
// expiry only.
func DecodeClaims(accessToken string) (Claims, error) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: expected three segments", ErrMalformedClaims)
	}

	segment, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformedClaims, err)
	}

	var registered jwt.RegisteredClaims
	if err := json.Unmarshal(segment, &registered); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformedClaims, err)
	}

	if registered.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrMalformedClaims)
	}

	return Claims{
		Subject:   registered.Subject,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
