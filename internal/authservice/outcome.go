package authservice

import (
	"time"

	"steamlink/internal/credential"
)

// DefaultPollInterval is used when the provider does not return a usable
// interval with the challenge.
const DefaultPollInterval = 5 * time.Second

// PairingChallenge is one in-flight QR pairing session.
type PairingChallenge struct {
	// ClientID identifies the session to the provider. It may be rotated.
	ClientID uint64

	// RequestID is opaque binary data echoed back on every poll.
	RequestID []byte

	// ChallengeURL is rendered as a QR code for the companion device. It may
	// be rotated.
	ChallengeURL string

	// Interval is the delay between polls. It is fixed at creation.
	Interval time.Duration

	AllowedConfirmations []AllowedConfirmation
	Version              int32
}

// Apply updates the challenge in place with a rotation. Fields the rotation
// leaves empty keep their current value; the request id is never rotated by
// the provider and is kept.
func (c *PairingChallenge) Apply(r ChallengeRotated) {
	if r.NewClientID != 0 {
		c.ClientID = r.NewClientID
	}
	if r.NewChallengeURL != "" {
		c.ChallengeURL = r.NewChallengeURL
	}
}

// PollOutcome is the result of one poll. It is exactly one of Pending,
// ChallengeRotated or CredentialReady.
type PollOutcome interface {
	// Name is a short label for logs and metrics.
	Name() string

	isPollOutcome()
}

// Pending means the companion device has not approved the pairing yet.
type Pending struct {
	// HadRemoteInteraction is set once the code was scanned.
	HadRemoteInteraction bool
}

// ChallengeRotated means the provider issued a new client id and/or URL; the
// displayed code must be redrawn.
type ChallengeRotated struct {
	NewClientID     uint64
	NewChallengeURL string
}

// CredentialReady means the pairing was approved.
type CredentialReady struct {
	Credential           *credential.SessionCredential
	HadRemoteInteraction bool
}

func (Pending) Name() string          { return "pending" }
func (ChallengeRotated) Name() string { return "rotated" }
func (CredentialReady) Name() string  { return "ready" }

func (Pending) isPollOutcome()          {}
func (ChallengeRotated) isPollOutcome() {}
func (CredentialReady) isPollOutcome()  {}

// pollRules maps populated response fields to an outcome. The first match
// wins; the wire format carries no explicit status, so the order is the
// contract.
var pollRules = []struct {
	name  string
	match func(*pollResponse) bool
	build func(*pollResponse) PollOutcome
}{
	{
		name:  "access token present",
		match: func(r *pollResponse) bool { return r.accessToken != "" },
		build: func(r *pollResponse) PollOutcome {
			return CredentialReady{
				Credential: &credential.SessionCredential{
					AccessToken:  r.accessToken,
					RefreshToken: r.refreshToken,
					AccountName:  r.accountName,
				},
				HadRemoteInteraction: r.hadRemoteInteraction,
			}
		},
	},
	{
		name:  "new client id or challenge url present",
		match: func(r *pollResponse) bool { return r.newClientID != 0 || r.newChallengeURL != "" },
		build: func(r *pollResponse) PollOutcome {
			return ChallengeRotated{NewClientID: r.newClientID, NewChallengeURL: r.newChallengeURL}
		},
	},
}

func classifyPoll(r *pollResponse) PollOutcome {
	for _, rule := range pollRules {
		if rule.match(r) {
			return rule.build(r)
		}
	}
	return Pending{HadRemoteInteraction: r.hadRemoteInteraction}
}
