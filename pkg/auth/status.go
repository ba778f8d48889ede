package auth

import "time"

// Credential states reported in CredentialStatus.State.
const (
	CredentialStateValid   = "valid"
	CredentialStateExpired = "expired"
	CredentialStateMissing = "missing"
	CredentialStateCorrupt = "corrupt"
)

// StatusResponse is the structured authentication state reported by
// `steamlink auth status --output json` and the daemon's status endpoint.
type StatusResponse struct {
	// Credential describes the stored session credential.
	Credential *CredentialStatus `json:"credential"`

	// Pairing describes the pairing attempt of this process, if any.
	Pairing *PairingStatus `json:"pairing,omitempty"`
}

// CredentialStatus describes the persisted session credential. Token values
// are never included.
type CredentialStatus struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
	Path          string `json:"path"`

	AccountName     string     `json:"account_name,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	HasRefreshToken bool       `json:"has_refresh_token"`
}

// PairingStatus describes an in-flight or finished pairing attempt.
type PairingStatus struct {
	// State is one of: "idle", "awaiting_challenge", "polling",
	// "authenticated", "cancelled", "failed"
	State string `json:"state"`

	// ChallengeURL is present while a QR challenge is active
	ChallengeURL string `json:"challenge_url,omitempty"`

	Polls int `json:"polls"`

	// Scanned is set once the companion device opened the challenge.
	Scanned bool `json:"scanned,omitempty"`
}
