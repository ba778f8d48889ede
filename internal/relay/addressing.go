package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Mode selects how a pairing session is addressed on the relay.
type Mode string

const (
	// ModePublicKey publishes a random session token and an ephemeral public
	// key; the relay returns the credential encrypted under that key.
	ModePublicKey Mode = "public-key"

	// ModeCodeHash addresses the session by the SHA-256 of the device id and
	// a short code typed on both devices. The credential is returned in clear.
	ModeCodeHash Mode = "code-hash"

	// ModePlainCode addresses the session by the raw short code. The relay
	// answers with the session credential object in clear.
	ModePlainCode Mode = "plain-code"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModePublicKey

// Modes lists the supported modes.
var Modes = []Mode{ModePublicKey, ModeCodeHash, ModePlainCode}

// ParseMode converts a configuration value to a Mode. The empty string
// yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown relay mode %q (supported: %s, %s, %s)", s, ModePublicKey, ModeCodeHash, ModePlainCode)
}

// NeedsCode reports whether the mode requires a user-entered code.
func (m Mode) NeedsCode() bool {
	return m == ModeCodeHash || m == ModePlainCode
}

// CodeHash returns the lowercase hex SHA-256 of deviceID followed by code.
func CodeHash(deviceID, code string) string {
	sum := sha256.Sum256([]byte(deviceID + code))
	return hex.EncodeToString(sum[:])
}
