package relay

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// KeyBits is the size of the ephemeral RSA key.
const KeyBits = 2048

var (
	// ErrCodeRequired is returned when a code-addressed pairing is created
	// without a code.
	ErrCodeRequired = errors.New("relay pairing code is required")

	// ErrDeviceIDRequired is returned when a code-hash pairing is created
	// without a device id.
	ErrDeviceIDRequired = errors.New("device id is required for code-hash pairing")

	// ErrPairingClosed is returned when a closed public-key pairing is used to
	// decrypt a payload.
	ErrPairingClosed = errors.New("relay pairing is closed")

	// ErrDecryption is returned when the relay payload does not decrypt under
	// the pairing's private key.
	ErrDecryption = errors.New("relay payload could not be decrypted")
)

// Pairing is one relay pairing attempt. In public-key mode it owns the
// ephemeral private key until Close; the key is never written anywhere and
// never replaced during the attempt.
type Pairing struct {
	mode     Mode
	token    string
	code     string
	deviceID string
	address  string

	mu        sync.Mutex
	key       *rsa.PrivateKey
	publicKey string
}

// NewPublicKeyPairing creates a pairing addressed by a random session token
// with a fresh RSA keypair.
func NewPublicKeyPairing() (*Pairing, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	token := uuid.NewString()
	return &Pairing{
		mode:      ModePublicKey,
		token:     token,
		address:   token,
		key:       key,
		publicKey: base64.StdEncoding.EncodeToString(pemBytes),
	}, nil
}

// NewCodeHashPairing creates a pairing addressed by CodeHash(deviceID, code).
func NewCodeHashPairing(deviceID, code string) (*Pairing, error) {
	code = strings.TrimSpace(code)
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if code == "" {
		return nil, ErrCodeRequired
	}
	return &Pairing{
		mode:     ModeCodeHash,
		code:     code,
		deviceID: deviceID,
		address:  CodeHash(deviceID, code),
	}, nil
}

// NewPlainCodePairing creates a pairing addressed by the code itself.
func NewPlainCodePairing(code string) (*Pairing, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	return &Pairing{
		mode:    ModePlainCode,
		code:    code,
		address: code,
	}, nil
}

// NewPairing creates a pairing for mode. deviceID and code are ignored by
// modes that do not use them.
func NewPairing(mode Mode, deviceID, code string) (*Pairing, error) {
	switch mode {
	case ModePublicKey:
		return NewPublicKeyPairing()
	case ModeCodeHash:
		return NewCodeHashPairing(deviceID, code)
	case ModePlainCode:
		return NewPlainCodePairing(code)
	default:
		return nil, fmt.Errorf("unknown relay mode %q", mode)
	}
}

// Mode returns the addressing mode.
func (p *Pairing) Mode() Mode {
	return p.mode
}

// Address is the value the relay indexes the session by.
func (p *Pairing) Address() string {
	return p.address
}

// Code returns the user-entered code, if any.
func (p *Pairing) Code() string {
	return p.code
}

// PublicKey returns the base64-encoded PEM public key, or "" outside
// public-key mode.
func (p *Pairing) PublicKey() string {
	return p.publicKey
}

// CompanionURL builds the link shown to the companion device.
func (p *Pairing) CompanionURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid companion URL %q: %w", base, err)
	}

	q := u.Query()
	switch p.mode {
	case ModePublicKey:
		q.Set("token", p.token)
		q.Set("key", p.publicKey)
	case ModeCodeHash:
		q.Set("device", p.deviceID)
	case ModePlainCode:
		q.Set("code", p.code)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// pollQuery returns the query parameter the relay expects for this mode.
func (p *Pairing) pollQuery() (string, string) {
	switch p.mode {
	case ModeCodeHash:
		return "hash", p.address
	case ModePlainCode:
		return "code", p.address
	default:
		return "token", p.address
	}
}

// decrypt base64-decodes ciphertext and decrypts it with the private key
// using PKCS#1 v1.5 padding.
func (p *Pairing) decrypt(ciphertext string) ([]byte, error) {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()

	if key == nil {
		return nil, ErrPairingClosed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %w", ErrDecryption, err)
	}

	plaintext, err := rsa.DecryptPKCS1v15(nil, key, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return plaintext, nil
}

// Close drops the private key. It is safe to call more than once.
func (p *Pairing) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.key = nil
}
