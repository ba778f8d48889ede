package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"steamlink/internal/metrics"
	"steamlink/pkg/logging"
)

// DefaultFileName is the name of the persisted credential document.
const DefaultFileName = "steam_token.json"

// LoadStatus tells apart the reasons Load can come back empty.
type LoadStatus int

const (
	// LoadStatusLoaded means a valid credential was returned.
	LoadStatusLoaded LoadStatus = iota

	// LoadStatusMissing means no credential file exists.
	LoadStatusMissing

	// LoadStatusCorrupt means the file exists but could not be read or parsed.
	LoadStatusCorrupt

	// LoadStatusExpired means the file parsed but the access token is expired
	// or its claims could not be decoded.
	LoadStatusExpired
)

// String returns the string representation of the load status.
func (s LoadStatus) String() string {
	switch s {
	case LoadStatusLoaded:
		return "loaded"
	case LoadStatusMissing:
		return "missing"
	case LoadStatusCorrupt:
		return "corrupt"
	case LoadStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Store persists a single SessionCredential as a JSON document.
//
// SECURITY: the directory is created 0700 and the file written 0600. Token
// values are never logged.
//
// Store performs no locking; concurrent Save calls from separate pairing
// attempts against the same path are not supported.
type Store struct {
	dir  string
	path string
	now  func() time.Time
}

// NewStore creates a store for DefaultFileName inside dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		path: filepath.Join(dir, DefaultFileName),
		now:  time.Now,
	}
}

// Path returns the location of the credential file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted credential. It returns nil with a non-loaded status
// when the file is missing, corrupt or expired; none of these are errors.
func (s *Store) Load() (*SessionCredential, LoadStatus) {
	cred, status := s.load(true)
	metrics.CredentialLoads.WithLabelValues(status.String()).Inc()
	return cred, status
}

// LoadIncludingExpired reads the persisted credential even when its access
// token has expired, so the refresh credential can still be exchanged.
func (s *Store) LoadIncludingExpired() (*SessionCredential, LoadStatus) {
	return s.load(false)
}

func (s *Store) load(rejectExpired bool) (*SessionCredential, LoadStatus) {
	// #nosec G304 -- path is built from the configured data directory
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("CredentialStore", "No credential file at %s", s.path)
			logging.Audit("credential_load_missing", slog.String("path", s.path))
			return nil, LoadStatusMissing
		}
		logging.Warn("CredentialStore", "Credential file at %s is unreadable: %v", s.path, err)
		logging.Audit("credential_load_corrupt", slog.String("path", s.path), slog.String("reason", "unreadable"))
		return nil, LoadStatusCorrupt
	}

	var cred SessionCredential
	if err := json.Unmarshal(data, &cred); err != nil || cred.IsEmpty() {
		if err == nil {
			err = errors.New("access token is empty")
		}
		logging.Warn("CredentialStore", "Credential file at %s is invalid: %v", s.path, err)
		logging.Audit("credential_load_corrupt", slog.String("path", s.path), slog.String("reason", "parse"))
		return nil, LoadStatusCorrupt
	}

	if !rejectExpired {
		return &cred, LoadStatusLoaded
	}

	claims, err := cred.Claims()
	if err != nil {
		logging.Warn("CredentialStore", "Stored access token claims cannot be decoded: %v", err)
		logging.Audit("credential_load_expired", slog.String("account", cred.AccountName), slog.String("reason", "claims"))
		return nil, LoadStatusExpired
	}

	if !claims.ExpiresAt.After(s.now()) {
		logging.Info("CredentialStore", "Stored credential for %s expired at %s", cred.AccountName, claims.ExpiresAt.Format(time.RFC3339))
		logging.Audit("credential_load_expired",
			slog.String("account", cred.AccountName),
			slog.String("subject", claims.Subject),
			slog.String("expiry", claims.ExpiresAt.Format(time.RFC3339)),
		)
		return nil, LoadStatusExpired
	}

	return &cred, LoadStatusLoaded
}

// Save writes the credential, creating the directory if needed. A nil or empty
// credential is ignored. The document is written to a temporary file in the
// same directory and renamed over the target so a failed write leaves the
// previous file intact.
func (s *Store) Save(cred *SessionCredential) error {
	if cred.IsEmpty() {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, DefaultFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict credential file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close credential file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}

	attrs := []slog.Attr{slog.String("account", cred.AccountName), slog.Bool("has_refresh_token", cred.RefreshToken != "")}
	if claims, err := cred.Claims(); err == nil {
		attrs = append(attrs, slog.String("subject", claims.Subject), slog.String("expiry", claims.ExpiresAt.Format(time.RFC3339)))
	}
	logging.Audit("credential_saved", attrs...)

	return nil
}

// Clear removes the credential file. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	logging.Audit("credential_cleared", slog.String("path", s.path))
	return nil
}
