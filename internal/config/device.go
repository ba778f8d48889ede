package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"steamlink/pkg/logging"
)

// DeviceIDFileName is the file holding the device-unique id.
const DeviceIDFileName = "device_id"

// LoadOrCreateDeviceID returns the device id stored in dataDir, generating
// and persisting a new UUID when none exists or the stored one is invalid.
func LoadOrCreateDeviceID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, DeviceIDFileName)

	// #nosec G304 -- path is built from the configured data directory
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
		logging.Warn("Config", "Device id in %s is invalid, generating a new one", path)
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write device id: %w", err)
	}
	logging.Info("Config", "Generated device id %s", id)
	return id, nil
}
