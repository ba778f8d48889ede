package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"steamlink/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/steamlink"
	configFileName = "config.yaml"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

func GetDefaultConfigPathOrPanic() string {
	path, err := GetDefaultConfigPath()
	if err != nil {
		panic(err)
	}
	return path
}

// GetDefaultConfigPath returns ~/.config/steamlink.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the defaults. A
// missing file yields the defaults; a malformed or invalid one is an error.
// An empty DataDir is resolved to <configPath>/data.
func LoadConfig(configPath string) (SteamlinkConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	// #nosec G304 -- path comes from the --config-path flag or the default directory
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return SteamlinkConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			FileName:  configFileName,
			ErrorType: ErrorTypeIO,
			Message:   err.Error(),
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return SteamlinkConfig{}, ConfigurationError{
				FilePath:    configFilePath,
				FileName:    configFileName,
				ErrorType:   ErrorTypeParse,
				Message:     "malformed YAML",
				Details:     err.Error(),
				Suggestions: []string{"Check indentation and that durations are quoted strings such as \"5s\""},
			}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if config.DataDir == "" {
		config.DataDir = filepath.Join(configPath, DefaultDataDirName)
	}

	if errs := config.Validate(); errs.HasErrors() {
		return SteamlinkConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			FileName:  configFileName,
			ErrorType: ErrorTypeValidation,
			Message:   errs.Error(),
		}
	}

	return config, nil
}

// SaveConfig writes config to config.yaml in configPath.
func SaveConfig(configPath string, config SteamlinkConfig) error {
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, configFileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
