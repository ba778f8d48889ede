package app

import (
	"io"

	"steamlink/internal/config"
)

// Config holds the process-level settings that come from command-line flags.
// Non-empty fields override the configuration file.
type Config struct {
	// ConfigPath is the directory holding config.yaml.
	ConfigPath string

	// DataDir overrides dataDir from the configuration file.
	DataDir string

	// LogLevel and LogFormat override the log section.
	LogLevel  string
	LogFormat string

	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer

	// SteamlinkConfig is filled in by NewApplication. Pre-populating it skips
	// loading the configuration file.
	SteamlinkConfig *config.SteamlinkConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath string) *Config {
	return &Config{ConfigPath: configPath}
}

// applyOverrides copies the flag overrides into c.
func (cfg *Config) applyOverrides(c *config.SteamlinkConfig) {
	if cfg.DataDir != "" {
		c.DataDir = cfg.DataDir
	}
	if cfg.LogLevel != "" {
		c.Log.Level = cfg.LogLevel
	}
	if cfg.LogFormat != "" {
		c.Log.Format = cfg.LogFormat
	}
}
