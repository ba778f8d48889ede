package app

import (
	"context"
	"fmt"
	"path/filepath"

	"steamlink/internal/config"
	"steamlink/pkg/logging"
)

// Application wires configuration, logging and the session services for one
// steamlink process.
//
// Initialization happens in two phases:
//  1. NewApplication loads and validates configuration, sets up logging and
//     builds the services
//  2. Commands use Services directly, or RunDaemon for the long-running mode
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the
// provided configuration. Configuration errors are returned as
// config.ConfigurationError when they come from the file.
func NewApplication(cfg *Config) (*Application, error) {
	var steamlinkCfg config.SteamlinkConfig
	if cfg.SteamlinkConfig != nil {
		steamlinkCfg = *cfg.SteamlinkConfig
	} else {
		loaded, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		steamlinkCfg = loaded
	}

	cfg.applyOverrides(&steamlinkCfg)
	if steamlinkCfg.DataDir == "" {
		steamlinkCfg.DataDir = filepath.Join(cfg.ConfigPath, config.DefaultDataDirName)
	}
	if errs := steamlinkCfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", errs)
	}

	// Validate accepted both values.
	level, _ := logging.ParseLevel(steamlinkCfg.Log.Level)
	format, _ := logging.ParseFormat(steamlinkCfg.Log.Format)
	logging.Init(logging.Options{Level: level, Format: format, Output: cfg.LogOutput})

	cfg.SteamlinkConfig = &steamlinkCfg
	logging.Debug("Bootstrap", "Using data directory %s", steamlinkCfg.DataDir)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// RunDaemon keeps the stored credential fresh until ctx is cancelled.
func (a *Application) RunDaemon(ctx context.Context) error {
	return runDaemon(ctx, a.services, systemdNotify)
}
