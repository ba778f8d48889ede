package config

import "time"

// SteamlinkConfig is the top-level configuration structure for steamlink.
type SteamlinkConfig struct {
	// DataDir holds the credential file and the device id. Defaults to
	// <config path>/data.
	DataDir string `yaml:"dataDir,omitempty"`

	Provider ProviderConfig `yaml:"provider"`
	Relay    RelayConfig    `yaml:"relay"`
	Log      LogConfig      `yaml:"log"`
	Daemon   DaemonConfig   `yaml:"daemon"`
}

// ProviderConfig configures the identity provider client and QR pairing.
type ProviderConfig struct {
	BaseURL            string        `yaml:"baseURL,omitempty"`            // Web API host (default: https://api.steampowered.com)
	UserAgent          string        `yaml:"userAgent,omitempty"`          // User-Agent sent on every request
	MobileCookie       string        `yaml:"mobileCookie,omitempty"`       // Cookie sent ahead of session cookies
	DeviceNameTemplate string        `yaml:"deviceNameTemplate,omitempty"` // Template for the device friendly name
	OSType             int32         `yaml:"osType,omitempty"`             // Device os_type code
	GamingDeviceType   uint32        `yaml:"gamingDeviceType,omitempty"`   // Device gaming_device_type code
	HTTPTimeout        time.Duration `yaml:"httpTimeout,omitempty"`        // Timeout for one provider round trip
	PairingTimeout     time.Duration `yaml:"pairingTimeout,omitempty"`     // Upper bound for QR polling (0: until cancelled)
}

// RelayConfig configures relay pairing.
type RelayConfig struct {
	BaseURL      string        `yaml:"baseURL,omitempty"`      // Relay broker
	CompanionURL string        `yaml:"companionURL,omitempty"` // Page opened on the companion device
	Mode         string        `yaml:"mode,omitempty"`         // public-key, code-hash or plain-code
	PollInterval time.Duration `yaml:"pollInterval,omitempty"` // Delay between relay polls
	Timeout      time.Duration `yaml:"timeout,omitempty"`      // Upper bound for relay polling (0: until cancelled)
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}

// DaemonConfig configures `steamlink daemon`.
type DaemonConfig struct {
	RefreshInterval time.Duration `yaml:"refreshInterval,omitempty"` // How often the stored credential is checked
	RefreshSkew     time.Duration `yaml:"refreshSkew,omitempty"`     // Refresh when expiring within this window
	MetricsAddress  string        `yaml:"metricsAddress,omitempty"`  // Listen address for /metrics ("" disables)
}
