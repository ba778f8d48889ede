package config

import (
	"time"

	"steamlink/internal/authservice"
	"steamlink/internal/pairing"
	"steamlink/internal/relay"
)

const (
	// DefaultDeviceNameTemplate renders the device friendly name.
	DefaultDeviceNameTemplate = "NXD-{{ .Hostname }}"

	// DefaultCompanionURL is the page the companion device opens for relay pairing.
	DefaultCompanionURL = relay.DefaultBaseURL + "/pair"

	// DefaultDataDirName is the data directory inside the config directory.
	DefaultDataDirName = "data"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() SteamlinkConfig {
	return SteamlinkConfig{
		Provider: ProviderConfig{
			BaseURL:            authservice.DefaultBaseURL,
			UserAgent:          authservice.DefaultUserAgent,
			MobileCookie:       authservice.MobileClientCookie,
			DeviceNameTemplate: DefaultDeviceNameTemplate,
			OSType:             authservice.DefaultOSType,
			GamingDeviceType:   authservice.DefaultGamingDeviceType,
			HTTPTimeout:        authservice.DefaultHTTPTimeout,
		},
		Relay: RelayConfig{
			BaseURL:      relay.DefaultBaseURL,
			CompanionURL: DefaultCompanionURL,
			Mode:         string(relay.DefaultMode),
			PollInterval: pairing.DefaultRelayInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Daemon: DaemonConfig{
			RefreshInterval: time.Minute,
			RefreshSkew:     5 * time.Minute,
		},
	}
}
