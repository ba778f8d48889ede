package app

import (
	"fmt"
	"net/http"
	"time"

	"steamlink/internal/authservice"
	"steamlink/internal/config"
	"steamlink/internal/credential"
	"steamlink/internal/pairing"
	"steamlink/internal/relay"
	"steamlink/internal/session"
	"steamlink/internal/template"
)

// Services holds everything a steamlink command needs.
type Services struct {
	Config config.SteamlinkConfig

	Store    *credential.Store
	Provider *authservice.Client
	Relay    *relay.Client
	Session  *session.Service

	// Device is sent to the provider when a QR pairing begins.
	Device authservice.DeviceDetails

	// DeviceID addresses code-hash relay pairings.
	DeviceID string
}

// InitializeServices builds the provider and relay clients, the credential
// store and the session facade from cfg.SteamlinkConfig.
func InitializeServices(cfg *Config) (*Services, error) {
	c := *cfg.SteamlinkConfig

	deviceID, err := config.LoadOrCreateDeviceID(c.DataDir)
	if err != nil {
		return nil, err
	}

	friendlyName, err := template.RenderDeviceName(c.Provider.DeviceNameTemplate, template.CurrentDevice(deviceID))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.deviceNameTemplate: %w", err)
	}

	provider := authservice.NewClient(
		authservice.WithHTTPClient(&http.Client{Timeout: c.Provider.HTTPTimeout}),
		authservice.WithBaseURL(c.Provider.BaseURL),
		authservice.WithUserAgent(c.Provider.UserAgent),
		authservice.WithMobileCookie(c.Provider.MobileCookie),
	)
	relayClient := relay.NewClient(
		relay.WithHTTPClient(&http.Client{Timeout: c.Provider.HTTPTimeout}),
		relay.WithBaseURL(c.Relay.BaseURL),
	)

	device := authservice.DeviceDetails{
		FriendlyName:     friendlyName,
		PlatformType:     authservice.PlatformTypeMobileApp,
		OSType:           c.Provider.OSType,
		GamingDeviceType: c.Provider.GamingDeviceType,
	}

	store := credential.NewStore(c.DataDir)
	svc := session.New(session.Config{
		Store:          store,
		Provider:       provider,
		Relay:          relayClient,
		Device:         device,
		RefreshSkew:    c.Daemon.RefreshSkew,
		PairingOptions: pairingOptions(c.Provider.PairingTimeout),
		RelayOptions:   append(pairingOptions(c.Relay.Timeout), pairing.WithInterval(c.Relay.PollInterval)),
	})

	return &Services{
		Config:   c,
		Store:    store,
		Provider: provider,
		Relay:    relayClient,
		Session:  svc,
		Device:   device,
		DeviceID: deviceID,
	}, nil
}

func pairingOptions(timeout time.Duration) []pairing.Option {
	if timeout <= 0 {
		return nil
	}
	return []pairing.Option{pairing.WithMaxDuration(timeout)}
}

// NewRelayPairing creates a relay pairing in the given mode. code is the
// short code typed by the user and is ignored in public-key mode.
func (s *Services) NewRelayPairing(mode relay.Mode, code string) (*relay.Pairing, error) {
	return relay.NewPairing(mode, s.DeviceID, code)
}

// CompanionURL is the link the companion device opens for p.
func (s *Services) CompanionURL(p *relay.Pairing) (string, error) {
	return p.CompanionURL(s.Config.Relay.CompanionURL)
}
