package app

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamlink/internal/authservice"
	"steamlink/internal/config"
	"steamlink/internal/credential"
	"steamlink/internal/relay"
)

func TestNewApplication_Defaults(t *testing.T) {
	configDir := t.TempDir()

	application, err := NewApplication(&Config{ConfigPath: configDir, LogOutput: io.Discard})
	require.NoError(t, err)

	services := application.Services()
	dataDir := filepath.Join(configDir, config.DefaultDataDirName)
	assert.Equal(t, dataDir, services.Config.DataDir)
	assert.Equal(t, filepath.Join(dataDir, credential.DefaultFileName), services.Store.Path())

	assert.Contains(t, services.Device.FriendlyName, "NXD-")
	assert.Equal(t, authservice.PlatformTypeMobileApp, services.Device.PlatformType)
	assert.Equal(t, int32(authservice.DefaultOSType), services.Device.OSType)
	assert.Equal(t, uint32(authservice.DefaultGamingDeviceType), services.Device.GamingDeviceType)

	stored, err := os.ReadFile(filepath.Join(dataDir, config.DeviceIDFileName))
	require.NoError(t, err)
	assert.Equal(t, services.DeviceID+"\n", string(stored))
}

func TestNewApplication_Overrides(t *testing.T) {
	steamlinkCfg := config.GetDefaultConfig()
	steamlinkCfg.Provider.DeviceNameTemplate = `deck-{{ .OS | upper }}`
	steamlinkCfg.Relay.Mode = string(relay.ModeCodeHash)

	dataDir := filepath.Join(t.TempDir(), "custom")
	application, err := NewApplication(&Config{
		DataDir:         dataDir,
		LogLevel:        "debug",
		LogFormat:       "json",
		LogOutput:       io.Discard,
		SteamlinkConfig: &steamlinkCfg,
	})
	require.NoError(t, err)

	services := application.Services()
	assert.Equal(t, dataDir, services.Config.DataDir)
	assert.Equal(t, "debug", services.Config.Log.Level)
	assert.Equal(t, "json", services.Config.Log.Format)
	assert.Equal(t, "deck-"+strings.ToUpper(runtime.GOOS), services.Device.FriendlyName)
}

func TestNewApplication_InvalidOverride(t *testing.T) {
	steamlinkCfg := config.GetDefaultConfig()
	steamlinkCfg.DataDir = t.TempDir()

	_, err := NewApplication(&Config{
		LogLevel:        "chatty",
		LogOutput:       io.Discard,
		SteamlinkConfig: &steamlinkCfg,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestNewApplication_BadTemplate(t *testing.T) {
	steamlinkCfg := config.GetDefaultConfig()
	steamlinkCfg.DataDir = t.TempDir()
	steamlinkCfg.Provider.DeviceNameTemplate = "{{ .Missing }}"

	_, err := NewApplication(&Config{LogOutput: io.Discard, SteamlinkConfig: &steamlinkCfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deviceNameTemplate")
}

func TestServices_RelayPairing(t *testing.T) {
	steamlinkCfg := config.GetDefaultConfig()
	steamlinkCfg.DataDir = t.TempDir()
	steamlinkCfg.Relay.CompanionURL = "https://companion.example/pair"

	application, err := NewApplication(&Config{LogOutput: io.Discard, SteamlinkConfig: &steamlinkCfg})
	require.NoError(t, err)
	services := application.Services()

	p, err := services.NewRelayPairing(relay.ModeCodeHash, "1234")
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, relay.CodeHash(services.DeviceID, "1234"), p.Address())

	link, err := services.CompanionURL(p)
	require.NoError(t, err)
	assert.Contains(t, link, "https://companion.example/pair?")
}
