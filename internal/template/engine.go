package template

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// fallbackHostname is used when the OS does not report a hostname.
const fallbackHostname = "steamlink"

// DeviceInfo is the data available to device name templates.
type DeviceInfo struct {
	Hostname string
	OS       string
	Arch     string
	DeviceID string
}

// CurrentDevice describes the machine the process runs on.
func CurrentDevice(deviceID string) DeviceInfo {
	hostname, err := os.Hostname()
	if err != nil || strings.TrimSpace(hostname) == "" {
		hostname = fallbackHostname
	}
	return DeviceInfo{
		Hostname: hostname,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		DeviceID: deviceID,
	}
}

// Engine renders text templates with the sprig function library.
type Engine struct {
	funcs template.FuncMap
}

// New creates a new template engine
func New() *Engine {
	return &Engine{funcs: sprig.TxtFuncMap()}
}

// Render executes text against data. Missing keys are an error.
func (e *Engine) Render(name, text string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderDeviceName renders the device friendly name shown in the account's
// authorized devices list. The result is trimmed and must not be empty.
func RenderDeviceName(text string, info DeviceInfo) (string, error) {
	name, err := New().Render("deviceName", text, info)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("device name template %q rendered an empty name", text)
	}
	return name, nil
}
