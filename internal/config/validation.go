package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"steamlink/internal/relay"
	"steamlink/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration and returns every problem found.
func (c SteamlinkConfig) Validate() ValidationErrors {
	var errs ValidationErrors

	validateURL(&errs, "provider.baseURL", c.Provider.BaseURL)
	validateURL(&errs, "relay.baseURL", c.Relay.BaseURL)
	validateURL(&errs, "relay.companionURL", c.Relay.CompanionURL)

	if strings.TrimSpace(c.Provider.DeviceNameTemplate) == "" {
		errs.Add("provider.deviceNameTemplate", "is required")
	}
	if _, err := relay.ParseMode(c.Relay.Mode); err != nil {
		errs.Add("relay.mode", err.Error(), c.Relay.Mode)
	}

	validatePositive(&errs, "provider.httpTimeout", c.Provider.HTTPTimeout)
	validatePositive(&errs, "relay.pollInterval", c.Relay.PollInterval)
	validatePositive(&errs, "daemon.refreshInterval", c.Daemon.RefreshInterval)
	validateNonNegative(&errs, "provider.pairingTimeout", c.Provider.PairingTimeout)
	validateNonNegative(&errs, "relay.timeout", c.Relay.Timeout)
	validateNonNegative(&errs, "daemon.refreshSkew", c.Daemon.RefreshSkew)

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs.Add("log.level", err.Error(), c.Log.Level)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs.Add("log.format", err.Error(), c.Log.Format)
	}

	return errs
}

func validateURL(errs *ValidationErrors, field, value string) {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add(field, "must be an absolute URL", value)
	}
}

func validatePositive(errs *ValidationErrors, field string, d time.Duration) {
	if d <= 0 {
		errs.Add(field, "must be a positive duration", d)
	}
}

func validateNonNegative(errs *ValidationErrors, field string, d time.Duration) {
	if d < 0 {
		errs.Add(field, "must not be negative", d)
	}
}
