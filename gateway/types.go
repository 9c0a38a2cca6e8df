package gateway

import (
	"fmt"
	"time"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// APIVersion is reported in every envelope unless configured otherwise.
const APIVersion = "unified_v1.0"

// Request is one unified meter request. Brand and DataType carry the
// caller's literal values; they are normalised inside Handle.
type Request struct {
	MeterID     string
	Brand       string
	DataType    string
	UserID      string
	CallerToken string
	RequestID   string

	// Timeout bounds the vendor call. Zero means Config.DefaultTimeout.
	Timeout time.Duration
}

// Envelope is the unified response for a successful request.
type Envelope struct {
	Success   bool             `json:"success"`
	MeterInfo MeterInfo        `json:"meter_info"`
	Data      *reading.Reading `json:"data"`
	Metadata  Metadata         `json:"metadata"`
}

// MeterInfo identifies the meter an envelope describes.
type MeterInfo struct {
	ID    string        `json:"id"`
	Brand reading.Brand `json:"brand"`
}

// Metadata describes how an envelope was produced.
type Metadata struct {
	APIVersion       string    `json:"api_version"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id,omitempty"`
}

// Config holds the orchestrator settings.
type Config struct {
	// DefaultTimeout applies when a request carries no timeout
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxTimeout caps caller-supplied timeouts
	MaxTimeout time.Duration `json:"max_timeout"`

	// APIVersion is echoed in envelope metadata
	APIVersion string `json:"api_version"`

	// IncludeRaw keeps the untouched vendor payload in envelope data
	IncludeRaw bool `json:"include_raw"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     30 * time.Second,
		APIVersion:     APIVersion,
	}
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "GatewayConfig", "Validate",
			"default_timeout must be positive")
	}
	if c.MaxTimeout < c.DefaultTimeout {
		return errors.Wrap(fmt.Errorf("%w: max_timeout %s below default_timeout %s",
			errors.ErrInvalidConfig, c.MaxTimeout, c.DefaultTimeout),
			"GatewayConfig", "Validate", "check timeouts")
	}
	if c.APIVersion == "" {
		return errors.Wrap(errors.ErrMissingConfig, "GatewayConfig", "Validate",
			"api_version cannot be empty")
	}
	return nil
}

// timeoutFor resolves the vendor call timeout for a request.
func (c Config) timeoutFor(requested time.Duration) time.Duration {
	switch {
	case requested <= 0:
		return c.DefaultTimeout
	case requested > c.MaxTimeout:
		return c.MaxTimeout
	default:
		return requested
	}
}
