package http

import (
	"fmt"
	"time"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
)

// Config holds HTTP surface settings
type Config struct {
	// MaxRequestSize bounds batch request bodies in bytes
	MaxRequestSize int64 `json:"max_request_size"`

	// BatchMaxSize is the largest accepted batch
	BatchMaxSize int `json:"batch_max_size"`

	// BatchConcurrency bounds in-flight requests per batch
	BatchConcurrency int `json:"batch_concurrency"`

	// StreamMinInterval is the fastest push rate a stream may ask for
	StreamMinInterval time.Duration `json:"stream_min_interval"`

	// StreamDefaultInterval applies when a stream sets no interval
	StreamDefaultInterval time.Duration `json:"stream_default_interval"`

	// RateLimitRPS is the per-caller request rate. Zero or less disables limiting.
	RateLimitRPS float64 `json:"rate_limit_rps"`

	// RateLimitBurst is the per-caller burst size
	RateLimitBurst int `json:"rate_limit_burst"`

	EnableCORS  bool     `json:"enable_cors"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		MaxRequestSize:        1 << 20,
		BatchMaxSize:          50,
		BatchConcurrency:      8,
		StreamMinInterval:     time.Second,
		StreamDefaultInterval: 5 * time.Second,
		RateLimitRPS:          20,
		RateLimitBurst:        40,
	}
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if c.MaxRequestSize <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "HTTPConfig", "Validate", "max_request_size must be positive")
	}
	if c.BatchMaxSize <= 0 || c.BatchConcurrency <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "HTTPConfig", "Validate",
			"batch_max_size and batch_concurrency must be positive")
	}
	if c.StreamMinInterval <= 0 || c.StreamDefaultInterval < c.StreamMinInterval {
		return errors.Wrap(fmt.Errorf("%w: stream_default_interval %s below stream_min_interval %s",
			errors.ErrInvalidConfig, c.StreamDefaultInterval, c.StreamMinInterval),
			"HTTPConfig", "Validate", "check stream intervals")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "HTTPConfig", "Validate",
			"rate_limit_burst must be positive when rate limiting is enabled")
	}
	return nil
}
