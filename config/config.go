package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/YGNTECHSTARTUP/ecoquest/auth"
	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/gateway"
	gatewayhttp "github.com/YGNTECHSTARTUP/ecoquest/gateway/http"
	"github.com/YGNTECHSTARTUP/ecoquest/natsclient"
	"github.com/YGNTECHSTARTUP/ecoquest/validation"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorsim"
)

// Config is the complete service configuration
type Config struct {
	Server     ServerConfig      `json:"server" yaml:"server"`
	Gateway    GatewayConfig     `json:"gateway" yaml:"gateway"`
	HTTP       HTTPConfig        `json:"http" yaml:"http"`
	Auth       auth.Config       `json:"auth" yaml:"auth"`
	Vendors    VendorsConfig     `json:"vendors" yaml:"vendors"`
	Validation validation.Limits `json:"validation" yaml:"validation"`
	NATS       NATSConfig        `json:"nats" yaml:"nats"`
	Simulator  SimulatorConfig   `json:"simulator" yaml:"simulator"`
	Log        LogConfig         `json:"log" yaml:"log"`
}

// ServerConfig controls the public listener
type ServerConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// GatewayConfig mirrors gateway.Config with string durations
type GatewayConfig struct {
	DefaultTimeout Duration `json:"default_timeout" yaml:"default_timeout"`
	MaxTimeout     Duration `json:"max_timeout" yaml:"max_timeout"`
	APIVersion     string   `json:"api_version" yaml:"api_version"`
	IncludeRaw     bool     `json:"include_raw" yaml:"include_raw"`
}

// HTTPConfig mirrors the HTTP surface settings with string durations
type HTTPConfig struct {
	MaxRequestSize        int64    `json:"max_request_size" yaml:"max_request_size"`
	BatchMaxSize          int      `json:"batch_max_size" yaml:"batch_max_size"`
	BatchConcurrency      int      `json:"batch_concurrency" yaml:"batch_concurrency"`
	StreamMinInterval     Duration `json:"stream_min_interval" yaml:"stream_min_interval"`
	StreamDefaultInterval Duration `json:"stream_default_interval" yaml:"stream_default_interval"`
	RateLimitRPS          float64  `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst        int      `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	EnableCORS            bool     `json:"enable_cors" yaml:"enable_cors"`
	CORSOrigins           []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// VendorConfig addresses one vendor API
type VendorConfig struct {
	BaseURL    string               `json:"base_url" yaml:"base_url"`
	Credential vendorapi.Credential `json:"credential" yaml:"credential"`
}

// VendorsConfig holds one entry per supported brand
type VendorsConfig struct {
	Qube   VendorConfig `json:"qube" yaml:"qube"`
	Secure VendorConfig `json:"secure" yaml:"secure"`
	LNT    VendorConfig `json:"lnt" yaml:"lnt"`
}

// NATSConfig controls reading publication
type NATSConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	URL           string   `json:"url" yaml:"url"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix"`
	MaxReconnects int      `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
}

// SimulatorConfig controls the embedded vendor simulator. An empty Addr
// mounts it on the public listener.
type SimulatorConfig struct {
	Enabled           bool              `json:"enabled" yaml:"enabled"`
	Addr              string            `json:"addr,omitempty" yaml:"addr,omitempty"`
	QubeAPIKey        string            `json:"qube_api_key" yaml:"qube_api_key"`
	SecureToken       string            `json:"secure_token" yaml:"secure_token"`
	LNTAPIKey         string            `json:"lnt_api_key" yaml:"lnt_api_key"`
	DeviceTokens      map[string]string `json:"secure_device_tokens,omitempty" yaml:"secure_device_tokens,omitempty"`
	TariffINRPerKwh   float64           `json:"tariff_inr_per_kwh" yaml:"tariff_inr_per_kwh"`
	Latency           Duration          `json:"latency" yaml:"latency"`
	HistoricalLatency Duration          `json:"historical_latency" yaml:"historical_latency"`
}

// LogConfig selects log level and format
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a configuration that runs the gateway against the
// embedded simulator with demo credentials.
func Default() *Config {
	gw := gateway.DefaultConfig()
	hc := gatewayhttp.DefaultConfig()
	sim := vendorsim.DefaultConfig()
	local := "http://localhost:8080"

	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration(10 * time.Second),
			ShutdownTimeout:   Duration(30 * time.Second),
		},
		Gateway: GatewayConfig{
			DefaultTimeout: Duration(gw.DefaultTimeout),
			MaxTimeout:     Duration(gw.MaxTimeout),
			APIVersion:     gw.APIVersion,
			IncludeRaw:     gw.IncludeRaw,
		},
		HTTP: HTTPConfig{
			MaxRequestSize:        hc.MaxRequestSize,
			BatchMaxSize:          hc.BatchMaxSize,
			BatchConcurrency:      hc.BatchConcurrency,
			StreamMinInterval:     Duration(hc.StreamMinInterval),
			StreamDefaultInterval: Duration(hc.StreamDefaultInterval),
			RateLimitRPS:          hc.RateLimitRPS,
			RateLimitBurst:        hc.RateLimitBurst,
		},
		Auth: auth.DefaultConfig(),
		Vendors: VendorsConfig{
			Qube:   VendorConfig{BaseURL: local, Credential: vendorsim.DemoQubeAPIKey},
			Secure: VendorConfig{BaseURL: local, Credential: vendorsim.DemoSecureToken},
			LNT:    VendorConfig{BaseURL: local, Credential: vendorsim.DemoLNTAPIKey},
		},
		Validation: validation.DefaultLimits(),
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "ecoquest",
			SubjectPrefix: natsclient.DefaultSubjectPrefix,
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		Simulator: SimulatorConfig{
			Enabled:         true,
			QubeAPIKey:      sim.QubeAPIKey,
			SecureToken:     sim.SecureToken,
			LNTAPIKey:       sim.LNTAPIKey,
			TariffINRPerKwh: sim.TariffINRPerKwh,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// GatewayConfig converts to the gateway's own configuration type.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		DefaultTimeout: c.Gateway.DefaultTimeout.Std(),
		MaxTimeout:     c.Gateway.MaxTimeout.Std(),
		APIVersion:     c.Gateway.APIVersion,
		IncludeRaw:     c.Gateway.IncludeRaw,
	}
}

// HTTPConfig converts to the HTTP surface's configuration type.
func (c *Config) HTTPConfig() gatewayhttp.Config {
	return gatewayhttp.Config{
		MaxRequestSize:        c.HTTP.MaxRequestSize,
		BatchMaxSize:          c.HTTP.BatchMaxSize,
		BatchConcurrency:      c.HTTP.BatchConcurrency,
		StreamMinInterval:     c.HTTP.StreamMinInterval.Std(),
		StreamDefaultInterval: c.HTTP.StreamDefaultInterval.Std(),
		RateLimitRPS:          c.HTTP.RateLimitRPS,
		RateLimitBurst:        c.HTTP.RateLimitBurst,
		EnableCORS:            c.HTTP.EnableCORS,
		CORSOrigins:           c.HTTP.CORSOrigins,
	}
}

// SimulatorConfig converts to the simulator's configuration type.
func (c *Config) SimulatorConfig() vendorsim.Config {
	return vendorsim.Config{
		QubeAPIKey:         c.Simulator.QubeAPIKey,
		SecureToken:        c.Simulator.SecureToken,
		LNTAPIKey:          c.Simulator.LNTAPIKey,
		SecureDeviceTokens: c.Simulator.DeviceTokens,
		TariffINRPerKwh:    c.Simulator.TariffINRPerKwh,
		Latency:            c.Simulator.Latency.Std(),
		HistoricalLatency:  c.Simulator.HistoricalLatency.Std(),
	}
}

// NATSOptions returns client options for the configured connection.
func (c *Config) NATSOptions() []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithMaxReconnects(c.NATS.MaxReconnects),
		natsclient.WithReconnectWait(c.NATS.ReconnectWait.Std()),
		natsclient.WithDrainTimeout(c.Server.ShutdownTimeout.Std()),
	}
	if c.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(c.NATS.Name))
	}
	if c.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(c.NATS.Token))
	}
	return opts
}

// Validate checks every section. Sections owned by other packages use
// their own Validate.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.Wrap(errors.ErrMissingConfig, "Config", "Validate", "server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "Config", "Validate", "server.shutdown_timeout must be positive")
	}
	if err := c.GatewayConfig().Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.HTTPConfig().Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	vendors := map[string]VendorConfig{"qube": c.Vendors.Qube, "secure": c.Vendors.Secure, "lnt": c.Vendors.LNT}
	for name, v := range vendors {
		if err := v.validate(); err != nil {
			return fmt.Errorf("vendors.%s: %w", name, err)
		}
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errors.Wrap(errors.ErrMissingConfig, "Config", "Validate", "nats.url is required when nats is enabled")
		}
		if !isValidNATSSubject(c.NATS.SubjectPrefix) {
			return errors.Wrap(fmt.Errorf("%w: nats.subject_prefix %q", errors.ErrInvalidConfig, c.NATS.SubjectPrefix),
				"Config", "Validate", "check subject prefix")
		}
		if c.NATS.ReconnectWait <= 0 {
			return errors.Wrap(errors.ErrInvalidConfig, "Config", "Validate", "nats.reconnect_wait must be positive")
		}
	}

	if c.Simulator.Enabled {
		if err := c.SimulatorConfig().Validate(); err != nil {
			return fmt.Errorf("simulator: %w", err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrap(fmt.Errorf("%w: log.level %q", errors.ErrInvalidConfig, c.Log.Level), "Config", "Validate", "check log level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.Wrap(fmt.Errorf("%w: log.format %q", errors.ErrInvalidConfig, c.Log.Format), "Config", "Validate", "check log format")
	}
	return nil
}

func (v VendorConfig) validate() error {
	if v.BaseURL == "" {
		return errors.Wrap(errors.ErrMissingConfig, "Config", "Validate", "base_url is required")
	}
	u, err := url.Parse(v.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrap(fmt.Errorf("%w: base_url %q", errors.ErrInvalidConfig, v.BaseURL), "Config", "Validate", "parse base_url")
	}
	if v.Credential.Empty() {
		return errors.Wrap(errors.ErrMissingConfig, "Config", "Validate", "credential is required")
	}
	return nil
}

// isValidNATSSubject accepts dot-separated tokens of letters, digits,
// dashes and underscores. Wildcards are not allowed in a publish subject.
func isValidNATSSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !ok {
				return false
			}
		}
	}
	return true
}

// LogValue summarises the configuration without secrets.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Server.Addr),
		slog.String("api_version", c.Gateway.APIVersion),
		slog.Any("auth", c.Auth),
		slog.String("qube_url", c.Vendors.Qube.BaseURL),
		slog.String("secure_url", c.Vendors.Secure.BaseURL),
		slog.String("lnt_url", c.Vendors.LNT.BaseURL),
		slog.Bool("nats", c.NATS.Enabled),
		slog.Bool("simulator", c.Simulator.Enabled),
	)
}
