package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "ECOQUEST"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookup     func(string) (string, bool)
}

// NewLoader creates a loader that reads the process environment and
// validates the result.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  DefaultEnvPrefix,
		lookup:     os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier
// ones field by field.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvLookup replaces the environment source. A nil lookup disables
// environment overrides.
func (l *Loader) SetEnvLookup(lookup func(string) (string, bool)) {
	l.lookup = lookup
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load starts from Default, applies each layer and the environment, and
// validates the result when validation is enabled.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := decodeFile(path, cfg); err != nil {
			return nil, errors.Wrap(fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, path, err),
				"Loader", "Load", "load config layer")
		}
	}

	if l.lookup != nil {
		if err := ApplyEnv(cfg, l.envPrefix, l.lookup); err != nil {
			return nil, err
		}
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load is shorthand for a validated single-layer load from path. An empty
// path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	l := NewLoader()
	if path != "" {
		l.AddLayer(path)
	}
	return l.Load()
}

// decodeFile overlays the file at path onto cfg. Unknown keys are errors.
func decodeFile(path string, cfg *Config) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := safeReadFile(path)
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		if err := validateJSONDepth(data); err != nil {
			return fmt.Errorf("invalid JSON structure: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

type envVar struct {
	name string
	set  func(string) error
}

func str(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func cred(dst *vendorapi.Credential) func(string) error {
	return func(v string) error { *dst = vendorapi.Credential(v); return nil }
}

func boolean(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func duration(dst *Duration) func(string) error {
	return func(v string) error {
		d, err := parseDuration(v)
		if err != nil {
			return err
		}
		*dst = Duration(d)
		return nil
	}
}

// envVars lists the overridable settings: addresses, secrets and switches.
func envVars(cfg *Config) []envVar {
	return []envVar{
		{"SERVER_ADDR", str(&cfg.Server.Addr)},
		{"GATEWAY_DEFAULT_TIMEOUT", duration(&cfg.Gateway.DefaultTimeout)},
		{"AUTH_MODE", str(&cfg.Auth.Mode)},
		{"AUTH_TOKENS", func(v string) error {
			cfg.Auth.StaticTokens = splitList(v)
			return nil
		}},
		{"AUTH_JWT_SECRET", str(&cfg.Auth.JWTSecret)},
		{"AUTH_JWT_ISSUER", str(&cfg.Auth.JWTIssuer)},
		{"QUBE_URL", str(&cfg.Vendors.Qube.BaseURL)},
		{"QUBE_API_KEY", cred(&cfg.Vendors.Qube.Credential)},
		{"SECURE_URL", str(&cfg.Vendors.Secure.BaseURL)},
		{"SECURE_TOKEN", cred(&cfg.Vendors.Secure.Credential)},
		{"LNT_URL", str(&cfg.Vendors.LNT.BaseURL)},
		{"LNT_API_KEY", cred(&cfg.Vendors.LNT.Credential)},
		{"NATS_ENABLED", boolean(&cfg.NATS.Enabled)},
		{"NATS_URL", str(&cfg.NATS.URL)},
		{"NATS_TOKEN", str(&cfg.NATS.Token)},
		{"NATS_SUBJECT_PREFIX", str(&cfg.NATS.SubjectPrefix)},
		{"SIMULATOR_ENABLED", boolean(&cfg.Simulator.Enabled)},
		{"SIMULATOR_ADDR", str(&cfg.Simulator.Addr)},
		{"LOG_LEVEL", str(&cfg.Log.Level)},
		{"LOG_FORMAT", str(&cfg.Log.Format)},
	}
}

// ApplyEnv overrides cfg from variables named prefix_<SETTING>. Unset and
// empty variables leave the setting alone.
func ApplyEnv(cfg *Config, prefix string, lookup func(string) (string, bool)) error {
	for _, ev := range envVars(cfg) {
		key := prefix + "_" + ev.name
		val, ok := lookup(key)
		if !ok || val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Loader", "ApplyEnv", "read "+key)
		}
		if err := ev.set(strings.TrimSpace(val)); err != nil {
			return errors.Wrap(fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, key, err), "Loader", "ApplyEnv", "parse "+key)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
