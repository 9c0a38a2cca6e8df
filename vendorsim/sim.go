package vendorsim

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/metric"
)

// Vendor endpoint paths.
const (
	PathQube   = "/qubeRealTimeData"
	PathSecure = "/secureMetersData"
	PathLNT    = "/lntMeterApi"
)

// Demo credentials accepted by DefaultConfig.
const (
	DemoQubeAPIKey  = "qube_demo_key_2024"
	DemoSecureToken = "secure_demo_token_2024"
	DemoLNTAPIKey   = "LT_demo_key_2024_test"
)

// lntFunctions are the functions the L&T endpoint answers.
var lntFunctions = mapset.NewSet("read", "power_quality")

// secureDataTypes are the data types the Secure endpoint answers.
var secureDataTypes = mapset.NewSet("current", "historical")

// Config holds simulator credentials and behaviour.
type Config struct {
	QubeAPIKey  string `json:"qube_api_key" yaml:"qube_api_key"`
	SecureToken string `json:"secure_token" yaml:"secure_token"`
	LNTAPIKey   string `json:"lnt_api_key" yaml:"lnt_api_key"`

	// SecureDeviceTokens gives individual devices their own token. Devices
	// not listed use SecureToken.
	SecureDeviceTokens map[string]string `json:"secure_device_tokens,omitempty" yaml:"secure_device_tokens,omitempty"`

	TariffINRPerKwh float64 `json:"tariff_inr_per_kwh" yaml:"tariff_inr_per_kwh"`

	// Latency delays every response; HistoricalLatency is added on top for
	// Secure historical reads.
	Latency           time.Duration `json:"latency" yaml:"latency"`
	HistoricalLatency time.Duration `json:"historical_latency" yaml:"historical_latency"`
}

// DefaultConfig accepts the demo credentials with no added latency.
func DefaultConfig() Config {
	return Config{
		QubeAPIKey:      DemoQubeAPIKey,
		SecureToken:     DemoSecureToken,
		LNTAPIKey:       DemoLNTAPIKey,
		TariffINRPerKwh: 6.5,
	}
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if c.QubeAPIKey == "" || c.SecureToken == "" || c.LNTAPIKey == "" {
		return errors.Wrap(errors.ErrMissingConfig, "SimulatorConfig", "Validate", "all vendor credentials are required")
	}
	if c.TariffINRPerKwh <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "SimulatorConfig", "Validate", "tariff_inr_per_kwh must be positive")
	}
	if c.Latency < 0 || c.HistoricalLatency < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "SimulatorConfig", "Validate", "latencies cannot be negative")
	}
	return nil
}

// LogValue keeps credentials out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("secure_device_tokens", len(c.SecureDeviceTokens)),
		slog.Float64("tariff_inr_per_kwh", c.TariffINRPerKwh),
		slog.Duration("latency", c.Latency),
		slog.Duration("historical_latency", c.HistoricalLatency),
	)
}

// Simulator serves the three vendor APIs from a deterministic load model.
type Simulator struct {
	config   Config
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
	metrics  *metric.Metrics
	latency  *prometheus.HistogramVec
}

// Option configures a Simulator
type Option func(*Simulator)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the meters' local time zone. The default is IST.
func WithLocation(loc *time.Location) Option {
	return func(s *Simulator) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics counts served requests
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// New creates a Simulator.
func New(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Simulator", "New", "config validation")
	}
	s := &Simulator{
		config:   cfg,
		now:      time.Now,
		location: time.FixedZone("IST", 5*3600+30*60),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "VendorSimulator")
	return s, nil
}

// RegisterMetrics adds the simulator's response-time histogram to reg.
func (s *Simulator) RegisterMetrics(reg metric.MetricsRegistrar) error {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecoquest",
		Subsystem: "vendorsim",
		Name:      "response_seconds",
		Help:      "Vendor simulator response time in seconds",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"vendor"})
	if err := reg.Register("vendorsim", "response_seconds", hist); err != nil {
		return errors.Wrap(err, "Simulator", "RegisterMetrics", "register latency histogram")
	}
	s.latency = hist
	return nil
}

// Register mounts the vendor endpoints on r.
func (s *Simulator) Register(r gin.IRoutes) {
	r.GET(PathQube, s.observe("qube"), s.handleQube)
	r.GET(PathSecure, s.observe("secure"), s.handleSecure)
	r.GET(PathLNT, s.observe("lnt"), s.handleLNT)
}

// Handler returns a standalone engine serving the vendor endpoints.
func (s *Simulator) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	s.Register(r)
	return r
}

func (s *Simulator) observe(vendor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.RecordSimRequest(vendor, status)
		}
		if s.latency != nil {
			s.latency.WithLabelValues(vendor).Observe(time.Since(start).Seconds())
		}
		s.logger.Debug("vendor request", "vendor", vendor, "status", status, "duration", time.Since(start))
	}
}

// clock returns the current time in the meters' time zone.
func (s *Simulator) clock() time.Time {
	return s.now().In(s.location)
}

// delay waits d unless the caller goes away first.
func delay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// vendorError is the body of every simulated error.
type vendorError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func fail(c *gin.Context, status int, msg, code string) {
	c.AbortWithStatusJSON(status, vendorError{Error: msg, Code: code})
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func invalidMeterID(c *gin.Context, code string) {
	fail(c, http.StatusBadRequest, "Invalid meter ID format", code)
}
