package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/YGNTECHSTARTUP/ecoquest/auth"
	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/health"
	"github.com/YGNTECHSTARTUP/ecoquest/metric"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/router"
	"github.com/YGNTECHSTARTUP/ecoquest/validation"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

const labelUnknown = "unknown"

// Gateway orchestrates unified meter requests. It is safe for concurrent
// use; everything it holds is either immutable or concurrency-safe.
type Gateway struct {
	config    Config
	gate      *auth.Gate
	router    *router.Router
	validator *validation.Validator

	logger    *slog.Logger
	metrics   *metric.Metrics
	health    *health.Monitor
	publisher Publisher
	now       func() time.Time
}

// Option configures optional Gateway collaborators
type Option func(*Gateway)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records request, vendor and validation metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithHealth feeds per-brand vendor health
func WithHealth(m *health.Monitor) Option {
	return func(g *Gateway) { g.health = m }
}

// WithPublisher hands every envelope to p
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Gateway. The gate, router and validator are required.
func New(cfg Config, gate *auth.Gate, r *router.Router, v *validation.Validator, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Gateway", "New", "config validation")
	}
	if gate == nil || r == nil || v == nil {
		return nil, errors.Wrap(errors.ErrMissingConfig, "Gateway", "New",
			"auth gate, router and validator are required")
	}

	g := &Gateway{
		config:    cfg,
		gate:      gate,
		router:    r,
		validator: v,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "UnifiedGateway")

	if g.health != nil && g.metrics != nil {
		g.health.SetObserver(func(name string, s health.Status) {
			g.metrics.RecordVendorHealth(name, s.Level())
		})
	}
	return g, nil
}

// Brands lists the brands the gateway can serve.
func (g *Gateway) Brands() []reading.Brand {
	return g.router.Brands()
}

// Handle runs req through the pipeline and returns the envelope, or the
// classified error of the first stage that failed.
func (g *Gateway) Handle(ctx context.Context, req Request) (*Envelope, error) {
	start := g.now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	dataType := reading.ParseDataType(req.DataType)

	env, brand, err := g.run(ctx, req, dataType, start)

	elapsed := g.now().Sub(start)
	g.observe(req, brand, dataType, elapsed, err)
	if err != nil {
		return nil, err
	}

	g.publish(ctx, brand, env)
	return env, nil
}

// Authorize checks a caller token without touching any vendor.
func (g *Gateway) Authorize(ctx context.Context, token string) (auth.Principal, error) {
	return g.gate.Authorize(ctx, token)
}

func (g *Gateway) run(ctx context.Context, req Request, dataType reading.DataType, start time.Time) (*Envelope, reading.Brand, error) {
	principal, err := g.gate.Authorize(ctx, req.CallerToken)
	if err != nil {
		return nil, "", err
	}

	adapter, err := g.router.Resolve(req.Brand)
	if err != nil {
		return nil, "", err
	}
	brand := adapter.Brand()

	r, err := g.fetch(ctx, adapter, req, dataType)
	if err != nil {
		return nil, brand, err
	}

	if violations := g.validator.Validate(r); len(violations) > 0 {
		if g.metrics != nil {
			for _, v := range violations {
				g.metrics.RecordViolation(string(brand), v.Field)
			}
		}
		return nil, brand, validation.Error(brand, violations)
	}

	if !g.config.IncludeRaw {
		r.Raw = nil
	}

	userID := req.UserID
	if userID == "" && principal.Method == auth.ModeJWT {
		userID = principal.Subject
	}

	end := g.now()
	return &Envelope{
		Success:   true,
		MeterInfo: MeterInfo{ID: req.MeterID, Brand: brand},
		Data:      r,
		Metadata: Metadata{
			APIVersion:       g.config.APIVersion,
			ProcessingTimeMs: end.Sub(start).Milliseconds(),
			RequestID:        req.RequestID,
			Timestamp:        end.UTC(),
			UserID:           userID,
		},
	}, brand, nil
}

// fetch calls the vendor under the request's timeout. Data type support is
// checked by the adapter, which knows its vendor's error codes.
func (g *Gateway) fetch(ctx context.Context, a vendorapi.Adapter, req Request, dataType reading.DataType) (*reading.Reading, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.config.timeoutFor(req.Timeout))
	defer cancel()

	began := g.now()
	r, err := a.Fetch(callCtx, vendorapi.Request{MeterID: req.MeterID, DataType: dataType})
	if g.metrics != nil {
		g.metrics.RecordVendorCall(string(a.Brand()), outcome(err), g.now().Sub(began))
	}
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, vendorapi.Malformed(a.Brand(), errors.ErrMalformedPayload)
	}
	return r, nil
}

// observe updates metrics, vendor health and logs for a finished request.
func (g *Gateway) observe(req Request, brand reading.Brand, dataType reading.DataType, elapsed time.Duration, err error) {
	brandLabel := string(brand)
	if brandLabel == "" {
		brandLabel = labelUnknown
	}
	if g.metrics != nil {
		g.metrics.RecordRequest(brandLabel, dataTypeLabel(dataType), outcome(err), elapsed)
	}

	attrs := []any{
		"request_id", req.RequestID,
		"brand", brandLabel,
		"meter_id", req.MeterID,
		"data_type", dataType,
		"duration", elapsed,
	}

	if err == nil {
		if g.health != nil {
			g.health.RecordSuccess(brandLabel)
		}
		g.logger.Debug("request served", attrs...)
		return
	}

	attrs = append(attrs, "class", errors.ClassOf(err).String(), "error", err)
	switch {
	case errors.IsUpstreamDataInvalid(err):
		if g.health != nil {
			g.health.RecordDegraded(brandLabel, errors.PublicMessage(err))
		}
		g.logger.Warn("vendor returned invalid reading", attrs...)
	case errors.IsTransport(err), errors.IsUpstreamProtocol(err):
		if g.health != nil {
			g.health.RecordFailure(brandLabel, errors.PublicMessage(err))
		}
		g.logger.Warn("vendor call failed", attrs...)
	case errors.IsVendorAuth(err):
		g.logger.Warn("vendor rejected credential", attrs...)
	default:
		g.logger.Info("request rejected", attrs...)
	}
}

func (g *Gateway) publish(ctx context.Context, brand reading.Brand, env *Envelope) {
	if g.publisher == nil {
		return
	}
	status := metric.OutcomeSuccess
	if err := g.publisher.Publish(context.WithoutCancel(ctx), brand, env.Metadata.RequestID, env); err != nil {
		status = "error"
		g.logger.Warn("reading not published",
			"request_id", env.Metadata.RequestID, "brand", brand, "error", err)
	}
	if g.metrics != nil {
		g.metrics.RecordPublished(string(brand), status)
	}
}

func outcome(err error) string {
	if err == nil {
		return metric.OutcomeSuccess
	}
	return errors.ClassOf(err).String()
}

// dataTypeLabel keeps caller-supplied garbage out of metric labels.
func dataTypeLabel(dt reading.DataType) string {
	switch dt {
	case reading.DataTypeCurrent, reading.DataTypeHistorical, reading.DataTypePowerQuality:
		return string(dt)
	default:
		return "other"
	}
}
