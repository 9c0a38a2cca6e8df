// Package http exposes the unified gateway over HTTP.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/YGNTECHSTARTUP/ecoquest/auth"
	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/gateway"
	"github.com/YGNTECHSTARTUP/ecoquest/health"
)

// Routes served by the gateway.
const (
	PathUnified = "/unifiedMeterGateway"
	PathBatch   = "/unifiedMeterGateway/batch"
	PathStream  = "/unifiedMeterGateway/stream"
	PathHealth  = "/health"
	PathMetrics = "/metrics"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const ctxRequestID = "request_id"

// getOrGenerateRequestID extracts the request ID from headers or generates a
// new one
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID)); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// Server is the HTTP front end of the unified gateway
type Server struct {
	service  gateway.Service
	config   Config
	health   *health.Monitor
	metrics  http.Handler
	logger   *slog.Logger
	limiter  *callerLimiter
	upgrader websocket.Upgrader
	engine   *gin.Engine
	extra    []func(gin.IRoutes)

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHealth serves aggregated vendor health on /health
func WithHealth(m *health.Monitor) Option {
	return func(s *Server) { s.health = m }
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRoutes mounts additional routes on the engine root, outside rate
// limiting. The embedded vendor simulator uses it.
func WithRoutes(register func(gin.IRoutes)) Option {
	return func(s *Server) { s.extra = append(s.extra, register) }
}

// NewServer builds the gin engine for svc
func NewServer(svc gateway.Service, cfg Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.Wrap(errors.ErrMissingConfig, "Server", "NewServer", "gateway service is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Server", "NewServer", "config validation")
	}

	s := &Server{
		service: svc,
		config:  cfg,
		logger:  slog.Default(),
		limiter: newCallerLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "HTTPGateway")
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Stats returns the number of handled and failed gateway requests
func (s *Server) Stats() (total, failed uint64) {
	return s.requestsTotal.Load(), s.requestsFailed.Load()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())
	if s.config.EnableCORS {
		r.Use(s.cors())
	}

	api := r.Group("", s.rateLimit())
	api.GET(PathUnified, s.handleUnified)
	api.POST(PathBatch, s.handleBatch)
	api.GET(PathStream, s.handleStream)

	r.GET(PathHealth, s.handleHealth)
	if s.metrics != nil {
		r.GET(PathMetrics, gin.WrapH(s.metrics))
	}
	for _, register := range s.extra {
		register(r)
	}
	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := getOrGenerateRequestID(c.Request)
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.GetString(ctxRequestID),
			"duration", time.Since(start))
	}
}

// rateLimit throttles per verified caller token. Requests whose token is
// missing or does not verify pass through unthrottled and get no bucket, so
// the auth stage rejects them with its own message and random tokens cannot
// crowd real callers out of the limiter table.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		token := auth.TokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		if _, err := s.service.Authorize(c.Request.Context(), token); err != nil {
			c.Next()
			return
		}
		if !s.limiter.Allow(auth.Fingerprint(token)) {
			s.requestsFailed.Add(1)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// cors applies CORS headers to the response
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if s.originAllowed(origin) {
			if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				c.Header("Access-Control-Allow-Origin", "*")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Max-Age", "3600")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// checkOrigin allows same-host websocket clients, plus configured CORS
// origins when CORS is on.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.config.EnableCORS && s.originAllowed(origin) {
		return true
	}
	return strings.HasSuffix(origin, "://"+r.Host)
}

// requestFromQuery builds a gateway request from the unified query string.
func (s *Server) requestFromQuery(c *gin.Context) (gateway.Request, error) {
	req := gateway.Request{
		MeterID:     strings.TrimSpace(c.Query("meterId")),
		Brand:       c.Query("brand"),
		DataType:    c.Query("dataType"),
		UserID:      c.Query("userId"),
		CallerToken: auth.TokenFromHeader(c.GetHeader("Authorization")),
		RequestID:   c.GetString(ctxRequestID),
	}
	if raw := c.Query("timeoutMs"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return req, errors.BadRequest(fmt.Errorf("%w: timeoutMs=%q", errors.ErrMissingParameter, raw),
				"HTTPGateway", "requestFromQuery", "timeoutMs must be a positive integer", "")
		}
		req.Timeout = time.Duration(ms) * time.Millisecond
	}
	return req, nil
}

func (s *Server) handleUnified(c *gin.Context) {
	s.requestsTotal.Add(1)

	req, err := s.requestFromQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	env, err := s.service.Handle(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// BatchItem is one entry of a batch request
type BatchItem struct {
	MeterID   string `json:"meterId"`
	Brand     string `json:"brand"`
	DataType  string `json:"dataType,omitempty"`
	UserID    string `json:"userId,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// BatchRequest is the body of a batch call
type BatchRequest struct {
	Requests []BatchItem `json:"requests"`
}

// ResultError reports a failed request inside a batch response or stream
type ResultError struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// BatchResponse lists results in request order. Each result is either a
// *gateway.Envelope or a ResultError. Success is true only when every item
// succeeded.
type BatchResponse struct {
	Success bool  `json:"success"`
	Results []any `json:"results"`
}

func (s *Server) handleBatch(c *gin.Context) {
	s.requestsTotal.Add(1)

	// one auth check for the whole batch, before the body is read
	token := auth.TokenFromHeader(c.GetHeader("Authorization"))
	if _, err := s.service.Authorize(c.Request.Context(), token); err != nil {
		s.writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxRequestSize)
	var body BatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, errors.BadRequest(err, "HTTPGateway", "handleBatch", "Invalid batch request body", ""))
		return
	}
	if n := len(body.Requests); n == 0 || n > s.config.BatchMaxSize {
		s.writeError(c, errors.BadRequest(errors.ErrMissingParameter, "HTTPGateway", "handleBatch",
			fmt.Sprintf("Batch must contain between 1 and %d requests", s.config.BatchMaxSize), ""))
		return
	}

	batchID := c.GetString(ctxRequestID)
	results := make([]any, len(body.Requests))
	var failed atomic.Int32

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(s.config.BatchConcurrency)
	for i, item := range body.Requests {
		g.Go(func() error {
			env, err := s.service.Handle(ctx, gateway.Request{
				MeterID:     strings.TrimSpace(item.MeterID),
				Brand:       item.Brand,
				DataType:    item.DataType,
				UserID:      item.UserID,
				CallerToken: token,
				RequestID:   fmt.Sprintf("%s-%d", batchID, i),
				Timeout:     time.Duration(item.TimeoutMs) * time.Millisecond,
			})
			results[i] = batchResult(env, err)
			if err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, BatchResponse{Success: failed.Load() == 0, Results: results})
}

func batchResult(env *gateway.Envelope, err error) any {
	if err == nil {
		return env
	}
	return ResultError{
		Status: errors.HTTPStatus(err),
		Error:  errors.PublicMessage(err),
		Code:   errors.CodeOf(err),
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, health.NewHealthy("ecoquest", "No vendor health tracking"))
		return
	}
	status := s.health.AggregateHealth("ecoquest")
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// errorBody is the error response. Code is only present when the failing
// vendor defines one.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func newErrorBody(err error) errorBody {
	return errorBody{Error: errors.PublicMessage(err), Code: errors.CodeOf(err)}
}

// writeError writes the classified error as JSON. Full error detail is
// logged, never returned.
func (s *Server) writeError(c *gin.Context, err error) {
	s.requestsFailed.Add(1)
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "request_id", c.GetString(ctxRequestID), "status", status, "error", err)
	}
	c.JSON(status, newErrorBody(err))
}
