package vendorapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// MaxBodyBytes caps how much of a vendor response is read.
const MaxBodyBytes = 1 << 20

// StatusError is a non-2xx vendor response.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// vendorFault is the error body shape all three vendors use. Only L&T sets
// Code.
type vendorFault struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Call describes a single vendor GET.
type Call struct {
	Path   string
	Query  url.Values
	Header http.Header
	Schema *Schema
}

// Client is the HTTP transport shared by the adapters. It never retries.
type Client struct {
	brand      reading.Brand
	component  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient builds on a copy of hc, so adapters can share one
// transport and its connection pool while keeping their own timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.httpClient = &cp
		}
	}
}

// WithTimeout sets a transport-level ceiling. Per-call deadlines come from
// the context and are usually shorter.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for brand rooted at baseURL.
func NewClient(brand reading.Brand, baseURL string, opts ...Option) *Client {
	c := &Client{
		brand:      brand,
		component:  adapterComponent(brand),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", c.component)
	return c
}

// Get performs call and returns the raw success body after schema checks.
// Every failure is a classified error.
func (c *Client) Get(ctx context.Context, call Call) (json.RawMessage, error) {
	fullURL := c.baseURL + call.Path
	if len(call.Query) > 0 {
		fullURL += "?" + call.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.UpstreamProtocol(errors.Wrap(err, c.component, "Get", "build request"),
			c.component, "Get", fmt.Sprintf("Could not build request for %s", c.brand.DisplayName()))
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range call.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	if len(body) > MaxBodyBytes {
		return nil, errors.UpstreamProtocol(
			fmt.Errorf("%w: body exceeds %d bytes", errors.ErrMalformedPayload, MaxBodyBytes),
			c.component, "Get", fmt.Sprintf("Oversized response from %s", c.brand.DisplayName()))
	}

	c.logger.Debug("vendor call completed",
		"path", call.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, Malformed(c.brand, stderrors.New("response is not JSON"))
	}
	if call.Schema != nil {
		if err := call.Schema.Check(body); err != nil {
			return nil, Malformed(c.brand, err)
		}
	}
	return json.RawMessage(body), nil
}

// transportError classifies a failure below HTTP. The *url.Error wrapper is
// dropped because its text carries the full URL, query credentials included.
func (c *Client) transportError(ctx context.Context, err error) error {
	var ue *url.Error
	if stderrors.As(err, &ue) {
		err = ue.Err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	cause := errors.Wrap(err, c.component, "Get", "vendor call")
	var ne net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.Transport(cause, c.component, "Get",
			fmt.Sprintf("%s request timed out", c.brand.DisplayName()))
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Transport(cause, c.component, "Get", "Request cancelled")
	}
	return errors.Transport(fmt.Errorf("%w: %w", errors.ErrUpstreamUnreachable, cause), c.component, "Get",
		fmt.Sprintf("%s service unavailable", c.brand.DisplayName()))
}

// statusError maps a vendor's non-2xx answer onto the taxonomy, keeping the
// vendor's own message and code.
func (c *Client) statusError(status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 512 {
		snippet = snippet[:512]
	}
	se := &StatusError{StatusCode: status, Body: snippet}

	var fault vendorFault
	_ = json.Unmarshal(body, &fault)
	msg := fault.Error
	if msg == "" {
		msg = fault.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = fmt.Sprintf("%s rejected the credential", c.brand.DisplayName())
		}
		return errors.VendorAuth(fmt.Errorf("%w: %w", errors.ErrVendorAuth, se), c.component, "Get", msg, fault.Code)
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = fmt.Sprintf("%s rejected the request", c.brand.DisplayName())
		}
		return errors.BadRequest(se, c.component, "Get", msg, fault.Code)
	default:
		return errors.UpstreamProtocol(fmt.Errorf("%w: %w", errors.ErrUpstreamStatus, se), c.component, "Get",
			fmt.Sprintf("%s returned HTTP %d", c.brand.DisplayName(), status))
	}
}
