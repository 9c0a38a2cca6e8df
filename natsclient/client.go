package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrClosed       = stderrors.New("client closed")
)

// Client owns one NATS connection used for publishing. Reconnection is left
// to nats.go; the client tracks state and reports it.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger *slog.Logger

	conn *nats.Conn

	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	token         string
	clientName    string

	onStatus func(connected bool)

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
		clientName:    "ecoquest",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(stderrors.Join(errors.ErrInvalidConfig, err), "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	c.status.Store(StatusDisconnected)

	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsConnected reports whether messages can be published right now
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

func (c *Client) setStatus(status ConnectionStatus) {
	prev := c.Status()
	c.status.Store(status)
	if prev != status && c.onStatus != nil {
		c.onStatus(status == StatusConnected)
	}
}

// ConnectionOptions returns the nats.go options the client connects with
func (c *Client) ConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(c.handleConnect),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	return opts
}

// Connect dials the server. With an unreachable server it returns nil and
// keeps retrying in the background, so the gateway can start without NATS.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("connecting to NATS", "url", c.url)

	conn, err := nats.Connect(c.url, c.ConnectionOptions()...)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.Wrap(err, "Client", "Connect", "dial NATS")
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if conn.IsConnected() {
		c.setStatus(StatusConnected)
	} else {
		c.setStatus(StatusReconnecting)
		c.logger.Warn("NATS unavailable, retrying in background")
	}
	return nil
}

// Publish sends data with headers. It fails fast when disconnected.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, header nats.Header) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !c.IsConnected() {
		return ErrNotConnected
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: header}
	if err := conn.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "Client", "Publish", "publish to "+subject)
	}
	return nil
}

// Close drains and closes the connection. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		c.setStatus(StatusClosed)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- conn.Drain() }()

	select {
	case err := <-done:
		conn.Close()
		c.setStatus(StatusClosed)
		if err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			return errors.Wrap(err, "Client", "Close", "drain connection")
		}
		return nil
	case <-ctx.Done():
		conn.Close()
		c.setStatus(StatusClosed)
		return ctx.Err()
	}
}

func (c *Client) handleConnect(_ *nats.Conn) {
	c.logger.Info("NATS connected")
	c.setStatus(StatusConnected)
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	if err != nil {
		c.logger.Warn("NATS disconnected", "error", err)
	}
	c.setStatus(StatusReconnecting)
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.logger.Info("NATS reconnected")
	c.setStatus(StatusConnected)
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusClosed)
}
