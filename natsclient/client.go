// Package natsclient manages the NATS connection that carries lifecycle signals.
package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

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

// Client owns one NATS connection.
type Client struct {
	url    string
	status atomic.Int32
	logger *slog.Logger

	conn *nats.Conn
	mu   sync.RWMutex

	clientName    string
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	retry         retry.Config
	metrics       *metric.Metrics

	onDisconnect func(error)
	onReconnect  func()

	closeOnce sync.Once
}

// NewClient creates a new NATS client. It does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "nats url is empty")
	}

	c := &Client{
		url:           url,
		logger:        slog.Default(),
		clientName:    "semcache-" + uuid.NewString()[:8],
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
		retry:         retry.DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.setStatus(StatusDisconnected)
	c.logger = c.logger.With("component", "natsclient", "nats_url", url)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Name returns the connection name announced to the server.
func (c *Client) Name() string {
	return c.clientName
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(int32(status))
	if c.metrics != nil {
		c.metrics.SetNATSConnected(status == StatusConnected)
	}
}

// IsHealthy returns true if the connection is up.
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Conn returns the underlying connection, or nil before Connect.
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Connect dials the server, retrying transient failures with backoff.
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusClosed {
		return errors.WrapInvalid(errors.ErrShuttingDown, "Client", "Connect", "connect closed client")
	}
	if c.Conn() != nil {
		return nil
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "name", c.clientName)

	var conn *nats.Conn
	err := retry.Do(ctx, c.retry, func() error {
		var dialErr error
		conn, dialErr = nats.Connect(c.url, c.connectionOptions()...)
		if dialErr != nil {
			c.logger.Debug("NATS dial failed", "error", dialErr)
			return errors.WrapTransient(dialErr, "Client", "Connect", "dial")
		}
		return nil
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Connect", fmt.Sprintf("connect to %s", c.url))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "server", conn.ConnectedUrlRedacted())
	return nil
}

// WaitForConnection blocks until the connection is up or ctx is done.
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Client", "WaitForConnection", "wait for connection")
		case <-ticker.C:
		}
	}
}

// Close drains and closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			if drainErr := conn.Drain(); drainErr != nil {
				conn.Close()
				err = errors.WrapTransient(drainErr, "Client", "Close", "drain connection")
			}
		}
		c.setStatus(StatusClosed)
		c.logger.Info("NATS client closed")
	})
	return err
}

func (c *Client) connectionOptions() []nats.Option {
	return []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("NATS disconnected", "error", err)
	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.logger.Info("NATS reconnected", "server", conn.ConnectedUrlRedacted())
	if c.onReconnect != nil {
		c.onReconnect()
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusClosed)
}
