// Package realtime is the client-side real-time connection manager: it
// opens, multiplexes, authenticates, monitors and automatically recovers a
// set of independent, named, persistent event-stream connections to the
// backend event gateway.
//
// UI layers construct one Client per process, subscribe to the event types
// they care about and call Send; everything else (heartbeats, backoff,
// token rotation on retry, terminal-failure signalling) happens inside.
package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/rentflow/realtime/internal/backoff"
	"github.com/rentflow/realtime/internal/connection"
	"github.com/rentflow/realtime/internal/dispatch"
	"github.com/rentflow/realtime/internal/wire"
)

// Re-export core types
type (
	Message       = wire.Inbound
	Outbound      = wire.Outbound
	Status        = connection.Status
	StatusEvent   = connection.StatusEvent
	TokenSource   = connection.TokenSource
	Handler       = dispatch.Handler
	StatusHandler = dispatch.StatusHandler
	Dialer        = connection.Dialer
)

// Re-export error values
var (
	ErrConnectFailed      = connection.ErrConnectFailed
	ErrReconnectExhausted = connection.ErrReconnectExhausted
)

// Wildcard subscribers receive every non-control message.
const Wildcard = dispatch.Wildcard

// Client multiplexes named endpoint connections over one gateway.
type Client struct {
	registry   *connection.Registry
	dispatcher *dispatch.Dispatcher
}

// Option configures a Client.
type Option func(*options)

type options struct {
	opts   connection.Options
	dialer connection.Dialer
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackoff sets the reconnect delay policy: base * 2^attempt, capped at
// max when max > 0.
func WithBackoff(base, max time.Duration) Option {
	return func(o *options) { o.opts.Backoff = backoff.Policy{Base: base, Max: max} }
}

// WithMaxReconnectAttempts sets the consecutive-failure cap before an
// endpoint goes terminal.
func WithMaxReconnectAttempts(n uint) Option {
	return func(o *options) { o.opts.MaxReconnectAttempts = n }
}

// WithPingInterval sets the heartbeat period.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) { o.opts.PingInterval = d }
}

// WithPongTimeout enables missed-pong detection: a session whose pongs
// stop arriving is force-closed and recovered through the normal
// reconnection path. Disabled by default to match the reference behavior.
func WithPongTimeout(d time.Duration) Option {
	return func(o *options) { o.opts.PongTimeout = d }
}

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.opts.WriteTimeout = d }
}

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.opts.HandshakeTimeout = d }
}

// WithDialer substitutes the transport dialer (tests).
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// NewClient creates a client for the given gateway base URL. The token
// source is consulted by ConnectAuthenticated and before every
// reconnection attempt.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	o := &options{
		opts:   connection.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	dispatcher := dispatch.NewDispatcher(o.logger)
	registry := connection.NewRegistry(
		connection.RegistryConfig{BaseURL: baseURL, Options: o.opts},
		o.dialer,
		tokens,
		dispatcher,
		o.logger,
	)

	return &Client{registry: registry, dispatcher: dispatcher}
}

// Connect opens the named endpoint with an explicit token. Idempotent:
// already-connected resolves immediately, and concurrent callers share one
// in-flight dial.
func (c *Client) Connect(ctx context.Context, endpoint, token string) error {
	return c.registry.Connect(ctx, endpoint, token)
}

// ConnectAuthenticated resolves the current token and connects.
func (c *Client) ConnectAuthenticated(ctx context.Context, endpoint string) error {
	return c.registry.ConnectAuthenticated(ctx, endpoint)
}

// Disconnect tears down the named endpoint, cancelling its heartbeat and
// any pending reconnect. The only path that suppresses auto-reconnection.
func (c *Client) Disconnect(endpoint string) {
	c.registry.Disconnect(endpoint)
}

// Send writes one frame to the named endpoint. Returns false when the
// endpoint is not open: the message is dropped, never queued.
func (c *Client) Send(endpoint string, msg Outbound) bool {
	return c.registry.Send(endpoint, msg)
}

// Subscribe registers a handler for an event type, or Wildcard for all
// non-control messages. The returned function unsubscribes; calling it
// twice is a no-op.
func (c *Client) Subscribe(eventType string, fn Handler) func() {
	return c.dispatcher.Subscribe(eventType, fn)
}

// OnConnectionStatusChange registers a handler for status transitions of
// any endpoint. Terminal events are the "connection lost" signal.
func (c *Client) OnConnectionStatusChange(fn StatusHandler) func() {
	return c.dispatcher.OnStatusChange(fn)
}

// IsConnected reports whether the named endpoint is currently open.
func (c *Client) IsConnected(endpoint string) bool {
	return c.registry.IsConnected(endpoint)
}

// ConnectionStatus returns the endpoint's status; unknown endpoints yield
// the zero Status.
func (c *Client) ConnectionStatus(endpoint string) Status {
	return c.registry.ConnectionStatus(endpoint)
}

// ConnectedEndpoints returns the sorted names of all open endpoints.
func (c *Client) ConnectedEndpoints() []string {
	return c.registry.ConnectedEndpoints()
}

// RetryDisconnected reconnects every endpoint that is neither open nor
// dialing, re-resolving the token first. Wired to the reachability
// observer's online hook.
func (c *Client) RetryDisconnected(ctx context.Context) {
	c.registry.RetryDisconnected(ctx)
}

// Close disconnects every endpoint and rejects further use.
func (c *Client) Close() {
	c.registry.Close()
}
