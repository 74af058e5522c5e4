package connection

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/rentflow/realtime/internal/wire"
)

// Registry owns the endpoint -> connection map and routes connect, send
// and disconnect calls to the right state machine. Endpoints are fully
// isolated: each connection runs its own goroutines and timers, so a
// failure storm on one endpoint never blocks another.
type Registry struct {
	cfg    RegistryConfig
	dialer Dialer
	tokens TokenSource
	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
}

// NewRegistry creates a registry. Passing a nil dialer selects the
// production WebSocket dialer; tests inject fakes.
func NewRegistry(cfg RegistryConfig, dialer Dialer, tokens TokenSource, sink Sink, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if dialer == nil {
		dialer = NewDialer(cfg.Options)
	}

	return &Registry{
		cfg:    cfg,
		dialer: dialer,
		tokens: tokens,
		sink:   sink,
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

// Connect opens the named endpoint with an explicit token. Safe to call
// concurrently for the same endpoint; callers share one dial.
func (r *Registry) Connect(ctx context.Context, endpoint, token string) error {
	c, err := r.getOrCreate(endpoint)
	if err != nil {
		return err
	}
	return c.Connect(ctx, token)
}

// ConnectAuthenticated resolves the current token from the token source
// and connects.
func (r *Registry) ConnectAuthenticated(ctx context.Context, endpoint string) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return err
	}
	return r.Connect(ctx, endpoint, token)
}

// Disconnect tears down the named endpoint and removes it. Unknown
// endpoints are a no-op.
func (r *Registry) Disconnect(endpoint string) {
	r.mu.Lock()
	c := r.conns[endpoint]
	delete(r.conns, endpoint)
	r.mu.Unlock()

	if c != nil {
		c.Disconnect()
	}
}

// Send writes one frame to the named endpoint. Returns false when the
// endpoint is unknown or not currently open; the message is dropped, not
// queued.
func (r *Registry) Send(endpoint string, msg wire.Outbound) bool {
	r.mu.Lock()
	c := r.conns[endpoint]
	r.mu.Unlock()

	if c == nil {
		return false
	}
	return c.Send(msg)
}

// IsConnected reports whether the named endpoint is currently open.
func (r *Registry) IsConnected(endpoint string) bool {
	return r.ConnectionStatus(endpoint).Connected
}

// ConnectionStatus returns the endpoint's status, or the zero Status for
// unknown endpoints.
func (r *Registry) ConnectionStatus(endpoint string) Status {
	r.mu.Lock()
	c := r.conns[endpoint]
	r.mu.Unlock()

	if c == nil {
		return Status{}
	}
	return c.Status()
}

// ConnectedEndpoints returns the sorted names of all open endpoints.
func (r *Registry) ConnectedEndpoints() []string {
	r.mu.Lock()
	conns := make(map[string]*conn, len(r.conns))
	for name, c := range r.conns {
		conns[name] = c
	}
	r.mu.Unlock()

	endpoints := make([]string, 0, len(conns))
	for name, c := range conns {
		if c.Status().Connected {
			endpoints = append(endpoints, name)
		}
	}
	sort.Strings(endpoints)
	return endpoints
}

// RetryDisconnected re-resolves the token and reconnects every endpoint
// that is neither open nor dialing. Terminal endpoints are included: a
// host-online transition is treated like a manual connect and restarts
// the attempt cycle. Each endpoint retries on its own goroutine so a slow
// dial cannot delay the others.
func (r *Registry) RetryDisconnected(ctx context.Context) {
	r.mu.Lock()
	conns := make(map[string]*conn, len(r.conns))
	for name, c := range r.conns {
		conns[name] = c
	}
	r.mu.Unlock()

	for name, c := range conns {
		st := c.Status()
		if st.Connected || st.Connecting {
			continue
		}

		r.logger.Info("retrying endpoint after connectivity change", "endpoint", name)
		go func(endpoint string, c *conn) {
			token, err := r.tokens.Token(ctx)
			if err != nil {
				r.logger.Warn("token resolution failed", "endpoint", endpoint, "error", err)
				return
			}
			if err := c.Connect(ctx, token); err != nil {
				r.logger.Warn("retry failed", "endpoint", endpoint, "error", err)
			}
		}(name, c)
	}
}

// Close disconnects every endpoint and rejects further use.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	conns := r.conns
	r.conns = make(map[string]*conn)
	r.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
	r.logger.Info("registry closed")
}

// getOrCreate returns the endpoint's connection, creating it on first use.
func (r *Registry) getOrCreate(endpoint string) (*conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	c, ok := r.conns[endpoint]
	if !ok {
		c = newConn(endpoint, r.cfg, r.dialer, r.tokens, r.sink, r.logger)
		r.conns[endpoint] = c
	}
	return c, nil
}
