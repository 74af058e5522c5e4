// Package reachability watches host-level connectivity and triggers bulk
// reconnection when the network comes back.
//
// Coming online retries every endpoint that is sitting disconnected; each
// endpoint keeps its own backoff state, so there is no thundering herd.
// Going offline is advisory only: no connection is force-closed, the
// transports fail on their own and drive the per-endpoint recovery path.
package reachability

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"
)

// Probe reports whether the network currently looks reachable.
type Probe func(ctx context.Context) bool

// Config holds observer configuration.
type Config struct {
	Interval time.Duration // probe period (default: 15s)
	Timeout  time.Duration // per-probe timeout (default: 3s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// Observer polls a reachability probe and fires transition hooks.
type Observer struct {
	cfg      Config
	probe    Probe
	onOnline func()
	offline  func()
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	online bool
}

// New creates an observer. onOnline fires on every offline-to-online
// transition; onOffline (optional) on the reverse.
func New(cfg Config, probe Probe, onOnline, onOffline func(), logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Observer{
		cfg:      cfg,
		probe:    probe,
		onOnline: onOnline,
		offline:  onOffline,
		logger:   logger,
		online:   true, // assume reachable until a probe says otherwise
	}
}

// Start begins the probe loop.
func (o *Observer) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go o.run()

	o.logger.Info("reachability observer started", "interval", o.cfg.Interval)
	return nil
}

// Stop shuts down the probe loop.
func (o *Observer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.logger.Info("reachability observer stopped")
}

// Online reports the last observed state.
func (o *Observer) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

func (o *Observer) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.check()
		}
	}
}

func (o *Observer) check() {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.Timeout)
	now := o.probe(ctx)
	cancel()

	o.mu.Lock()
	was := o.online
	o.online = now
	o.mu.Unlock()

	switch {
	case now && !was:
		o.logger.Info("network back online")
		if o.onOnline != nil {
			o.onOnline()
		}
	case !now && was:
		o.logger.Warn("network offline")
		if o.offline != nil {
			o.offline()
		}
	}
}

// TCPProbe dials the host of the given gateway URL. ws/wss URLs default to
// ports 80/443 when none is set.
func TCPProbe(gatewayURL string) Probe {
	return func(ctx context.Context) bool {
		u, err := url.Parse(gatewayURL)
		if err != nil || u.Host == "" {
			return false
		}

		host := u.Host
		if u.Port() == "" {
			port := "443"
			if u.Scheme == "ws" || u.Scheme == "http" {
				port = "80"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}
