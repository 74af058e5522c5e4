package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rentflow/realtime/internal/wire"
)

// attempt is one in-flight dial. Concurrent Connect callers wait on the
// same attempt so no duplicate transport is opened.
type attempt struct {
	done chan struct{}
	err  error // valid after done is closed
}

// conn owns a single endpoint's transport, timers and status. It is the
// only writer of its own state; the registry routes calls to it.
type conn struct {
	endpoint string
	baseURL  string
	dialer   Dialer
	opts     Options
	tokens   TokenSource
	sink     Sink
	logger   *slog.Logger

	mu         sync.Mutex
	status     Status
	transport  Conn
	inflight   *attempt
	retryTimer *time.Timer   // pending reconnect; mutually exclusive with an open transport
	stop       chan struct{} // tears down the current session's read and heartbeat loops
	gen        uint64        // session generation, guards stale loops and timers
	lastPong   time.Time
	closed     bool
}

func newConn(endpoint string, cfg RegistryConfig, dialer Dialer, tokens TokenSource, sink Sink, logger *slog.Logger) *conn {
	return &conn{
		endpoint: endpoint,
		baseURL:  cfg.BaseURL,
		dialer:   dialer,
		opts:     cfg.Options,
		tokens:   tokens,
		sink:     sink,
		logger:   logger.With("endpoint", endpoint),
	}
}

// Connect opens the transport. Idempotent: already connected resolves
// immediately; a dial already in flight is shared, not duplicated.
func (c *conn) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.status.Connected {
		c.mu.Unlock()
		return nil
	}
	if c.inflight != nil {
		a := c.inflight
		c.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// A manual connect supersedes any scheduled retry.
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}

	a := &attempt{done: make(chan struct{})}
	c.inflight = a
	c.status.Connecting = true
	c.status.Terminal = false
	st := c.status
	c.mu.Unlock()

	c.notify(st, false, nil)

	return c.dial(ctx, token, a, false)
}

// dial performs one transport open and resolves the attempt. When retrying
// is set, a failure feeds the backoff schedule instead of only rejecting.
func (c *conn) dial(ctx context.Context, token string, a *attempt, retrying bool) error {
	t, err := c.dialer.Dial(ctx, buildURL(c.baseURL, c.endpoint, token))

	c.mu.Lock()
	if c.closed {
		c.inflight = nil
		a.err = ErrAlreadyClosed
		c.mu.Unlock()
		if t != nil {
			t.Close(websocket.CloseNormalClosure, "")
		}
		close(a.done)
		return a.err
	}

	if err != nil {
		c.inflight = nil
		a.err = fmt.Errorf("%w: %s: %v", ErrConnectFailed, c.endpoint, err)

		if retrying {
			close(a.done)
			c.failLocked(err) // unlocks
			return a.err
		}

		c.status.Connecting = false
		c.status.Connected = false
		st := c.status
		c.mu.Unlock()
		close(a.done)
		c.notify(st, false, a.err)
		c.logger.Warn("connect failed", "error", err)
		return a.err
	}

	now := time.Now()
	c.transport = t
	c.gen++
	gen := c.gen
	c.stop = make(chan struct{})
	stop := c.stop
	c.lastPong = now
	c.status = Status{Connected: true, LastConnectedAt: now}
	st := c.status
	c.inflight = nil
	c.mu.Unlock()

	close(a.done)

	go c.readLoop(t, stop, gen)
	go c.heartbeatLoop(t, stop)

	c.notify(st, false, nil)
	c.logger.Info("connected")
	return nil
}

// Send writes one frame, failing fast when the transport is not open.
// There is no outbound queue; a false return means the message was dropped.
func (c *conn) Send(msg wire.Outbound) bool {
	c.mu.Lock()
	t := c.transport
	open := c.status.Connected
	c.mu.Unlock()

	if !open || t == nil {
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Warn("marshal outbound failed", "type", msg.Type, "error", err)
		return false
	}
	if err := t.WriteMessage(data); err != nil {
		c.logger.Debug("send failed", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// Status returns a copy of the current status.
func (c *conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Disconnect deterministically cancels the heartbeat and any pending retry
// timer, closes the transport with a normal-closure code and zeroes the
// status. No timer callback runs after it returns; this is the only path
// that suppresses reconnection.
func (c *conn) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	t := c.transport
	c.transport = nil
	c.status = Status{}
	st := c.status
	c.mu.Unlock()

	if t != nil {
		t.Close(websocket.CloseNormalClosure, "")
	}
	c.notify(st, false, nil)
	c.logger.Info("disconnected")
}

// readLoop drains inbound frames into the sink until the transport dies.
func (c *conn) readLoop(t Conn, stop chan struct{}, gen uint64) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				// Deliberate teardown; nothing to recover.
				return
			default:
			}
			c.handleReadError(gen, err)
			return
		}

		c.observePong(data)
		c.sink.Dispatch(c.endpoint, data)
	}
}

// observePong tracks inbound pong frames for missed-pong detection. Only
// active when PongTimeout is configured.
func (c *conn) observePong(data []byte) {
	if c.opts.PongTimeout <= 0 {
		return
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(data, &envelope) != nil || envelope.Type != wire.TypePong {
		return
	}
	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()
}

// heartbeatLoop sends a ping frame every PingInterval while the session is
// alive. With PongTimeout set it also force-closes a session whose pongs
// stopped arriving, which drives the normal reconnection path.
func (c *conn) heartbeatLoop(t Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.opts.PongTimeout > 0 {
				c.mu.Lock()
				last := c.lastPong
				c.mu.Unlock()
				if time.Since(last) > c.opts.PingInterval+c.opts.PongTimeout {
					c.logger.Warn("pong timeout, closing connection")
					t.Close(websocket.ClosePolicyViolation, "pong timeout")
					return
				}
			}

			frame, err := wire.PingFrame(time.Now())
			if err != nil {
				continue
			}
			if err := t.WriteMessage(frame); err != nil {
				c.logger.Debug("ping write failed", "error", err)
			}
		}
	}
}

// handleReadError tears down the failed session and decides between a
// plain disconnect (normal closure) and the reconnection path.
func (c *conn) handleReadError(gen uint64, err error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}

	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.transport != nil {
		c.transport.Close(websocket.CloseNormalClosure, "")
		c.transport = nil
	}

	if isNormalClosure(err) {
		c.status = Status{}
		st := c.status
		c.mu.Unlock()
		c.notify(st, false, nil)
		c.logger.Info("connection closed by peer")
		return
	}

	c.failLocked(err) // unlocks
}

// failLocked consumes one connection failure: below the attempt cap it
// schedules a retry after the backoff delay, at the cap it goes terminal.
// The retry re-resolves the token, so rotation is picked up. mu must be
// held; failLocked unlocks it.
func (c *conn) failLocked(cause error) {
	attempts := c.status.ReconnectAttempts

	if attempts >= c.opts.MaxReconnectAttempts {
		c.status = Status{ReconnectAttempts: attempts, Terminal: true}
		st := c.status
		c.mu.Unlock()

		c.notify(st, true, fmt.Errorf("%w: %s: %v", ErrReconnectExhausted, c.endpoint, cause))
		c.logger.Error("connection lost, retries exhausted",
			"attempts", attempts,
			"error", cause,
		)
		return
	}

	delay := c.opts.Backoff.NextDelay(attempts)
	c.status = Status{ReconnectAttempts: attempts + 1}
	st := c.status
	c.retryTimer = time.AfterFunc(delay, c.retry)
	c.mu.Unlock()

	c.notify(st, false, cause)
	c.logger.Warn("scheduling reconnect",
		"attempt", attempts+1,
		"delay", delay,
		"error", cause,
	)
}

// retry is the reconnect timer callback.
func (c *conn) retry() {
	c.mu.Lock()
	if c.closed || c.status.Connected || c.inflight != nil {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil

	a := &attempt{done: make(chan struct{})}
	c.inflight = a
	c.status.Connecting = true
	st := c.status
	c.mu.Unlock()

	c.notify(st, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandshakeTimeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.mu.Lock()
		c.inflight = nil
		c.status.Connecting = false
		a.err = fmt.Errorf("%w: %s: resolve token: %v", ErrConnectFailed, c.endpoint, err)
		close(a.done)
		c.failLocked(err) // unlocks
		return
	}

	c.dial(ctx, token, a, true)
}

// notify pushes a status transition to the sink. Called without mu held so
// handlers may query the connection.
func (c *conn) notify(st Status, terminal bool, err error) {
	c.sink.NotifyStatus(StatusEvent{
		Endpoint: c.endpoint,
		Status:   st,
		Terminal: terminal,
		Err:      err,
	})
}
