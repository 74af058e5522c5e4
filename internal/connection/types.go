package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rentflow/realtime/internal/backoff"
)

// Errors
var (
	ErrConnectFailed      = errors.New("connect failed")
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyClosed      = errors.New("connection already closed")
	ErrRegistryClosed     = errors.New("registry closed")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// Status describes one endpoint's connection state.
//
// Connected and Connecting are never both true. ReconnectAttempts resets to
// zero on every successful open and counts consecutive failures since then.
// Terminal is set once the attempt cap is reached; no timer-based retries
// happen after that.
type Status struct {
	Connected         bool
	Connecting        bool
	LastConnectedAt   time.Time
	ReconnectAttempts uint
	Terminal          bool
}

// StatusEvent is pushed to the sink on every status transition.
type StatusEvent struct {
	Endpoint string
	Status   Status
	Terminal bool  // attempt cap reached; the user-facing "connection lost" signal
	Err      error // cause, when the transition was failure-driven
}

// Sink receives inbound frames and status transitions from connections.
// Implemented by the event dispatcher.
type Sink interface {
	// Dispatch hands a raw inbound frame to subscribers. Must never panic
	// back into the read loop.
	Dispatch(endpoint string, raw []byte)

	// NotifyStatus fans out a status transition.
	NotifyStatus(evt StatusEvent)
}

// TokenSource resolves the current auth token. It is consulted on every
// connect and before every reconnection attempt, so rotated tokens are
// picked up without caller involvement.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures per-endpoint connection behavior.
type Options struct {
	PingInterval         time.Duration  // heartbeat send period
	PongTimeout          time.Duration  // 0 disables missed-pong detection
	WriteTimeout         time.Duration  // write deadline for sends
	HandshakeTimeout     time.Duration  // dial timeout
	MaxReconnectAttempts uint           // consecutive failures before terminal
	Backoff              backoff.Policy // retry delay schedule
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		PingInterval:         60 * time.Second,
		PongTimeout:          0,
		WriteTimeout:         5 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		MaxReconnectAttempts: 2,
		Backoff:              backoff.Policy{Base: 15 * time.Second},
	}
}

// RegistryConfig configures the connection registry.
type RegistryConfig struct {
	BaseURL string // gateway base, e.g. wss://gateway.rentflow.app/ws
	Options Options
}
