// Package dispatch implements the type-keyed publish/subscribe fan-out of
// inbound gateway frames.
//
// Subscribers register for an exact event type or for the wildcard "*",
// which receives every non-control message. Delivery order within one
// message is registration order, exact-type subscribers before wildcard
// ones. A faulty subscriber is isolated: its panic is recovered and logged
// and the remaining subscribers still run.
package dispatch

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rentflow/realtime/internal/connection"
	"github.com/rentflow/realtime/internal/wire"
)

// Wildcard subscribers receive every non-control message.
const Wildcard = "*"

// Handler consumes one delivered message.
type Handler func(endpoint string, msg wire.Inbound)

// StatusHandler consumes one connection status transition.
type StatusHandler func(evt connection.StatusEvent)

// registration pairs a handler with its removal key.
type registration struct {
	id uuid.UUID
	fn Handler
}

type statusRegistration struct {
	id uuid.UUID
	fn StatusHandler
}

// Dispatcher fans inbound frames out to subscribers. It implements
// connection.Sink and is shared by every endpoint's connection.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[string][]registration // eventType -> ordered subscribers
	statusFn []statusRegistration
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		subs:   make(map[string][]registration),
	}
}

// Subscribe registers a handler for an event type (or Wildcard). The
// returned function removes the registration; calling it twice is a no-op.
func (d *Dispatcher) Subscribe(eventType string, fn Handler) func() {
	id := uuid.New()

	d.mu.Lock()
	d.subs[eventType] = append(d.subs[eventType], registration{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		regs := d.subs[eventType]
		for i, reg := range regs {
			if reg.id == id {
				d.subs[eventType] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// OnStatusChange registers a handler for connection status transitions.
// The returned function removes the registration; calling it twice is a
// no-op.
func (d *Dispatcher) OnStatusChange(fn StatusHandler) func() {
	id := uuid.New()

	d.mu.Lock()
	d.statusFn = append(d.statusFn, statusRegistration{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		for i, reg := range d.statusFn {
			if reg.id == id {
				d.statusFn = append(d.statusFn[:i:i], d.statusFn[i+1:]...)
				return
			}
		}
	}
}

// Dispatch parses a raw frame and delivers it. Malformed frames are logged
// and dropped; they never reach subscribers and never propagate an error
// into the read loop. Control frames (pong, connection_established) are
// consumed here.
func (d *Dispatcher) Dispatch(endpoint string, raw []byte) {
	msg, err := wire.ParseInbound(raw)
	if err != nil {
		d.logger.Warn("dropping malformed frame",
			"endpoint", endpoint,
			"error", err,
		)
		return
	}

	if wire.IsControl(msg.Type) {
		d.logger.Debug("control frame", "endpoint", endpoint, "type", msg.Type)
		return
	}

	// Snapshot under the lock so a handler can unsubscribe itself (or
	// others) mid-delivery without corrupting iteration.
	d.mu.Lock()
	regs := make([]registration, 0, len(d.subs[msg.Type])+len(d.subs[Wildcard]))
	regs = append(regs, d.subs[msg.Type]...)
	regs = append(regs, d.subs[Wildcard]...)
	d.mu.Unlock()

	for _, reg := range regs {
		d.deliver(reg.fn, endpoint, msg)
	}
}

// NotifyStatus fans a status transition out to status handlers.
func (d *Dispatcher) NotifyStatus(evt connection.StatusEvent) {
	d.mu.Lock()
	regs := make([]statusRegistration, len(d.statusFn))
	copy(regs, d.statusFn)
	d.mu.Unlock()

	for _, reg := range regs {
		d.deliverStatus(reg.fn, evt)
	}
}

// deliver invokes one handler, isolating panics so one faulty subscriber
// cannot block delivery to the rest.
func (d *Dispatcher) deliver(fn Handler, endpoint string, msg wire.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("subscriber panic",
				"endpoint", endpoint,
				"type", msg.Type,
				"panic", r,
			)
		}
	}()
	fn(endpoint, msg)
}

func (d *Dispatcher) deliverStatus(fn StatusHandler, evt connection.StatusEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("status subscriber panic",
				"endpoint", evt.Endpoint,
				"panic", r,
			)
		}
	}()
	fn(evt)
}
