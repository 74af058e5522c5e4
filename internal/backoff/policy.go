// Package backoff computes retry delays for reconnection scheduling.
package backoff

import "time"

// Policy computes exponential reconnection delays.
type Policy struct {
	Base time.Duration // delay for attempt 0
	Max  time.Duration // delay ceiling; 0 means uncapped
}

// NextDelay returns Base * 2^attempt, capped at Max when Max > 0.
// Pure and deterministic; the overall retry bound is the attempt cap
// enforced by the connection state machine, not this delay.
func (p Policy) NextDelay(attempt uint) time.Duration {
	d := p.Base
	for i := uint(0); i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
		if d <= 0 {
			// Overflow guard for absurd attempt counts.
			if p.Max > 0 {
				return p.Max
			}
			return time.Duration(1<<63 - 1)
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}
