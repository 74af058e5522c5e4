// Package wire defines the JSON frame format exchanged with the event gateway.
//
// Every frame is a UTF-8 JSON text message carrying a required "type" field.
// The types "ping", "pong" and "connection_established" are control frames
// consumed by the connection layer and never delivered to subscribers.
package wire

import (
	"encoding/json"
	"errors"
	"time"
)

// Reserved control frame types.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeEstablished = "connection_established"
)

// Errors returned by ParseInbound.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingType    = errors.New("frame missing type field")
)

// Inbound is a parsed frame received from the gateway.
type Inbound struct {
	Type           string            `json:"type"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	Timestamp      string            `json:"timestamp,omitempty"`
	CorrelationIDs map[string]string `json:"correlation_ids,omitempty"`
}

// Outbound is a frame sent to the gateway.
type Outbound struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ParseInbound decodes a raw frame. Frames that are not JSON objects or
// lack a type field are rejected; callers drop them without propagating.
func ParseInbound(raw []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Inbound{}, ErrMalformedFrame
	}
	if msg.Type == "" {
		return Inbound{}, ErrMissingType
	}
	return msg, nil
}

// IsControl reports whether the type is reserved for the connection layer.
func IsControl(msgType string) bool {
	switch msgType {
	case TypePing, TypePong, TypeEstablished:
		return true
	}
	return false
}

// PingFrame builds the heartbeat frame sent every ping interval.
func PingFrame(now time.Time) ([]byte, error) {
	return json.Marshal(Outbound{
		Type:      TypePing,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
