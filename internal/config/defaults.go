package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseDelay            = 15 * time.Second
	DefaultMaxReconnectAttempts = 2
	DefaultPingInterval         = 60 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultProbeInterval        = 15 * time.Second
	DefaultProbeTimeout         = 3 * time.Second
)

// ApplyDefaults fills in zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	if c.Connections.BaseDelay == 0 {
		c.Connections.BaseDelay = DefaultBaseDelay
	}
	if c.Connections.MaxReconnectAttempts == 0 {
		c.Connections.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connections.PingInterval == 0 {
		c.Connections.PingInterval = DefaultPingInterval
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.HandshakeTimeout == 0 {
		c.Connections.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if c.Reachability.ProbeURL == "" {
		c.Reachability.ProbeURL = c.Gateway.BaseURL
	}
	if c.Reachability.ProbeInterval == 0 {
		c.Reachability.ProbeInterval = DefaultProbeInterval
	}
	if c.Reachability.ProbeTimeout == 0 {
		c.Reachability.ProbeTimeout = DefaultProbeTimeout
	}
}
