package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return errors.New("gateway.base_url is required")
	}
	if !strings.HasPrefix(c.Gateway.BaseURL, "ws://") && !strings.HasPrefix(c.Gateway.BaseURL, "wss://") {
		return fmt.Errorf("gateway.base_url must be a ws:// or wss:// URL, got %q", c.Gateway.BaseURL)
	}
	if c.Gateway.TokenEnv != "" && c.Gateway.TokenFile != "" {
		return errors.New("gateway.token_env and gateway.token_file are mutually exclusive")
	}

	if c.Connections.BaseDelay <= 0 {
		return errors.New("connections.base_delay must be > 0")
	}
	if c.Connections.MaxDelay < 0 {
		return errors.New("connections.max_delay must be >= 0")
	}
	if c.Connections.MaxDelay > 0 && c.Connections.MaxDelay < c.Connections.BaseDelay {
		return fmt.Errorf("connections.max_delay (%v) cannot be below base_delay (%v)",
			c.Connections.MaxDelay, c.Connections.BaseDelay)
	}
	if c.Connections.PingInterval <= 0 {
		return errors.New("connections.ping_interval must be > 0")
	}
	if c.Connections.PongTimeout < 0 {
		return errors.New("connections.pong_timeout must be >= 0")
	}

	for _, ep := range c.Gateway.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return errors.New("gateway.endpoints must not contain empty names")
		}
		if strings.ContainsAny(ep, "/?&") {
			return fmt.Errorf("gateway.endpoints: %q must not contain URL separators", ep)
		}
	}

	if c.Reachability.ProbeInterval <= 0 {
		return errors.New("reachability.probe_interval must be > 0")
	}

	return nil
}
