package config

import "time"

// Config is the root configuration for the real-time client.
type Config struct {
	Gateway      GatewayConfig      `yaml:"gateway"`
	Connections  ConnectionsConfig  `yaml:"connections"`
	Reachability ReachabilityConfig `yaml:"reachability"`
}

// GatewayConfig holds event gateway settings.
type GatewayConfig struct {
	BaseURL   string   `yaml:"base_url"`   // e.g. wss://gateway.rentflow.app/ws
	TokenEnv  string   `yaml:"token_env"`  // env var holding the auth token
	TokenFile string   `yaml:"token_file"` // file holding the auth token (rotatable)
	Endpoints []string `yaml:"endpoints"`  // channels to open at startup
}

// ConnectionsConfig holds connection manager settings.
type ConnectionsConfig struct {
	BaseDelay            time.Duration `yaml:"base_delay"`             // backoff base (15s)
	MaxDelay             time.Duration `yaml:"max_delay"`              // backoff ceiling, 0 = uncapped
	MaxReconnectAttempts uint          `yaml:"max_reconnect_attempts"` // attempts before terminal
	PingInterval         time.Duration `yaml:"ping_interval"`          // heartbeat period (60s)
	PongTimeout          time.Duration `yaml:"pong_timeout"`           // 0 disables missed-pong detection
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
}

// ReachabilityConfig holds network observer settings.
type ReachabilityConfig struct {
	ProbeURL      string        `yaml:"probe_url"`      // defaults to gateway.base_url
	ProbeInterval time.Duration `yaml:"probe_interval"` // probe period (15s)
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`  // per-probe timeout (3s)
}
