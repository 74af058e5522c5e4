// Package config loads and validates YAML configuration for the real-time
// client: gateway location, token source, per-connection retry and
// heartbeat policy, and the reachability probe.
package config
