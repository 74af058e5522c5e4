// Package auth provides token sources for authenticating gateway
// connections. Tokens are opaque strings issued elsewhere; sources only
// resolve the current value, and are re-consulted before every
// reconnection attempt so rotated tokens are picked up.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Static returns a source that always yields the same token.
func Static(token string) *StaticSource {
	return &StaticSource{token: token}
}

// StaticSource holds a fixed token. Set replaces it, which the next
// reconnection attempt will observe.
type StaticSource struct {
	mu    sync.RWMutex
	token string
}

func (s *StaticSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", fmt.Errorf("no token configured")
	}
	return s.token, nil
}

// Set replaces the stored token.
func (s *StaticSource) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Env returns a source that reads the token from an environment variable
// on every call.
func Env(name string) *EnvSource {
	return &EnvSource{name: name}
}

// EnvSource resolves the token from the environment.
type EnvSource struct {
	name string
}

func (s *EnvSource) Token(ctx context.Context) (string, error) {
	token := strings.TrimSpace(os.Getenv(s.name))
	if token == "" {
		return "", fmt.Errorf("environment variable %s is empty", s.name)
	}
	return token, nil
}

// File returns a source that re-reads the token file on every call,
// supporting rotation by an external agent.
func File(path string) *FileSource {
	return &FileSource{path: path}
}

// FileSource resolves the token from a file.
type FileSource struct {
	path string
}

func (s *FileSource) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", s.path)
	}
	return token, nil
}
