// streamtest connects the configured endpoints and streams delivered
// events and status transitions to the console.
// Usage: go run ./cmd/streamtest --config configs/realtime.example.yaml
//
// The auth token is resolved from gateway.token_env or gateway.token_file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rentflow/realtime"
	"github.com/rentflow/realtime/internal/auth"
	"github.com/rentflow/realtime/internal/config"
	"github.com/rentflow/realtime/internal/reachability"
	"github.com/rentflow/realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/realtime.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "subscribe to all event types")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamtest", "version", version.String(), "config", *configPath)

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	tokens := tokenSource(cfg)

	client := realtime.NewClient(cfg.Gateway.BaseURL, tokens,
		realtime.WithLogger(logger),
		realtime.WithBackoff(cfg.Connections.BaseDelay, cfg.Connections.MaxDelay),
		realtime.WithMaxReconnectAttempts(cfg.Connections.MaxReconnectAttempts),
		realtime.WithPingInterval(cfg.Connections.PingInterval),
		realtime.WithPongTimeout(cfg.Connections.PongTimeout),
		realtime.WithWriteTimeout(cfg.Connections.WriteTimeout),
		realtime.WithHandshakeTimeout(cfg.Connections.HandshakeTimeout),
	)
	defer client.Close()

	// Print every status transition.
	client.OnConnectionStatusChange(func(evt realtime.StatusEvent) {
		if evt.Terminal {
			logger.Error("connection lost",
				"endpoint", evt.Endpoint,
				"attempts", evt.Status.ReconnectAttempts,
				"error", evt.Err,
			)
			return
		}
		logger.Info("status change",
			"endpoint", evt.Endpoint,
			"connected", evt.Status.Connected,
			"connecting", evt.Status.Connecting,
			"attempts", evt.Status.ReconnectAttempts,
		)
	})

	if *verbose {
		client.Subscribe(realtime.Wildcard, printEvent)
	} else {
		for _, eventType := range []string{"message", "notification", "presence_update"} {
			client.Subscribe(eventType, printEvent)
		}
	}

	// Reconnect disconnected endpoints when the host comes back online.
	observer := reachability.New(
		reachability.Config{
			Interval: cfg.Reachability.ProbeInterval,
			Timeout:  cfg.Reachability.ProbeTimeout,
		},
		reachability.TCPProbe(cfg.Reachability.ProbeURL),
		func() { client.RetryDisconnected(ctx) },
		nil,
		logger,
	)
	if err := observer.Start(ctx); err != nil {
		logger.Error("failed to start reachability observer", "error", err)
		os.Exit(1)
	}
	defer observer.Stop()

	// Open the configured endpoints. Failures are logged, not fatal; the
	// reachability observer will retry them.
	for _, endpoint := range cfg.Gateway.Endpoints {
		if err := client.ConnectAuthenticated(ctx, endpoint); err != nil {
			logger.Warn("initial connect failed", "endpoint", endpoint, "error", err)
		}
	}

	logger.Info("streaming", "endpoints", cfg.Gateway.Endpoints)
	<-ctx.Done()

	logger.Info("shutting down", "connected", client.ConnectedEndpoints())
}

func printEvent(endpoint string, msg realtime.Message) {
	payload, _ := json.Marshal(msg.Payload)
	fmt.Printf("[%s] %s %s\n", endpoint, msg.Type, payload)
}

func tokenSource(cfg *config.Config) realtime.TokenSource {
	switch {
	case cfg.Gateway.TokenFile != "":
		return auth.File(cfg.Gateway.TokenFile)
	case cfg.Gateway.TokenEnv != "":
		return auth.Env(cfg.Gateway.TokenEnv)
	default:
		return auth.Env("RT_GATEWAY_TOKEN")
	}
}
