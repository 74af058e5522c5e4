package connection

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rentflow/realtime/internal/wire"
)

func TestRegistry_UnknownEndpoint(t *testing.T) {
	reg, _ := newTestRegistry(t, testOptions(), &fakeDialer{}, nil)

	if st := reg.ConnectionStatus("nope"); st != (Status{}) {
		t.Errorf("ConnectionStatus(nope) = %+v, want zero value", st)
	}
	if reg.IsConnected("nope") {
		t.Error("IsConnected(nope) = true")
	}
	if reg.Send("nope", wire.Outbound{Type: "msg"}) {
		t.Error("Send(nope) = true")
	}

	// Disconnecting an unknown endpoint is a no-op, not an error.
	reg.Disconnect("nope")
}

func TestRegistry_ConnectedEndpoints(t *testing.T) {
	dialer := &fakeDialer{}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	for _, ep := range []string{"presence", "chat", "notifications"} {
		if err := reg.Connect(ctx, ep, "t1"); err != nil {
			t.Fatalf("Connect(%s) failed: %v", ep, err)
		}
	}
	reg.Disconnect("notifications")

	got := reg.ConnectedEndpoints()
	want := []string{"chat", "presence"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ConnectedEndpoints() = %v, want %v", got, want)
	}
}

func TestRegistry_EndpointIsolation(t *testing.T) {
	// Endpoint "alpha" is undialable after its first open; "beta" is healthy.
	var alphaDown atomic.Bool
	dialer := &fakeDialer{failFor: func(url string) bool {
		return alphaDown.Load() && strings.Contains(url, "/alpha/")
	}}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	if err := reg.Connect(ctx, "alpha", "t1"); err != nil {
		t.Fatalf("Connect(alpha) failed: %v", err)
	}
	if err := reg.Connect(ctx, "beta", "t1"); err != nil {
		t.Fatalf("Connect(beta) failed: %v", err)
	}

	alphaDown.Store(true)
	dialer.conn(0).serverClose(websocket.CloseAbnormalClosure)

	// Drive alpha all the way to terminal failure.
	waitFor(t, func() bool { return reg.ConnectionStatus("alpha").Terminal })

	// Beta is untouched: still connected, zero attempts, still sendable.
	st := reg.ConnectionStatus("beta")
	if !st.Connected || st.ReconnectAttempts != 0 {
		t.Errorf("beta status = %+v, want connected with 0 attempts", st)
	}
	if !reg.Send("beta", wire.Outbound{Type: "msg"}) {
		t.Error("Send(beta) failed while alpha was failing")
	}

	got := reg.ConnectedEndpoints()
	if len(got) != 1 || got[0] != "beta" {
		t.Errorf("ConnectedEndpoints() = %v, want [beta]", got)
	}
}

func TestRegistry_RetryDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	if err := reg.Connect(ctx, "chat", "t1"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := reg.Connect(ctx, "presence", "t1"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Peer closes chat normally; it sits disconnected with no retry.
	dialer.conn(0).serverClose(websocket.CloseNormalClosure)
	waitFor(t, func() bool { return !reg.IsConnected("chat") })

	dials := dialer.dialCount()
	reg.RetryDisconnected(ctx)

	waitFor(t, func() bool { return reg.IsConnected("chat") })
	if n := dialer.dialCount(); n != dials+1 {
		t.Errorf("dial count = %d, want %d (only the disconnected endpoint redialed)", n, dials+1)
	}
}

func TestRegistry_RetryDisconnected_IncludesTerminal(t *testing.T) {
	var failing atomic.Bool
	dialer := &fakeDialer{failFor: func(string) bool { return failing.Load() }}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	if err := reg.Connect(ctx, "chat", "t1"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	failing.Store(true)
	dialer.conn(0).serverClose(websocket.CloseAbnormalClosure)
	waitFor(t, func() bool { return reg.ConnectionStatus("chat").Terminal })

	// Network comes back: the terminal endpoint gets a fresh cycle.
	failing.Store(false)
	reg.RetryDisconnected(ctx)

	waitFor(t, func() bool { return reg.IsConnected("chat") })
	st := reg.ConnectionStatus("chat")
	if st.Terminal || st.ReconnectAttempts != 0 {
		t.Errorf("status after recovery = %+v, want clean connected state", st)
	}
}

func TestRegistry_Close(t *testing.T) {
	dialer := &fakeDialer{}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	if err := reg.Connect(ctx, "chat", "t1"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	reg.Close()

	if got := reg.ConnectedEndpoints(); len(got) != 0 {
		t.Errorf("ConnectedEndpoints() after Close = %v, want none", got)
	}
	if err := reg.Connect(ctx, "chat", "t1"); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Connect after Close = %v, want ErrRegistryClosed", err)
	}
}

func TestRegistry_DisconnectThenReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	reg, _ := newTestRegistry(t, testOptions(), dialer, nil)
	ctx := context.Background()

	if err := reg.Connect(ctx, "chat", "t1"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	reg.Disconnect("chat")

	// Reconnecting after a disconnect builds a fresh connection.
	if err := reg.Connect(ctx, "chat", "t2"); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if !reg.IsConnected("chat") {
		t.Error("endpoint not connected after reconnect")
	}
	if !strings.HasSuffix(dialer.lastURL(), "?token=t2") {
		t.Errorf("reconnect dialed %q, want token=t2", dialer.lastURL())
	}

	// No stray activity from the first connection's timers.
	time.Sleep(100 * time.Millisecond)
	if n := dialer.dialCount(); n != 2 {
		t.Errorf("dial count = %d, want 2", n)
	}
}
