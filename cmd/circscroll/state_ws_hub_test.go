package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

// These tests exercise hub fanout and slow-client eviction without a real
// websocket. Clients have nil conns; the hub guards every conn access.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
}

func runHub(t *testing.T, hub *Hub) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for hub to stop")
		}
	}
}

func registerAndWait(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerAndWait(t, hub, c1)
	registerAndWait(t, hub, c2)

	if n := hub.ClientCount(); n != 2 {
		t.Fatalf("ClientCount = %d, want 2", n)
	}

	msg := []byte(`{"type":"scroll","data":{"source":"pointer","value":10}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.remoteAddr, got, msg)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}

	stop()

	// Shutdown closes every client's send channel.
	for _, c := range []*Client{c1, c2} {
		if _, ok := <-c.send; ok {
			t.Fatalf("%s send channel still open after shutdown", c.remoteAddr)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	stop := runHub(t, hub)
	defer stop()

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerAndWait(t, hub, slow)
	registerAndWait(t, hub, fast)

	// Simulate a stuck client.
	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"tracker_state","data":{"source":"pointer","active":true}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q, want %q", got, msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	// Drain the pre-filled message, then expect the channel to be closed.
	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")

	if n := hub.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub(t, 1, 1)
	stop := runHub(t, hub)
	defer stop()

	c := newTestClient(hub, "c", 1)
	registerAndWait(t, hub, c)

	hub.unregister <- c
	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.ClientCount() == 0 }, "client not removed")
}

// ============================================================================
// Broadcaster
// ============================================================================

type wsTestMessage struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func readHubMessage(t *testing.T, hub *Hub) wsTestMessage {
	t.Helper()
	select {
	case raw := <-hub.broadcast:
		var m wsTestMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for hub message")
		return wsTestMessage{}
	}
}

func TestRunBroadcaster_CoalescesScrollPerSource(t *testing.T) {
	// The hub loop is not running; we read its inbound queue directly.
	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(ctx, hub, src, slog.Default())
	}()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src <- BroadcastScroll{Source: "pointer", Value: 10, Delta: 1024, At: at}
	src <- BroadcastScroll{Source: "trackpad", Value: 1, Delta: 1024, At: at}
	src <- BroadcastScroll{Source: "pointer", Value: -3, Delta: -300, At: at.Add(time.Millisecond)}

	m1 := readHubMessage(t, hub)
	m2 := readHubMessage(t, hub)
	if m1.Type != "scroll" || m2.Type != "scroll" {
		t.Fatalf("types = %s, %s", m1.Type, m2.Type)
	}

	var p, tp wsScrollData
	if err := json.Unmarshal(m1.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(m2.Data, &tp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if p != (wsScrollData{Source: "pointer", Value: 7, Delta: 724, Frames: 2}) {
		t.Fatalf("pointer = %+v", p)
	}
	if tp != (wsScrollData{Source: "trackpad", Value: 1, Delta: 1024, Frames: 1}) {
		t.Fatalf("trackpad = %+v", tp)
	}
	if !m1.Ts.Equal(at.Add(time.Millisecond)) {
		t.Fatalf("merged ts = %v, want latest", m1.Ts)
	}

	cancel()
	<-done
}

func TestRunBroadcaster_TrackerStateFlushesPendingScroll(t *testing.T) {
	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunBroadcaster(ctx, hub, src, slog.Default())

	src <- BroadcastScroll{Source: "pointer", Value: 4}
	src <- BroadcastTrackerState{Source: "pointer", Active: false}

	m1 := readHubMessage(t, hub)
	m2 := readHubMessage(t, hub)
	if m1.Type != "scroll" || m2.Type != "tracker_state" {
		t.Fatalf("order = %s, %s; want scroll then tracker_state", m1.Type, m2.Type)
	}

	var ts wsTrackerStateData
	if err := json.Unmarshal(m2.Data, &ts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ts.Source != "pointer" || ts.Active {
		t.Fatalf("tracker_state = %+v", ts)
	}
	if m2.Ts.IsZero() {
		t.Fatalf("zero At should be stamped with now")
	}
}

func TestRunBroadcaster_FlushesOnSourceClose(t *testing.T) {
	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(context.Background(), hub, src, slog.Default())
	}()

	src <- BroadcastScroll{Source: "pointer", Value: 2}
	close(src)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcaster did not stop")
	}
	if m := readHubMessage(t, hub); m.Type != "scroll" {
		t.Fatalf("type = %s, want scroll", m.Type)
	}
}

func TestSaturatingAdd32(t *testing.T) {
	if got := saturatingAdd32(1<<31-1, 1); got != 1<<31-1 {
		t.Fatalf("overflow = %d", got)
	}
	if got := saturatingAdd32(-1<<31, -1); got != -1<<31 {
		t.Fatalf("underflow = %d", got)
	}
	if got := saturatingAdd32(5, -7); got != -2 {
		t.Fatalf("5 + -7 = %d", got)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
