package rolefeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/minimartapp/minimart-backend/pkg/logger"
)

// memoryTransport is an in-process stand-in for the Redis channel, letting a
// test run two bridges side by side like two browser tabs.
type memoryTransport struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

func newMemoryTransport() *memoryTransport {
	return &memoryTransport{subs: map[string][]chan string{}}
}

func (m *memoryTransport) Publish(_ context.Context, channel, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[channel] {
		sub <- payload
	}
	return nil
}

func (m *memoryTransport) Subscribe(_ context.Context, channel string) (<-chan string, func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan string, 8)
	m.subs[channel] = append(m.subs[channel], ch)
	return ch, func() error { return nil }, nil
}

func TestBridgePropagatesBetweenPeers(t *testing.T) {
	transport := newMemoryTransport()
	logg := logger.New(logger.Options{ServiceName: "test"})

	hubA := newTestHub(t, nil)
	hubB := newTestHub(t, nil)

	bridgeA, err := NewBridge(hubA, transport, "role_changes", logg)
	if err != nil {
		t.Fatalf("new bridge A: %v", err)
	}
	bridgeB, err := NewBridge(hubB, transport, "role_changes", logg)
	if err != nil {
		t.Fatalf("new bridge B: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridgeA.Run(ctx) }()
	go func() { _ = bridgeB.Run(ctx) }()

	// Give both subscriptions a moment to register.
	time.Sleep(10 * time.Millisecond)

	chB, cancelB := hubB.Subscribe()
	defer cancelB()

	revBefore := hubB.Revision()
	ev := hubA.UpdateRole(ctx, "staff@minimart.test", "store-1", "store_admin")
	if err := bridgeA.Broadcast(ctx, ev); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	got := waitForEvent(t, chB)
	if got.Role != "store_admin" {
		t.Fatalf("peer observed wrong role %q", got.Role)
	}
	if got.Origin != OriginPeer {
		t.Fatalf("expected peer origin, got %q", got.Origin)
	}
	if hubB.Revision() <= revBefore {
		t.Fatal("peer revision counter must increase")
	}
}

func TestBridgeIgnoresOwnMessages(t *testing.T) {
	transport := newMemoryTransport()
	logg := logger.New(logger.Options{ServiceName: "test"})

	hub := newTestHub(t, nil)
	bridge, err := NewBridge(hub, transport, "role_changes", logg)
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)

	ch, cancelSub := hub.Subscribe()
	defer cancelSub()

	ev := hub.UpdateRole(ctx, "staff@minimart.test", "store-1", "store_admin")
	// Drain the local delivery from UpdateRole itself.
	waitForEvent(t, ch)

	if err := bridge.Broadcast(ctx, ev); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	select {
	case got := <-ch:
		t.Fatalf("own broadcast must not loop back, got %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
