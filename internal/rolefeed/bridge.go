package rolefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/minimartapp/minimart-backend/pkg/logger"
)

// Transport carries role events between peer processes sharing the same
// channel. The Redis implementation backs production; tests swap in an
// in-memory one to simulate two peers.
type Transport interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error, error)
}

type envelope struct {
	PeerID string      `json:"peer_id"`
	Event  RoleChanged `json:"event"`
}

// Bridge relays role events between this process's hub and its peers. Each
// bridge tags outgoing events with its peer id and ignores its own messages
// coming back, so relaying never loops.
type Bridge struct {
	hub       *Hub
	transport Transport
	channel   string
	peerID    string
	logg      *logger.Logger
}

// NewBridge builds a bridge over the given transport channel.
func NewBridge(hub *Hub, transport Transport, channel string, logg *logger.Logger) (*Bridge, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Bridge{
		hub:       hub,
		transport: transport,
		channel:   channel,
		peerID:    uuid.NewString(),
		logg:      logg,
	}, nil
}

// Broadcast relays a locally produced event to peer processes.
func (b *Bridge) Broadcast(ctx context.Context, ev RoleChanged) error {
	raw, err := json.Marshal(envelope{PeerID: b.peerID, Event: ev})
	if err != nil {
		return fmt.Errorf("encoding role event: %w", err)
	}
	if err := b.transport.Publish(ctx, b.channel, string(raw)); err != nil {
		return fmt.Errorf("publishing role event: %w", err)
	}
	return nil
}

// Run consumes peer events until the context is canceled. Malformed messages
// are logged and skipped; the loop only stops when the subscription closes.
func (b *Bridge) Run(ctx context.Context) error {
	messages, stop, err := b.transport.Subscribe(ctx, b.channel)
	if err != nil {
		return fmt.Errorf("subscribing to role channel: %w", err)
	}
	defer func() {
		if err := stop(); err != nil {
			b.logg.Error(ctx, "closing role channel subscription", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(ctx, raw)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logg.Error(ctx, "failed to decode role event", err)
		return
	}
	if env.PeerID == b.peerID {
		return
	}
	ev := env.Event
	ev.Origin = OriginPeer
	b.hub.Apply(ctx, ev)
}
