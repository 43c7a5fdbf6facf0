package rolefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/pkg/enums"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

// EventTypeRoleChanged is the staff event attribute value the watcher acts on.
const EventTypeRoleChanged = "staff.role_changed"

// watcherConsumer names this consumer in processed-message markers.
const watcherConsumer = "rolefeed-worker"

type roleRefresher interface {
	RefreshRole(ctx context.Context, callerKey, role string) error
}

type relay interface {
	Broadcast(ctx context.Context, ev RoleChanged) error
}

type dedupeGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, messageID string) (bool, error)
	Delete(ctx context.Context, consumer, messageID string) error
}

// RoleChangedPayload is the staff event body carried on the topic.
type RoleChangedPayload struct {
	StoreID string `json:"store_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// Watcher consumes staff events from the remote subscription and turns role
// changes into feed events: the stored session record is refreshed, the
// local hub notified, and peers relayed to.
type Watcher struct {
	subscription *pubsub.Subscriber
	recorder     roleRefresher
	hub          *Hub
	relay        relay
	guard        dedupeGuard
	logg         *logger.Logger
}

// NewWatcher builds a staff event watcher. The relay and guard are optional;
// without a relay, remote changes reach only this process's hub, and without
// a guard, redeliveries are re-applied (refreshes are idempotent).
func NewWatcher(subscription *pubsub.Subscriber, recorder roleRefresher, hub *Hub, r relay, guard dedupeGuard, logg *logger.Logger) (*Watcher, error) {
	if subscription == nil {
		return nil, fmt.Errorf("staff subscription required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("session recorder required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Watcher{
		subscription: subscription,
		recorder:     recorder,
		hub:          hub,
		relay:        r,
		guard:        guard,
		logg:         logg,
	}, nil
}

// Run starts the watcher loop until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	return w.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := w.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (w *Watcher) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := w.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventTypeRoleChanged {
		w.logg.Info(logCtx, "skipping non-role event")
		return processResult{ack: true}
	}

	var payload RoleChangedPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		w.logg.Error(logCtx, "failed to decode role event", err)
		return processResult{ack: true}
	}
	if payload.Email == "" || !enums.MemberRole(payload.Role).IsValid() {
		w.logg.Warn(logCtx, "discarding malformed role event")
		return processResult{ack: true}
	}

	if w.guard != nil {
		already, err := w.guard.CheckAndMarkProcessed(ctx, watcherConsumer, msg.ID)
		if err != nil {
			w.logg.Error(logCtx, "failed to check processed marker", err)
			return processResult{nack: true}
		}
		if already {
			w.logg.Info(logCtx, "skipping already processed role event")
			return processResult{ack: true}
		}
	}

	logCtx = w.logg.WithFields(logCtx, map[string]any{
		"store_id": payload.StoreID,
		"role":     payload.Role,
	})

	callerKey := session.CallerKey(payload.Email)
	if err := w.recorder.RefreshRole(ctx, callerKey, payload.Role); err != nil {
		w.logg.Error(logCtx, "failed to refresh session record", err)
		if w.guard != nil {
			if derr := w.guard.Delete(ctx, watcherConsumer, msg.ID); derr != nil {
				w.logg.Error(logCtx, "failed to release processed marker", derr)
			}
		}
		return processResult{nack: true}
	}

	ev := RoleChanged{
		Email:      callerKey,
		StoreID:    payload.StoreID,
		Role:       payload.Role,
		Origin:     OriginRemote,
		OccurredAt: time.Now().UTC(),
	}
	w.hub.Apply(ctx, ev)

	if w.relay != nil {
		if err := w.relay.Broadcast(ctx, ev); err != nil {
			w.logg.Error(logCtx, "failed to relay role event", err)
		}
	}

	w.logg.Info(logCtx, "role change propagated")
	return processResult{ack: true}
}
