package rolefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/metrics"
)

type recordReader interface {
	Load(ctx context.Context, callerKey string) (*session.Record, error)
}

// Hub is the in-process side of the role feed. Subscribers get every role
// change regardless of which path it arrived on; a monotonic revision
// counter lets views detect that something changed even when the value is
// re-read rather than delivered.
type Hub struct {
	mu       sync.RWMutex
	subs     map[uint64]chan RoleChanged
	nextSub  uint64
	revision atomic.Uint64

	records recordReader
	logg    *logger.Logger
	metrics *metrics.SessionMetrics
}

// NewHub builds a hub reading current roles from the provided record store.
func NewHub(records recordReader, logg *logger.Logger, m *metrics.SessionMetrics) (*Hub, error) {
	if records == nil {
		return nil, fmt.Errorf("record reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Hub{
		subs:    map[uint64]chan RoleChanged{},
		records: records,
		logg:    logg,
		metrics: m,
	}, nil
}

// Revision returns the current revision counter value.
func (h *Hub) Revision() uint64 {
	return h.revision.Load()
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; events are dropped for slow listeners rather
// than blocking the feed.
func (h *Hub) Subscribe() (<-chan RoleChanged, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan RoleChanged, 8)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// UpdateRole is the local propagation path: this process changed a role
// itself. The returned event carries the new revision so the caller can
// relay it to peers.
func (h *Hub) UpdateRole(ctx context.Context, email, storeID, role string) RoleChanged {
	ev := RoleChanged{
		Email:      email,
		StoreID:    storeID,
		Role:       role,
		Revision:   h.revision.Add(1),
		Origin:     OriginLocal,
		OccurredAt: time.Now().UTC(),
	}
	h.deliver(ctx, ev)
	return ev
}

// Apply ingests an event that arrived from a peer process or a remote edit.
// The hub's own revision advances past the event's so revisions stay
// monotonic for local readers.
func (h *Hub) Apply(ctx context.Context, ev RoleChanged) {
	for {
		current := h.revision.Load()
		next := current + 1
		if ev.Revision > next {
			next = ev.Revision
		}
		if h.revision.CompareAndSwap(current, next) {
			ev.Revision = next
			break
		}
	}
	h.deliver(ctx, ev)
}

// Refresh is the manual entry point: re-read the stored role and force a
// revision bump even when the value is unchanged, so views re-render after
// becoming visible again.
func (h *Hub) Refresh(ctx context.Context, callerKey string) (RoleChanged, error) {
	record, err := h.records.Load(ctx, callerKey)
	if err != nil {
		if errors.Is(err, session.ErrRecordNotFound) {
			return RoleChanged{}, session.ErrRecordNotFound
		}
		return RoleChanged{}, fmt.Errorf("loading session record: %w", err)
	}

	ev := RoleChanged{
		Email:      record.UserEmail,
		StoreID:    record.StoreID,
		Role:       record.UserRole,
		Revision:   h.revision.Add(1),
		Origin:     OriginLocal,
		OccurredAt: time.Now().UTC(),
	}
	h.deliver(ctx, ev)
	return ev, nil
}

func (h *Hub) deliver(ctx context.Context, ev RoleChanged) {
	h.metrics.IncRoleEvent(string(ev.Origin))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub <- ev:
		default:
			h.logg.Warn(ctx, "dropping role event for slow subscriber")
		}
	}
}
