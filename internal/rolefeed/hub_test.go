package rolefeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

type fakeRecords struct {
	records map[string]*session.Record
}

func (f *fakeRecords) Load(_ context.Context, callerKey string) (*session.Record, error) {
	record, ok := f.records[callerKey]
	if !ok {
		return nil, session.ErrRecordNotFound
	}
	cpy := *record
	return &cpy, nil
}

func newTestHub(t *testing.T, records *fakeRecords) *Hub {
	t.Helper()
	if records == nil {
		records = &fakeRecords{records: map[string]*session.Record{}}
	}
	hub, err := NewHub(records, logger.New(logger.Options{ServiceName: "test"}), nil)
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	return hub
}

func waitForEvent(t *testing.T, ch <-chan RoleChanged) RoleChanged {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for role event")
		return RoleChanged{}
	}
}

func TestHubUpdateRoleBumpsRevisionAndDelivers(t *testing.T) {
	hub := newTestHub(t, nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	before := hub.Revision()
	ev := hub.UpdateRole(context.Background(), "staff@minimart.test", "store-1", "store_admin")
	if ev.Revision <= before {
		t.Fatalf("expected revision to increase, got %d -> %d", before, ev.Revision)
	}

	got := waitForEvent(t, ch)
	if got.Role != "store_admin" || got.Origin != OriginLocal {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestHubApplyKeepsRevisionMonotonic(t *testing.T) {
	hub := newTestHub(t, nil)

	hub.UpdateRole(context.Background(), "a@minimart.test", "store-1", "store_admin")
	hub.Apply(context.Background(), RoleChanged{Email: "a@minimart.test", Role: "sales_person", Revision: 10, Origin: OriginPeer})
	if got := hub.Revision(); got != 10 {
		t.Fatalf("expected revision to adopt peer value 10, got %d", got)
	}

	hub.Apply(context.Background(), RoleChanged{Email: "a@minimart.test", Role: "store_admin", Revision: 3, Origin: OriginPeer})
	if got := hub.Revision(); got != 11 {
		t.Fatalf("expected stale peer revision to still advance locally, got %d", got)
	}
}

func TestHubRefreshForcesRevisionBump(t *testing.T) {
	records := &fakeRecords{records: map[string]*session.Record{
		"staff@minimart.test": {
			UserEmail: "staff@minimart.test",
			UserID:    "user-1",
			UserRole:  "sales_person",
			StoreID:   "store-1",
		},
	}}
	hub := newTestHub(t, records)
	ch, cancel := hub.Subscribe()
	defer cancel()

	before := hub.Revision()
	ev, err := hub.Refresh(context.Background(), "staff@minimart.test")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if ev.Revision <= before {
		t.Fatal("refresh must bump the revision even for an unchanged role")
	}
	if got := waitForEvent(t, ch); got.Role != "sales_person" {
		t.Fatalf("unexpected refreshed role %q", got.Role)
	}
}

func TestHubRefreshMissingRecord(t *testing.T) {
	hub := newTestHub(t, nil)
	if _, err := hub.Refresh(context.Background(), "ghost@minimart.test"); !errors.Is(err, session.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub(t, nil)
	ch, cancel := hub.Subscribe()
	cancel()

	hub.UpdateRole(context.Background(), "staff@minimart.test", "store-1", "store_admin")
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
}
