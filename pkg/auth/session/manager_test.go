package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	values map[string]string
}

var errNil = errors.New("nil value")

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errNil
	}
	return v, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeStore) IsNil(err error) bool { return errors.Is(err, errNil) }

type fakeKeyer struct{}

func (fakeKeyer) AccessSessionKey(accessID string) string { return "session:" + accessID }

func newTestManager(store *fakeStore) *Manager {
	return &Manager{store: store, keyer: fakeKeyer{}, ttl: time.Hour}
}

func TestGenerateAndHasSession(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	token, err := mgr.Generate(ctx, "jti-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty refresh token")
	}

	ok, err := mgr.HasSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("has session failed: %v", err)
	}
	if !ok {
		t.Fatal("expected session to exist")
	}

	ok, err = mgr.HasSession(ctx, "jti-missing")
	if err != nil {
		t.Fatalf("has session failed: %v", err)
	}
	if ok {
		t.Fatal("expected no session for unknown access id")
	}
}

func TestRotate(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	oldToken, err := mgr.Generate(ctx, "jti-old")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	newToken, err := mgr.Rotate(ctx, "jti-old", oldToken, "jti-new")
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if newToken == oldToken {
		t.Fatal("expected a fresh token after rotation")
	}

	if ok, _ := mgr.HasSession(ctx, "jti-old"); ok {
		t.Fatal("old session should be revoked after rotation")
	}
	if ok, _ := mgr.HasSession(ctx, "jti-new"); !ok {
		t.Fatal("new session should exist after rotation")
	}
}

func TestRotateRejectsMismatchedToken(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	if _, err := mgr.Generate(ctx, "jti-old"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := mgr.Rotate(ctx, "jti-old", "wrong-token", "jti-new"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := mgr.Rotate(ctx, "jti-unknown", "any", "jti-new"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for missing session, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store)
	ctx := context.Background()

	if _, err := mgr.Generate(ctx, "jti-1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := mgr.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := mgr.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("second revoke should succeed: %v", err)
	}
}
