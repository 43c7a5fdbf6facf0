package idempotency

import (
	"context"
	"errors"
	"time"
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ProcessedEventKey(consumer, messageID string) string
}

// Manager tracks processed message IDs per consumer using redis SETNX with a
// TTL, so a redelivered message is handled exactly once per window.
type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks messages as processed
// for the given TTL.
func NewManager(s store, ttl time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// CheckAndMarkProcessed returns true if the message has already been
// processed and otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, messageID string) (bool, error) {
	key, err := m.processedKey(consumer, messageID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete clears the processed marker, releasing the message for a retry.
func (m *Manager) Delete(ctx context.Context, consumer, messageID string) error {
	key, err := m.processedKey(consumer, messageID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(consumer, messageID string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if messageID == "" {
		return "", errors.New("message id is required")
	}
	return m.store.ProcessedEventKey(consumer, messageID), nil
}
