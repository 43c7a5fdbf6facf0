package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minimartapp/minimart-backend/pkg/redis"
)

type cacheBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IsNil(err error) bool
}

type cacheKeyer interface {
	SessionRecordKey(callerKey string) string
}

// CacheStore keeps session records in Redis. It is the fast tier; entries
// here can be evicted at any time and are repaired from the durable tier.
type CacheStore struct {
	backend cacheBackend
	keyer   cacheKeyer
	ttl     time.Duration
}

// NewCacheStore wires a CacheStore against the redis client. A zero TTL keeps
// records until logout or eviction.
func NewCacheStore(client *redis.Client, ttl time.Duration) (*CacheStore, error) {
	if client == nil {
		return nil, fmt.Errorf("cache store requires a redis client")
	}
	return &CacheStore{backend: client, keyer: client, ttl: ttl}, nil
}

// Load retrieves the record for the caller key.
func (s *CacheStore) Load(ctx context.Context, callerKey string) (*Record, error) {
	raw, err := s.backend.Get(ctx, s.keyer.SessionRecordKey(callerKey))
	if err != nil {
		if s.backend.IsNil(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decoding session record: %w", err)
	}
	return &record, nil
}

// Save stores the record under its caller key.
func (s *CacheStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}
	return s.backend.Set(ctx, s.keyer.SessionRecordKey(record.Key()), string(raw), s.ttl)
}

// Clear removes the record for the caller key. Clearing a missing key is not
// an error.
func (s *CacheStore) Clear(ctx context.Context, callerKey string) error {
	return s.backend.Del(ctx, s.keyer.SessionRecordKey(callerKey))
}
