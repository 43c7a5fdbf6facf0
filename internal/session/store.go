package session

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by stores when no record exists for the key.
var ErrRecordNotFound = errors.New("session record not found")

// Store is a keyed session record store. Both the fast cache and the durable
// fallback implement it so the reconciler can walk them in priority order.
type Store interface {
	Load(ctx context.Context, callerKey string) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Clear(ctx context.Context, callerKey string) error
}
