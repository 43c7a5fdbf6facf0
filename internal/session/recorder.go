package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Recorder owns the write side of the session tiers. Records are created at
// sign-in, have their role refreshed on role change, and are destroyed at
// logout; the reconciler never writes the durable tier itself.
type Recorder struct {
	cache   Store
	durable Store
}

// NewRecorder validates dependencies and builds a Recorder.
func NewRecorder(cache, durable Store) (*Recorder, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if durable == nil {
		return nil, fmt.Errorf("durable store required")
	}
	return &Recorder{cache: cache, durable: durable}, nil
}

// SignIn writes the record to both tiers.
func (w *Recorder) SignIn(ctx context.Context, record *Record) error {
	if !record.Complete() {
		return fmt.Errorf("record requires user email and user id")
	}
	if err := w.durable.Save(ctx, record); err != nil {
		return fmt.Errorf("saving durable session record: %w", err)
	}
	if err := w.cache.Save(ctx, record); err != nil {
		return fmt.Errorf("saving session cache: %w", err)
	}
	return nil
}

// RefreshRole rewrites the stored role in both tiers. A caller with no
// stored record is left alone; their next sign-in picks up the new role.
func (w *Recorder) RefreshRole(ctx context.Context, callerKey, role string) error {
	record, err := w.durable.Load(ctx, callerKey)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("loading durable session record: %w", err)
	}
	record.UserRole = role
	return w.SignIn(ctx, record)
}

// SignOut erases the record from both tiers, reporting partial failures.
func (w *Recorder) SignOut(ctx context.Context, callerKey string) error {
	var combined error
	if err := w.cache.Clear(ctx, callerKey); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("clearing session cache: %w", err))
	}
	if err := w.durable.Clear(ctx, callerKey); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("clearing durable session record: %w", err))
	}
	return combined
}
