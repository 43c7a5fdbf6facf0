package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/metrics"
)

// Source names the tier that resolved the caller.
type Source string

const (
	SourceAuth    Source = "auth"
	SourceDurable Source = "durable"
	SourceCache   Source = "cache"
	SourceNone    Source = "none"
)

// Resolution is the reconciler's answer: is the caller authenticated, who
// are they, and which tier said so.
type Resolution struct {
	Authenticated bool
	Source        Source
	Record        *Record
}

type directory interface {
	MembershipExists(ctx context.Context, email string) (bool, error)
}

// ReconcilerParams collects the reconciler's dependencies.
type ReconcilerParams struct {
	Cache     Store
	Durable   Store
	Directory directory
	Logger    *logger.Logger
	Metrics   *metrics.SessionMetrics
}

// Reconciler walks the session tiers in priority order: live auth session,
// then the durable record, then the fast cache. A durable hit repairs the
// fast cache on the way through. Every restored record is verified against
// the staff directory; a missing membership tears both tiers down.
type Reconciler struct {
	cache     Store
	durable   Store
	directory directory
	logg      *logger.Logger
	metrics   *metrics.SessionMetrics
}

// NewReconciler validates dependencies and builds a Reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if params.Durable == nil {
		return nil, fmt.Errorf("durable store required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("staff directory required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reconciler{
		cache:     params.Cache,
		durable:   params.Durable,
		directory: params.Directory,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Reconcile resolves the caller. A non-nil live record means the caller holds
// a verified live auth session and wins outright. Otherwise callerKey selects
// the stored record to restore. The unauthenticated outcome is a valid
// resolution, not an error; the error return covers store failures only.
func (r *Reconciler) Reconcile(ctx context.Context, live *Record, callerKey string) (*Resolution, error) {
	started := time.Now()
	res, err := r.reconcile(ctx, live, callerKey)
	if err == nil {
		r.metrics.ObserveReconcile(string(res.Source), time.Since(started))
		outcome := "signed_out"
		if res.Authenticated {
			outcome = "resolved"
		}
		r.metrics.IncReconcileOutcome(string(res.Source), outcome)
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, live *Record, callerKey string) (*Resolution, error) {
	if live.Complete() {
		return &Resolution{Authenticated: true, Source: SourceAuth, Record: live}, nil
	}

	if callerKey == "" {
		return unauthenticated(), nil
	}

	record, err := r.loadFrom(ctx, r.durable, callerKey, SourceDurable)
	if err != nil {
		return nil, err
	}
	if record.Complete() {
		// Repair the fast tier before verifying; a verification failure
		// tears both tiers down anyway.
		if err := r.cache.Save(ctx, record); err != nil {
			r.logg.Error(ctx, "failed to hydrate session cache", err)
		}
		return r.verify(ctx, record, SourceDurable)
	}

	record, err = r.loadFrom(ctx, r.cache, callerKey, SourceCache)
	if err != nil {
		return nil, err
	}
	if record.Complete() {
		return r.verify(ctx, record, SourceCache)
	}

	return unauthenticated(), nil
}

func (r *Reconciler) loadFrom(ctx context.Context, store Store, callerKey string, source Source) (*Record, error) {
	record, err := store.Load(ctx, callerKey)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading %s session record: %w", source, err)
	}
	return record, nil
}

// verify checks the restored membership still exists. A definitive miss
// tears down both tiers; a directory error resolves unauthenticated without
// teardown (fail closed, state left for the next attempt).
func (r *Reconciler) verify(ctx context.Context, record *Record, source Source) (*Resolution, error) {
	exists, err := r.directory.MembershipExists(ctx, record.UserEmail)
	if err != nil {
		r.logg.Error(ctx, "session membership check failed", err)
		return unauthenticated(), nil
	}
	if !exists {
		if err := r.Teardown(ctx, record.Key()); err != nil {
			r.logg.Error(ctx, "session teardown failed", err)
		}
		return unauthenticated(), nil
	}
	return &Resolution{Authenticated: true, Source: source, Record: record}, nil
}

// Teardown erases the caller's record from both tiers. Errors from the two
// stores are combined so a partial failure is still visible.
func (r *Reconciler) Teardown(ctx context.Context, callerKey string) error {
	var combined error
	if err := r.cache.Clear(ctx, callerKey); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("clearing session cache: %w", err))
	}
	if err := r.durable.Clear(ctx, callerKey); err != nil {
		combined = multierr.Append(combined, fmt.Errorf("clearing durable session record: %w", err))
	}
	return combined
}

func unauthenticated() *Resolution {
	return &Resolution{Authenticated: false, Source: SourceNone}
}
