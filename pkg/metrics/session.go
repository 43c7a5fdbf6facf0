package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics records reconciler and role feed activity.
type SessionMetrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileOutcome  *prometheus.CounterVec
	roleEvents        *prometheus.CounterVec
}

// NewSessionMetrics registers the session metrics on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_reconcile_duration_seconds",
		Help:    "Duration of session reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_reconcile_outcome",
		Help: "Session reconciliation outcomes by resolving source.",
	}, []string{"source", "outcome"})
	roleEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "role_feed_events",
		Help: "Role feed events processed by origin.",
	}, []string{"origin"})
	reg.MustRegister(duration, outcome, roleEvents)
	return &SessionMetrics{
		reconcileDuration: duration,
		reconcileOutcome:  outcome,
		roleEvents:        roleEvents,
	}
}

// ObserveReconcile records the duration for a reconcile pass resolved by the
// named source.
func (s *SessionMetrics) ObserveReconcile(source string, duration time.Duration) {
	if s == nil || s.reconcileDuration == nil {
		return
	}
	s.reconcileDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncReconcileOutcome increments the outcome counter for the named source.
func (s *SessionMetrics) IncReconcileOutcome(source, outcome string) {
	if s == nil || s.reconcileOutcome == nil {
		return
	}
	s.reconcileOutcome.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncRoleEvent increments the role feed counter for the named origin.
func (s *SessionMetrics) IncRoleEvent(origin string) {
	if s == nil || s.roleEvents == nil {
		return
	}
	s.roleEvents.WithLabelValues(normalizeLabel(origin)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
