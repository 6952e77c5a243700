package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "attendance"

// Metrics groups the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	evaluations         *prometheus.CounterVec
	registrations       *prometheus.CounterVec
	rejections          *prometheus.CounterVec
	absencesRecorded    prometheus.Counter
	reconcilerConflicts prometheus.Counter
	tickDuration        prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Eligibility evaluations by resulting state.",
		}, []string{"state"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Persisted check-ins and check-outs.",
		}, []string{"type", "classification"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Refused registrations by reason.",
		}, []string{"reason"}),
		absencesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "absences_recorded_total",
			Help:      "Synthetic falta check-outs written by the reconciler.",
		}),
		reconcilerConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_conflicts_total",
			Help:      "Reconciler inserts that found the record already present.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciler_tick_duration_seconds",
			Help:      "Duration of reconciler ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.evaluations,
		m.registrations,
		m.rejections,
		m.absencesRecorded,
		m.reconcilerConflicts,
		m.tickDuration,
	)
	return m
}

func (m *Metrics) Evaluated(state string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(state).Inc()
}

func (m *Metrics) Registered(actionType, classification string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(actionType, classification).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) AbsenceRecorded() {
	if m == nil {
		return
	}
	m.absencesRecorded.Inc()
}

func (m *Metrics) ReconcilerConflict() {
	if m == nil {
		return
	}
	m.reconcilerConflicts.Inc()
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}
