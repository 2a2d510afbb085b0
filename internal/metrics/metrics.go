// Package metrics exposes Prometheus counters for authorization, replication
// and sweep outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the tracker's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	AuthzDecisions   *prometheus.CounterVec
	Replications     *prometheus.CounterVec
	SweepRuns        prometheus.Counter
	SweepProcessed   prometheus.Counter
	SweepCreated     prometheus.Counter
	SweepDurationSec prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasktracker",
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by gate and result.",
		}, []string{"gate", "result"}),
		Replications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasktracker",
			Name:      "replications_total",
			Help:      "Recurrence replication attempts by outcome.",
		}, []string{"outcome"}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasktracker",
			Name:      "sweep_runs_total",
			Help:      "Completed sweep passes.",
		}),
		SweepProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasktracker",
			Name:      "sweep_processed_total",
			Help:      "Tasks examined by the sweep.",
		}),
		SweepCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasktracker",
			Name:      "sweep_created_total",
			Help:      "Occurrences created by the sweep.",
		}),
		SweepDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tasktracker",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AuthzDecisions, m.Replications, m.SweepRuns, m.SweepProcessed, m.SweepCreated, m.SweepDurationSec)
	}
	return m
}

func (m *Metrics) Authz(gate string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.AuthzDecisions.WithLabelValues(gate, result).Inc()
}

func (m *Metrics) Replication(outcome string) {
	if m == nil {
		return
	}
	m.Replications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Sweep(processed, created int, seconds float64) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepProcessed.Add(float64(processed))
	m.SweepCreated.Add(float64(created))
	m.SweepDurationSec.Observe(seconds)
}
