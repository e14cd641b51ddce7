// Package metrics provides optional Prometheus instrumentation for rulefold
// evaluations.
//
// The engine itself never records telemetry; hosts that want it wrap their
// evaluation calls with [Record]. All collectors live in a custom
// [prometheus.Registry] (not the global default) so that only rulefold
// metrics appear on the handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rulefold/rulefold"
)

// Metrics holds all Prometheus collectors for rulefold instrumentation.
type Metrics struct {
	Registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	SafetyDecisions    *prometheus.CounterVec
}

// New creates and registers all rulefold metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rulefold_evaluations_total",
			Help: "Total number of rule evaluations by outcome.",
		}, []string{"outcome"}),

		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rulefold_evaluation_duration_seconds",
			Help:    "Rule evaluation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),

		SafetyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rulefold_safety_decisions_total",
			Help: "Total number of rollout safety decisions by action.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.SafetyDecisions,
	)

	return m
}

// Handler returns an [http.Handler] that serves the registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordDecision increments the safety decision counter for an action.
func (m *Metrics) RecordDecision(action string) {
	m.SafetyDecisions.WithLabelValues(action).Inc()
}

// Record observes one evaluation result and its duration. Successes count
// under the "ok" outcome; failures count under their failure kind.
func Record[T any](m *Metrics, res rulefold.Result[T], elapsed time.Duration) {
	outcome := "ok"
	if !res.OK {
		outcome = string(res.Reason.Kind)
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	m.EvaluationDuration.Observe(elapsed.Seconds())
}
