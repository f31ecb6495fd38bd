// Package metrics exposes the Prometheus collectors the invocation state
// machine and side-effect executor update, grounded on the teacher's use
// of github.com/prometheus/client_golang throughout its runtime package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors the InvocationStateMachine instances it is
// handed update. A nil *Metrics is valid everywhere it is used
// (all methods below are nil-receiver safe), so callers that don't want
// metrics can simply not construct one.
type Metrics struct {
	JournalEntries     prometheus.Gauge
	Suspensions        prometheus.Counter
	RunRetries         prometheus.Counter
	CompletionLatency  prometheus.Histogram
}

// New builds a fresh collector set, registers it on reg when reg is
// non-nil, and returns it. The collectors carry no labels; a caller that
// passes one Metrics to many machines (as transport.Server does for every
// connection it serves) gets process-wide aggregates.
func New(reg prometheus.Registerer) *Metrics {
	var m = &Metrics{
		JournalEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "durable_invocation_journal_entries",
			Help: "Current number of entries in the invocation's journal.",
		}),
		Suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "durable_invocation_suspensions_total",
			Help: "Number of times this invocation emitted a Suspension frame.",
		}),
		RunRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "durable_invocation_run_retries_total",
			Help: "Number of local retry attempts made by the side-effect executor.",
		}),
		CompletionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "durable_invocation_completion_latency_seconds",
			Help:    "Time between a command entry's emission and its completion's arrival.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.JournalEntries, m.Suspensions, m.RunRetries, m.CompletionLatency)
	}
	return m
}

func (m *Metrics) SetJournalEntries(n int) {
	if m == nil {
		return
	}
	m.JournalEntries.Set(float64(n))
}

func (m *Metrics) IncSuspensions() {
	if m == nil {
		return
	}
	m.Suspensions.Inc()
}

func (m *Metrics) IncRunRetries() {
	if m == nil {
		return
	}
	m.RunRetries.Inc()
}

func (m *Metrics) ObserveCompletionLatencySeconds(s float64) {
	if m == nil {
		return
	}
	m.CompletionLatency.Observe(s)
}
