package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments owned by the orchestrator.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// state is the current orchestrator State as a number.
	state prometheus.Gauge

	// degradations counts transitions into the curated fallback path.
	degradations prometheus.Counter

	// fetchFailures counts individual source fetches that failed.
	fetchFailures prometheus.Counter

	// initDuration records how long Initialize took to reach a terminal state.
	initDuration prometheus.Histogram

	// queryFailures counts Retrieve calls that degraded to an empty result,
	// partitioned by reason: "embed" or "search".
	queryFailures *prometheus.CounterVec
}

// NewMetrics registers the orchestrator metrics against reg. promauto.With
// keeps registration scoped to reg so tests can pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bclegal",
			Subsystem: "rag",
			Name:      "state",
			Help:      "Retrieval orchestrator state: 0 uninitialized, 1 initializing, 2 ready, 3 degraded.",
		}),

		degradations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "rag",
			Name:      "degradations_total",
			Help:      "Number of times retrieval fell back to the curated document set.",
		}),

		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "rag",
			Name:      "fetch_failures_total",
			Help:      "Number of document sources that failed to fetch.",
		}),

		initDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bclegal",
			Subsystem: "rag",
			Name:      "initialize_duration_seconds",
			Help:      "Wall-clock duration of orchestrator initialization.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		queryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "rag",
			Name:      "query_failures_total",
			Help:      "Retrieve calls that returned no fragments because of an upstream failure.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) setState(s State) {
	if m != nil {
		m.state.Set(float64(s))
	}
}

func (m *Metrics) degraded() {
	if m != nil {
		m.degradations.Inc()
	}
}

func (m *Metrics) fetchFailed() {
	if m != nil {
		m.fetchFailures.Inc()
	}
}

func (m *Metrics) observeInit(seconds float64) {
	if m != nil {
		m.initDuration.Observe(seconds)
	}
}

func (m *Metrics) queryFailed(reason string) {
	if m != nil {
		m.queryFailures.WithLabelValues(reason).Inc()
	}
}
