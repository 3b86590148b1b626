package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds catalog loading instruments. A nil *Metrics records nothing.
type Metrics struct {
	fallbacks prometheus.Counter
	records   *prometheus.GaugeVec
}

// NewMetrics registers the catalog metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "catalog",
			Name:      "fallbacks_total",
			Help:      "Number of times the curated candidate set replaced the configured datasets.",
		}),
		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bclegal",
			Subsystem: "catalog",
			Name:      "records",
			Help:      "Loaded candidate records by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) fellBack() {
	if m != nil {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) loaded(c *Catalog) {
	if m != nil {
		m.records.WithLabelValues("lawyer").Set(float64(len(c.Lawyers)))
		m.records.WithLabelValues("resource").Set(float64(len(c.Resources)))
	}
}
