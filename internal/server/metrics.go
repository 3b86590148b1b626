package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by route pattern rather than raw path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// Tests inject a fresh prometheus.Registry through Config.MetricsRegistry.
type serverMetrics struct {
	// reportRequestsTotal counts completed /api/report streams by outcome:
	// "ok", "timeout", or "error".
	reportRequestsTotal *prometheus.CounterVec

	// reportDurationSeconds records report stream duration by outcome.
	reportDurationSeconds *prometheus.HistogramVec

	// reportActiveStreams is the number of report streams currently open.
	reportActiveStreams prometheus.Gauge

	// retrieveFragments records how many fragments each /api/retrieve returned.
	retrieveFragments prometheus.Histogram

	// recommendationsTotal counts /api/recommendations responses by result:
	// "ok" or "unavailable".
	recommendationsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all requests by method, route, and status.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all requests.
	httpDurationSeconds *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		reportRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "report",
			Name:      "requests_total",
			Help:      "Total number of /api/report streams completed, partitioned by outcome.",
		}, []string{"outcome"}),

		reportDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bclegal",
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/report streams.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 180},
		}, []string{"outcome"}),

		reportActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bclegal",
			Subsystem: "report",
			Name:      "active_streams",
			Help:      "Number of /api/report SSE streams currently open.",
		}),

		retrieveFragments: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bclegal",
			Subsystem: "retrieve",
			Name:      "fragments",
			Help:      "Number of fragments returned per /api/retrieve call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),

		recommendationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "recommend",
			Name:      "requests_total",
			Help:      "Total number of recommendation responses, partitioned by result.",
		}, []string{"result"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bclegal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bclegal",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument records request count and latency for every request. The
// handler label is the matched ServeMux pattern, so path parameters and
// unknown paths do not explode cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
