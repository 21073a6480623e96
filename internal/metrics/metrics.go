package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for sync executions and the inbound
// admin HTTP surface.
type Collector struct {
	registry        *prometheus.Registry
	syncTotal       *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	recordsSynced   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	syncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncengine",
		Subsystem: "sync",
		Name:      "total",
		Help:      "Total number of sync attempts per connector and outcome.",
	}, []string{"connector", "status"})

	syncDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "syncengine",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of sync attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"connector"})

	recordsSynced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncengine",
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Records inserted per connector.",
	}, []string{"connector"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "syncengine",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncengine",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	for _, c := range []prometheus.Collector{syncTotal, syncDuration, recordsSynced, requestDuration, requestTotal} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		syncTotal:       syncTotal,
		syncDuration:    syncDuration,
		recordsSynced:   recordsSynced,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// ObserveSync records the outcome of one sync attempt.
func (c *Collector) ObserveSync(connector, status string, duration time.Duration, recordsInserted int) {
	c.syncTotal.WithLabelValues(connector, status).Inc()
	c.syncDuration.WithLabelValues(connector).Observe(duration.Seconds())
	c.recordsSynced.WithLabelValues(connector).Add(float64(recordsInserted))
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
