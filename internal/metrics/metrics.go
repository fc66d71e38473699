package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Default histogram buckets for operation duration (in milliseconds)
var defaultBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}

// Metrics wraps the prometheus collectors for cache operations
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	keysTotal         *prometheus.CounterVec
	startedAt         time.Time
}

// New creates a Metrics instance with its own registry
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry:  registry,
		startedAt: time.Now(),

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of cache operations by result",
			},
			[]string{"op", "result"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_milliseconds",
				Help:      "Duration of cache operations in milliseconds",
				Buckets:   defaultBuckets,
			},
			[]string{"op"},
		),

		keysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keys_total",
				Help:      "Total number of keys touched by cache operations",
			},
			[]string{"op"},
		),
	}

	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the metrics were created",
		},
		func() float64 { return time.Since(m.startedAt).Seconds() },
	)

	registry.MustRegister(m.operationsTotal, m.operationDuration, m.keysTotal, uptime)
	return m
}

// RegisterPending exposes the size of a deferred write buffer as a gauge.
func (m *Metrics) RegisterPending(namespace string, pending func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deferred_pending",
			Help:      "Items waiting in the deferred write buffer",
		},
		func() float64 { return float64(pending()) },
	))
}

// Observe records one operation touching n keys.
func (m *Metrics) Observe(op, result string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(float64(d.Microseconds()) / 1000)
	if n > 0 {
		m.keysTotal.WithLabelValues(op).Add(float64(n))
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
