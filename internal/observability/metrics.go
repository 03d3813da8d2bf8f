package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "employee_service"

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	employeeEvents  *prometheus.CounterVec
	dbPool          *prometheus.GaugeVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route", "status_code"},
		),
		errorCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Error responses by error code",
			},
			[]string{"method", "route", "code"},
		),
		authFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "rejections_total",
				Help:      "Access control rejections by reason",
			},
			[]string{"reason"},
		),
		employeeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "employees",
				Name:      "events_total",
				Help:      "Committed employee mutations by event type",
			},
			[]string{"type"},
		),
		dbPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "pool_connections",
				Help:      "Number of database connections by state",
			},
			[]string{"state"},
		),
	}
}

// RecordRequest observes a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, route, code).Inc()
}

// RecordAuthFailure counts a gate rejection.
func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

// RecordEmployeeEvent counts a committed employee mutation.
func (m *Metrics) RecordEmployeeEvent(eventType string) {
	if m == nil {
		return
	}
	m.employeeEvents.WithLabelValues(eventType).Inc()
}

// RecordDBPool updates database pool gauges.
func (m *Metrics) RecordDBPool(pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	stats := pool.Stat()
	m.dbPool.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	m.dbPool.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	m.dbPool.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
