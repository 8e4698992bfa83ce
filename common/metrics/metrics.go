// Package metrics provides Prometheus metrics for the explorer.
// All Record* methods are no-ops on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tag mutation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeRollback = "rollback"
)

// Metrics holds all Prometheus metrics for the explorer
type Metrics struct {
	registry *prometheus.Registry

	// Record loading
	RecordsLoaded prometheus.Gauge
	LoadDuration  prometheus.Histogram
	LoadFailures  prometheus.Counter

	// Tags
	TagMutationsTotal *prometheus.CounterVec
	TagEventsTotal    *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Realtime
	WebsocketConnections prometheus.Gauge
}

// New creates a private registry and registers all metrics on it
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.RecordsLoaded = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_records_loaded",
			Help: "Number of records in the last successful load",
		},
	)

	m.LoadDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "explorer_load_duration_seconds",
			Help:    "Duration of full record loads in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.LoadFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_load_failures_total",
			Help: "Total number of aborted record loads",
		},
	)

	m.TagMutationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_tag_mutations_total",
			Help: "Total number of tag add/remove attempts by outcome",
		},
		[]string{"op", "outcome"},
	)

	m.TagEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_tag_events_total",
			Help: "Total number of tag change events received",
		},
		[]string{"type"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.WebsocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_websocket_connections",
			Help: "Number of open tag websocket connections",
		},
	)

	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordLoad records a full record load
func (m *Metrics) RecordLoad(count int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(duration.Seconds())
	if err != nil {
		m.LoadFailures.Inc()
		return
	}
	m.RecordsLoaded.Set(float64(count))
}

// RecordTagMutation records the outcome of one add or remove
func (m *Metrics) RecordTagMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.TagMutationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordTagEvent records a received tag change event
func (m *Metrics) RecordTagEvent(eventType string) {
	if m == nil {
		return
	}
	m.TagEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// WebsocketOpened increments the open connection gauge
func (m *Metrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Inc()
}

// WebsocketClosed decrements the open connection gauge
func (m *Metrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.WebsocketConnections.Dec()
}
