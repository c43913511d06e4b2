// Package monitoring collects Prometheus metrics for the supervision core.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionsImported  prometheus.Counter

	// Output metrics
	OutputReads  prometheus.Counter
	StreamTicks  prometheus.Counter
	StreamDeltas prometheus.Counter

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers the metrics collector. Call it once per
// process; promauto registers with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccanywhere_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ccanywhere_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ccanywhere_sessions_active",
				Help: "Number of live sessions",
			},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDestroyed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_sessions_destroyed_total",
				Help: "Total number of sessions destroyed",
			},
		),
		SessionsImported: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_sessions_imported_total",
				Help: "Total number of panes imported as sessions",
			},
		),

		OutputReads: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_output_reads_total",
				Help: "Total number of output captures",
			},
		),
		StreamTicks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_stream_ticks_total",
				Help: "Total number of stream poll ticks",
			},
		),
		StreamDeltas: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccanywhere_stream_deltas_total",
				Help: "Total number of stream deltas delivered",
			},
		),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccanywhere_events_published_total",
				Help: "Total number of hook events published",
			},
			[]string{"type"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ccanywhere_ws_connections",
				Help: "Number of open websocket stream connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ccanywhere_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
