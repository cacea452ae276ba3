// Package metrics defines the Prometheus metric collectors used by the
// scanner, the scan service and its HTTP middleware, and exposes an HTTP
// handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for textmatcher.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ScansTotal           *prometheus.CounterVec
	ScanLatency          prometheus.Histogram
	LinesScannedTotal    prometheus.Counter
	BatchesTotal         prometheus.Counter
	BatchLatency         prometheus.Histogram
	MatchesTotal         prometheus.Counter
	WorkersBusy          prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	EventsDroppedTotal   prometheus.Counter
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textmatcher_scans_total",
				Help: "Total scans by outcome (ok or an error kind).",
			},
			[]string{"status"},
		),
		ScanLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "textmatcher_scan_latency_seconds",
				Help:    "End-to-end scan latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		),
		LinesScannedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textmatcher_lines_scanned_total",
				Help: "Total input lines consumed by completed scans.",
			},
		),
		BatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textmatcher_batches_total",
				Help: "Total batches matched by workers.",
			},
		),
		BatchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "textmatcher_batch_latency_seconds",
				Help:    "Time a worker spends matching one batch.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		MatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textmatcher_matches_total",
				Help: "Total match locations reported by completed scans.",
			},
		),
		WorkersBusy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textmatcher_workers_busy",
				Help: "Number of workers currently matching a batch.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textmatcher_rate_limited_total",
				Help: "Total API requests rejected by the rate limiter.",
			},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textmatcher_events_dropped_total",
				Help: "Scan events dropped because the publish buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScansTotal,
		m.ScanLatency,
		m.LinesScannedTotal,
		m.BatchesTotal,
		m.BatchLatency,
		m.MatchesTotal,
		m.WorkersBusy,
		m.RateLimitedTotal,
		m.EventsDroppedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
