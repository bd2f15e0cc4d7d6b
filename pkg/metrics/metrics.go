// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PostsFetchedTotal    prometheus.Counter
	FetchErrorsTotal     prometheus.Counter
	ArchiveSize          prometheus.Gauge
	RowsSkippedTotal     prometheus.Counter
	WindowsTotal         *prometheus.CounterVec
	RankRowsWrittenTotal *prometheus.CounterVec
	CycleDuration        prometheus.Histogram
	CyclesTotal          *prometheus.CounterVec
	RankCacheHitsTotal   prometheus.Counter
	RankCacheMissesTotal prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
		PostsFetchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termtrend_posts_fetched_total",
				Help: "Total posts returned by the feed source.",
			},
		),
		FetchErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termtrend_fetch_errors_total",
				Help: "Total failed feed fetches after retries.",
			},
		),
		ArchiveSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termtrend_archive_posts",
				Help: "Number of posts in the merged archive.",
			},
		),
		RowsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termtrend_archive_rows_skipped_total",
				Help: "Total malformed archive rows skipped on load.",
			},
		),
		WindowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termtrend_windows_total",
				Help: "Export windows by outcome (exported, skipped).",
			},
			[]string{"outcome"},
		),
		RankRowsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termtrend_rank_rows_written_total",
				Help: "Rank rows written by metric.",
			},
			[]string{"metric"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termtrend_cycle_duration_seconds",
				Help:    "Duration of one fetch, merge, and export cycle.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termtrend_cycles_total",
				Help: "Polling cycles by result (ok, fetch_error, empty_archive, error).",
			},
			[]string{"result"},
		),
		RankCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termtrend_rank_cache_hits_total",
				Help: "Total rank cache hits in the read API.",
			},
		),
		RankCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termtrend_rank_cache_misses_total",
				Help: "Total rank cache misses in the read API.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PostsFetchedTotal,
		m.FetchErrorsTotal,
		m.ArchiveSize,
		m.RowsSkippedTotal,
		m.WindowsTotal,
		m.RankRowsWrittenTotal,
		m.CycleDuration,
		m.CyclesTotal,
		m.RankCacheHitsTotal,
		m.RankCacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// WindowExported records one exported window.
func (m *Metrics) WindowExported() { m.WindowsTotal.WithLabelValues("exported").Inc() }

// WindowSkipped records one window skipped by the watermark.
func (m *Metrics) WindowSkipped() { m.WindowsTotal.WithLabelValues("skipped").Inc() }

// RowsWritten records n rank rows written for metric.
func (m *Metrics) RowsWritten(metric string, n int) {
	m.RankRowsWrittenTotal.WithLabelValues(metric).Add(float64(n))
}

// BreakerStateChanged mirrors a circuit breaker transition into the gauge.
func (m *Metrics) BreakerStateChanged(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
