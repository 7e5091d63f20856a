// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal         *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	RecordsFiltered       *prometheus.CounterVec
	ConsistencyViolations *prometheus.CounterVec
	TWAOverBound          *prometheus.CounterVec
	InFlightAnalyses      prometheus.Gauge

	// Ingestion metrics
	RecordsIngested *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec

	// API metrics
	APIRequestDuration *prometheus.HistogramVec
	APIRateLimited     prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis  prometheus.Gauge
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hypervisor_analytics"
	}

	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analyses by kind and status",
		}, []string{"kind", "status"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"kind"}),
		RecordsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "records_filtered_total",
			Help:      "Total number of period records dropped by reason",
		}, []string{"reason"}),
		ConsistencyViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "consistency_violations_total",
			Help:      "Total number of ROI reconciliation failures",
		}, []string{"chain"}),
		TWAOverBound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twa",
			Name:      "over_bound_total",
			Help:      "Total number of windows whose weight exceeded supply times duration",
		}, []string{"chain"}),
		InFlightAnalyses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "in_flight",
			Help:      "Number of analyses currently running",
		}),

		RecordsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Total number of upstream records stored by kind",
		}, []string{"kind"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "upstream_latency_seconds",
			Help:      "Upstream snapshot request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		APIRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of response cache hits by kind",
		}, []string{"kind"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of response cache misses by kind",
		}, []string{"kind"}),

		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful scheduled analysis",
		}),
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysis records one analysis run.
func RecordAnalysis(kind, status string, durationSeconds float64) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.AnalysisDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordFiltered increments the dropped-record counter for reason.
func RecordFiltered(reason string) {
	DefaultMetrics.RecordsFiltered.WithLabelValues(reason).Inc()
}

// RecordConsistencyViolation increments the reconciliation failure counter.
func RecordConsistencyViolation(chain string) {
	DefaultMetrics.ConsistencyViolations.WithLabelValues(chain).Inc()
}

// RecordOverBound increments the TWA over-bound counter.
func RecordOverBound(chain string) {
	DefaultMetrics.TWAOverBound.WithLabelValues(chain).Inc()
}

// RecordIngested adds n stored upstream records of kind.
func RecordIngested(kind string, n int) {
	DefaultMetrics.RecordsIngested.WithLabelValues(kind).Add(float64(n))
}

// RecordUpstreamLatency records one upstream request latency.
func RecordUpstreamLatency(kind string, seconds float64) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(kind).Observe(seconds)
}

// RecordAPIRequest records an API request duration.
func RecordAPIRequest(route, code string, seconds float64) {
	DefaultMetrics.APIRequestDuration.WithLabelValues(route, code).Observe(seconds)
}

// RecordRateLimited increments the rate limiter rejection counter.
func RecordRateLimited() {
	DefaultMetrics.APIRateLimited.Inc()
}

// RecordCache records a cache lookup result.
func RecordCache(kind string, hit bool) {
	if hit {
		DefaultMetrics.CacheHits.WithLabelValues(kind).Inc()
		return
	}
	DefaultMetrics.CacheMisses.WithLabelValues(kind).Inc()
}
