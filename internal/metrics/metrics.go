// Package metrics exposes Prometheus instrumentation for ingestion runs,
// report queries and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securecheck_report_duration_seconds",
			Help:    "Duration of catalogue report queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report", "status"},
	)

	ReportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securecheck_report_rows_total",
			Help: "Total number of rows returned by catalogue reports",
		},
		[]string{"report"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "securecheck_ingest_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	IngestRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securecheck_ingest_rows_total",
			Help: "Rows seen by ingestion, by stage",
		},
		[]string{"stage"}, // "read", "dropped", "loaded"
	)

	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securecheck_ingest_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"status"},
	)

	IngestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "securecheck_ingest_last_success_timestamp",
			Help: "Unix time of the last successful ingestion",
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securecheck_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securecheck_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordReport records one catalogue query.
func RecordReport(report string, duration time.Duration, rows int, err error) {
	ReportDuration.WithLabelValues(report, status(err)).Observe(duration.Seconds())
	if err == nil {
		ReportRows.WithLabelValues(report).Add(float64(rows))
	}
}

// RecordIngest records a finished ingestion run.
func RecordIngest(duration time.Duration, read, dropped, loaded int64, err error) {
	IngestDuration.Observe(duration.Seconds())
	IngestRuns.WithLabelValues(status(err)).Inc()
	IngestRows.WithLabelValues("read").Add(float64(read))
	IngestRows.WithLabelValues("dropped").Add(float64(dropped))
	if err != nil {
		return
	}
	IngestRows.WithLabelValues("loaded").Add(float64(loaded))
	IngestLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
