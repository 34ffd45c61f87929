// Package observability exposes Prometheus metrics for the import pipeline.
// The /metrics endpoint is mounted by the web server; external monitoring
// combines these with the job query API.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsProcessed counts data rows that completed normalization and
	// pricing, labeled by stone type.
	RowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemfeed_rows_processed_total",
			Help: "Feed rows processed (loaded or skipped) per stone type",
		},
		[]string{"type"},
	)

	// RowsSkipped counts rows rejected per run (missing item id, field
	// count mismatch, loader re-check).
	RowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemfeed_rows_skipped_total",
			Help: "Feed rows skipped per stone type",
		},
		[]string{"type"},
	)

	// JobsFinished counts terminal import jobs by type and final status.
	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemfeed_jobs_finished_total",
			Help: "Import jobs reaching a terminal status",
		},
		[]string{"type", "status"},
	)

	// LastRunTimestamp records the unix time the last run finished per type,
	// regardless of outcome. Staleness alerts key off this.
	LastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gemfeed_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last finished run per stone type",
		},
		[]string{"type"},
	)
)

// Register registers all pipeline metrics with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(RowsProcessed, RowsSkipped, JobsFinished, LastRunTimestamp)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
