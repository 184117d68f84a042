// Package metrics provides Prometheus metrics for the WealthLens API and its pipeline jobs.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BackfillAssetsTotal tracks assets processed by the ISIN backfill by outcome
	BackfillAssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wealthlens",
			Subsystem: "isin_backfill",
			Name:      "assets_total",
			Help:      "Total number of assets processed by the ISIN backfill by outcome",
		},
		[]string{"outcome"},
	)

	// NAVUpdatesTotal tracks per-scheme NAV update results
	NAVUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wealthlens",
			Subsystem: "nav_update",
			Name:      "schemes_total",
			Help:      "Total number of scheme NAV updates by status",
		},
		[]string{"status"},
	)

	// JobRunsTotal tracks pipeline job runs
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wealthlens",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Total number of pipeline job runs by status",
		},
		[]string{"job", "status"},
	)

	// JobDuration tracks pipeline job duration in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wealthlens",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of pipeline job runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
		},
		[]string{"job"},
	)

	// JobsInFlight tracks pipeline jobs currently running in this process
	JobsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wealthlens",
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Number of pipeline jobs currently running",
		},
		[]string{"job"},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wealthlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wealthlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Job status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
