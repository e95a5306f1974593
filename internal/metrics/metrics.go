package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickscript_jobs_submitted_total",
			Help: "Total number of jobs accepted for processing",
		},
		[]string{"source"}, // local_file, remote_url
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickscript_jobs_completed_total",
			Help: "Total number of jobs that reached a terminal stage",
		},
		[]string{"status"}, // complete, error, cancelled
	)

	ExportsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickscript_exports_rendered_total",
			Help: "Total number of derived export files produced",
		},
		[]string{"format"}, // txt, pdf
	)

	// Gauges
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quickscript_jobs_running",
			Help: "Current number of jobs being executed",
		},
	)

	JobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quickscript_jobs_pending",
			Help: "Current number of jobs waiting for a runner slot",
		},
	)

	// Histogram for per-stage duration
	StageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quickscript_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
		[]string{"stage"},
	)
)
