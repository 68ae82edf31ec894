package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsTriggeredTotal,
		jobsRejectedTotal,
		jobsFinishedTotal,
		jobsActive,
		jobDurationSeconds,
		streamErrorsTotal,
		fallbackFetchesTotal,
	)
}

var (
	jobsTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statsync_jobs_triggered_total",
			Help: "Sync jobs accepted by the backend, by job type.",
		},
		[]string{"type"},
	)

	jobsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statsync_jobs_rejected_total",
			Help: "Trigger attempts refused locally or by the backend.",
		},
		[]string{"type", "reason"}, // 'conflict', 'backend'
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statsync_jobs_finished_total",
			Help: "Jobs observed reaching a terminal status.",
		},
		[]string{"type", "status"},
	)

	jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statsync_jobs_active",
			Help: "Jobs currently tracked as pending or running.",
		},
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statsync_job_duration_seconds",
			Help:    "Backend-reported duration of finished jobs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"type"},
	)

	streamErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statsync_stream_errors_total",
			Help: "Progress stream transport errors.",
		},
	)

	fallbackFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statsync_fallback_fetches_total",
			Help: "Job fetches made after a stream closed early, by outcome.",
		},
		[]string{"outcome"}, // 'terminal', 'pending', 'error'
	)
)

func IncTriggered(jobType string) {
	jobsTriggeredTotal.WithLabelValues(jobType).Inc()
}

func IncRejected(jobType, reason string) {
	jobsRejectedTotal.WithLabelValues(jobType, reason).Inc()
}

func ObserveFinished(jobType, status string, durationSeconds *int64) {
	jobsFinishedTotal.WithLabelValues(jobType, status).Inc()
	if durationSeconds != nil {
		jobDurationSeconds.WithLabelValues(jobType).Observe(float64(*durationSeconds))
	}
}

func SetActive(n int) {
	jobsActive.Set(float64(n))
}

func IncStreamErrors() {
	streamErrorsTotal.Inc()
}

func IncFallbackFetch(outcome string) {
	fallbackFetchesTotal.WithLabelValues(outcome).Inc()
}
