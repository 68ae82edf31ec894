package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(freshnessSeverity, refreshErrorsTotal)
}

var (
	freshnessSeverity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statsync_freshness_severity",
			Help: "Freshness per category: 0 fresh, 1 stale, 2 critical.",
		},
		[]string{"type"},
	)

	refreshErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statsync_refresh_errors_total",
			Help: "Failed freshness or season refreshes.",
		},
	)
)

func SetFreshness(jobType string, severity int) {
	freshnessSeverity.WithLabelValues(jobType).Set(float64(severity))
}

func IncRefreshErrors() {
	refreshErrorsTotal.Inc()
}
