/*
Package metrics defines the Prometheus instrumentation for the finance
engine. Collectors are registered once via promauto at init and exposed on
/metrics by the API server.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finance_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AssignmentsCreated counts successful resource assignment creations.
	AssignmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_assignments_created_total",
			Help: "Total resource assignments successfully created.",
		},
	)

	// AssignmentConflicts counts creations rejected by the (user, phase)
	// uniqueness constraint.
	AssignmentConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_assignment_conflicts_total",
			Help: "Total assignment creations rejected as duplicates.",
		},
	)

	// OverUtilizationWarnings counts utilization checks that flagged a user
	// over the weekly capacity.
	OverUtilizationWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finance_overutilization_warnings_total",
			Help: "Total utilization checks that exceeded weekly capacity.",
		},
	)

	// BurnStatusGauge tracks the last computed burn percentage per project.
	BurnStatusGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finance_project_burn_percentage",
			Help: "Last computed burn percentage per project.",
		},
		[]string{"project_id"},
	)
)

// ObserveRequest records one HTTP request observation.
func ObserveRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
