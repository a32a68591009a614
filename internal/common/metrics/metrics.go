// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_tickets_submitted_total",
			Help: "Total number of tickets submitted to the pipeline",
		},
	)

	TicketOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_ticket_outcomes_total",
			Help: "Terminal outcomes per ticket (assigned, rejected, failed)",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of stage execution in seconds",
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Stage failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_notifications_sent_total",
			Help: "Notifications dispatched by kind and status",
		},
		[]string{"kind", "status"},
	)
)
