// Package metrics exposes the Prometheus collectors for side-effect dispatch
// and the recurring task scheduler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationAttempts counts transport-level delivery attempts.
	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_notification_attempts_total",
			Help: "Notification delivery attempts by kind, transport and outcome.",
		},
		[]string{"kind", "transport", "outcome"},
	)

	// NotificationsDelivered counts notifications that reached at least one
	// transport successfully.
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_notifications_delivered_total",
			Help: "Notifications delivered by kind.",
		},
		[]string{"kind"},
	)

	// SchedulerRuns counts recurring task executions.
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_scheduler_runs_total",
			Help: "Recurring task runs by task name and outcome.",
		},
		[]string{"task", "outcome"},
	)

	// ActivityLogWrites counts audit entries appended, including failures.
	ActivityLogWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_activity_log_writes_total",
			Help: "Activity log append attempts by outcome.",
		},
		[]string{"outcome"},
	)
)
