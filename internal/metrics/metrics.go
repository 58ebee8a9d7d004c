// Package metrics declares the Prometheus instruments shared across the
// application. All instruments are registered via promauto at init time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job lifecycle metrics
var (
	// JobsCreatedTotal counts created jobs
	JobsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_created_total",
			Help: "Total jobs created",
		},
	)

	// JobsDeletedTotal counts purged (not archived) jobs
	JobsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_deleted_total",
			Help: "Total jobs deleted without archiving",
		},
	)

	// JobsArchivedTotal counts archived jobs
	JobsArchivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_archived_total",
			Help: "Total jobs archived",
		},
	)

	// JobStatusChangesTotal counts manual status transitions by target status
	JobStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_status_changes_total",
			Help: "Total manual job status changes by new status",
		},
		[]string{"status"},
	)
)

// Timer ledger metrics
var (
	// TimersStartedTotal counts started timers
	TimersStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timers_started_total",
			Help: "Total timers started",
		},
	)

	// TimersStoppedTotal counts stopped timers
	TimersStoppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timers_stopped_total",
			Help: "Total timers stopped",
		},
	)

	// TimerMinutesRecordedTotal sums the minutes booked by stopped timers
	TimerMinutesRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timer_minutes_recorded_total",
			Help: "Total work minutes recorded by closed time logs",
		},
	)

	// TimerConflictsTotal counts start attempts rejected by the
	// one-active-timer-per-pair invariant
	TimerConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timer_conflicts_total",
			Help: "Total timer starts rejected because a timer was already active",
		},
	)
)

// Notification fan-out metrics
var (
	// EventsPublishedTotal counts published domain events by name
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total domain events published by event name",
		},
		[]string{"event"},
	)

	// ConnectedClients tracks currently connected WebSocket clients
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	// RelayMessagesTotal counts cross-instance relay messages by direction
	RelayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_relay_messages_total",
			Help: "Cross-instance event relay messages by direction (published/received/skipped)",
		},
		[]string{"direction"},
	)
)
