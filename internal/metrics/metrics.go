package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsDispatched counts notification records by type and result (stored|failed).
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_notifications_dispatched_total",
			Help: "Total number of notifications recorded by the dispatcher",
		},
		[]string{"type", "result"},
	)

	// Deliveries counts best-effort deliveries by channel (email|realtime) and result (sent|failed|skipped).
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_notification_deliveries_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "result"},
	)

	// EmailQueueDepth tracks jobs waiting in the async email queue.
	EmailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpms_email_queue_depth",
			Help: "Number of emails waiting to be sent",
		},
	)

	// WorkflowTransitions counts state changes by entity and target status.
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_workflow_transitions_total",
			Help: "Total number of workflow state transitions",
		},
		[]string{"entity", "status"},
	)

	// WorkflowErrors counts failed workflow operations by operation and error kind.
	WorkflowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_workflow_errors_total",
			Help: "Total number of workflow operations that returned an error",
		},
		[]string{"op", "kind"},
	)

	// SweepRuns counts sweep job executions by job and result (success|failure|shared).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_sweep_runs_total",
			Help: "Total number of sweep job runs",
		},
		[]string{"job", "result"},
	)

	// SweepAffected counts rows touched by sweep jobs.
	SweepAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpms_sweep_affected_total",
			Help: "Total number of records affected by sweep jobs",
		},
		[]string{"job"},
	)

	// SweepDuration measures sweep job latency.
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpms_sweep_duration_seconds",
			Help:    "Sweep job duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpms_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
