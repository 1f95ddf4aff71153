package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_backend_requests_total",
			Help: "Requests sent to the CPQ backend by resource, method and status",
		},
		[]string{"resource", "method", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpq_backend_request_duration_seconds",
			Help:    "Latency of CPQ backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "method"},
	)

	WizardStepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_wizard_step_transitions_total",
			Help: "Wizard step navigation attempts by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	WizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_wizard_submissions_total",
			Help: "Wizard submissions by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_status_transitions_total",
			Help: "Catalog and category status transitions",
		},
		[]string{"entity", "to", "outcome"},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_exports_total",
			Help: "CSV and PDF exports produced",
		},
		[]string{"format", "entity"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpq_api_requests_total",
			Help: "JSON API requests by route and status",
		},
		[]string{"route", "method", "status"},
	)
)
