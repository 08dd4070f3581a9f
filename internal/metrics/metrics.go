// Package metrics provides Prometheus metrics for the API and queue workers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pmapi"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Queue metrics
var (
	// JobsDispatchedTotal counts jobs pushed onto a queue.
	JobsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_dispatched_total",
			Help:      "Total jobs dispatched by type",
		},
		[]string{"type"},
	)

	// JobsDuplicateTotal counts dispatches suppressed by a unique lock.
	JobsDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_duplicate_total",
			Help:      "Total dispatches suppressed as duplicates",
		},
		[]string{"type"},
	)

	// JobsProcessedTotal counts job attempts by outcome (success, retry, released, failed).
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total job attempts by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// JobDuration tracks handler execution time.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Job handler latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)
)

// Notification metrics
var (
	// NotificationsSentTotal counts delivered notification emails.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total notification emails delivered",
		},
		[]string{"type"},
	)

	// NotificationsSkippedTotal counts notifications dropped because their precondition no longer held.
	NotificationsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "skipped_total",
			Help:      "Total notifications skipped as stale",
		},
		[]string{"type"},
	)

	// NotificationsRateLimitedTotal counts notifications deferred by the per-recipient limiter.
	NotificationsRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "rate_limited_total",
			Help:      "Total notifications deferred by rate limiting",
		},
		[]string{"type"},
	)
)

// Cache metrics
var (
	// CacheRequestsTotal counts cache lookups by result (hit, miss).
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total cache lookups by result",
		},
		[]string{"result"},
	)
)
