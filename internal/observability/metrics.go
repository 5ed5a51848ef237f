package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Collector metrics
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_remote_call_duration_seconds",
			Help:    "Latency of calls to the Telegram backend in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "status"},
	)

	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_pages_fetched_total",
			Help: "Total number of history pages fetched",
		},
		[]string{"mode"},
	)

	MessagesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_messages_collected_total",
			Help: "Total number of normalized messages returned by collection runs",
		},
		[]string{"mode"},
	)

	SerializationSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_serialization_skipped_total",
			Help: "Messages skipped by the batch packer because they could not be serialized",
		},
	)

	BatchesPacked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_batches_packed_total",
			Help: "Total number of batches produced by the packer",
		},
	)

	// Messaging metrics
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_jobs_processed_total",
			Help: "Collect jobs handled by the worker",
		},
		[]string{"status"},
	)

	// Cache metrics
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_chat_cache_requests_total",
			Help: "Chat cache lookups by result",
		},
		[]string{"result"},
	)

	// Scheduler metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_sync_runs_total",
			Help: "Scheduled sync runs by outcome",
		},
		[]string{"status"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)
)
