// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the search core: query latency and cache
// efficiency, per-tenant write throughput and admission rejections,
// memory pressure, replication peer health, and the analytics ingestion
// pipeline.

var (
	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flapjack_query_duration_seconds",
			Help:    "Duration of index queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_query_errors_total",
			Help: "Total number of query errors",
		},
		[]string{"tenant", "error_kind"},
	)

	FacetCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_facet_cache_hits_total",
			Help: "Total number of facet-cache hits",
		},
		[]string{"tenant"},
	)

	FacetCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_facet_cache_misses_total",
			Help: "Total number of facet-cache misses",
		},
		[]string{"tenant"},
	)

	// Write Pipeline Metrics
	WriteQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flapjack_write_queue_depth",
			Help: "Current number of queued write tasks for a tenant",
		},
		[]string{"tenant"},
	)

	WriteQueueRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_write_queue_rejections_total",
			Help: "Total number of writes rejected because a tenant's queue was full",
		},
		[]string{"tenant"},
	)

	DocumentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_documents_indexed_total",
			Help: "Total number of documents successfully indexed",
		},
		[]string{"tenant"},
	)

	DocumentsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_documents_rejected_total",
			Help: "Total number of documents rejected by admission control",
		},
		[]string{"tenant", "reason"},
	)

	WriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flapjack_write_duration_seconds",
			Help:    "Duration of a write task from dequeue to commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant", "kind"},
	)

	// Memory Safety Layer Metrics
	MemoryAllocatedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flapjack_memory_allocated_bytes",
			Help: "Current heap bytes allocated, as sampled by the memory observer",
		},
	)

	MemoryPressureLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flapjack_memory_pressure_level",
			Help: "Current memory pressure level (0=normal, 1=elevated, 2=critical)",
		},
	)

	MemoryAdmissionRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flapjack_memory_admission_rejections_total",
			Help: "Total number of write requests rejected for critical memory pressure",
		},
	)

	// Replication Metrics
	ReplicationPeerLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flapjack_replication_peer_lag_seconds",
			Help: "Seconds since a peer last acknowledged replicated ops",
		},
		[]string{"peer"},
	)

	ReplicationOpsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_replication_ops_sent_total",
			Help: "Total number of oplog entries fanned out to a peer",
		},
		[]string{"peer", "result"}, // result: "acked", "failed"
	)

	// Circuit Breaker Metrics. Names and labels here are load-bearing:
	// internal/replication reports peer health through these exact series.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Analytics Pipeline Metrics
	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_analytics_events_published_total",
			Help: "Total number of analytics events published to NATS",
		},
		[]string{"kind"}, // "search", "insight"
	)

	NATSMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_analytics_events_consumed_total",
			Help: "Total number of analytics events consumed from NATS",
		},
		[]string{"kind"},
	)

	AnalyticsFlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flapjack_analytics_flush_duration_seconds",
			Help:    "Duration of a buffered-event Parquet partition flush",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant", "kind"},
	)

	AnalyticsFlushSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flapjack_analytics_flush_size",
			Help:    "Number of events in each Parquet partition flush",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"tenant", "kind"},
	)

	AnalyticsRetentionSwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_analytics_partitions_swept_total",
			Help: "Total number of analytics partitions removed by the retention sweeper",
		},
		[]string{"tenant"},
	)

	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flapjack_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flapjack_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flapjack_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordQuery records a completed query's duration and, if it failed, its
// error kind.
func RecordQuery(tenant string, duration time.Duration, errKind string) {
	QueryDuration.WithLabelValues(tenant).Observe(duration.Seconds())
	if errKind != "" {
		QueryErrors.WithLabelValues(tenant, errKind).Inc()
	}
}

// RecordWrite records a completed write task's duration by kind
// ("upsert", "delete", "clear").
func RecordWrite(tenant, kind string, duration time.Duration) {
	WriteDuration.WithLabelValues(tenant, kind).Observe(duration.Seconds())
}

// SetMemoryReading updates the memory gauges from an observer sample.
func SetMemoryReading(allocatedBytes uint64, level int) {
	MemoryAllocatedBytes.Set(float64(allocatedBytes))
	MemoryPressureLevel.Set(float64(level))
}

// RecordAPIRequest records an HTTP API request's outcome and duration.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
