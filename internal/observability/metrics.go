// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	MessagesReceived *prometheus.CounterVec
	EventsProcessed  *prometheus.CounterVec
	EventsFailed     *prometheus.CounterVec
	EventsDuplicate  prometheus.Counter
	DecodeErrors     prometheus.Counter

	// Aggregation metrics
	BucketsCreated *prometheus.CounterVec
	BucketsUpdated *prometheus.CounterVec

	// Latency metrics
	EventProcessingLatency *prometheus.HistogramVec
	SinkPublishLatency     *prometheus.HistogramVec

	// Sink metrics
	SinkErrors *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec

	// Health metrics
	LastEventTimestamp      prometheus.Gauge
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dex_daydata"
	}

	return &Metrics{
		MessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "messages_received_total",
			Help:      "Total number of ingestion messages received by type",
		}, []string{"type"}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_processed_total",
			Help:      "Total number of events aggregated by kind",
		}, []string{"kind"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_failed_total",
			Help:      "Total number of events that failed aggregation by reason",
		}, []string{"reason"}),
		EventsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_duplicate_total",
			Help:      "Total number of redelivered events skipped by id",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_errors_total",
			Help:      "Total number of undecodable messages skipped",
		}),

		BucketsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "buckets_created_total",
			Help:      "Total number of aggregate records created by kind",
		}, []string{"aggregate"}),
		BucketsUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "buckets_updated_total",
			Help:      "Total number of aggregate record writes by kind",
		}, []string{"aggregate"}),

		EventProcessingLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_latency_seconds",
			Help:      "Event aggregation latency in seconds, transaction included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		SinkPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "publish_latency_seconds",
			Help:      "Snapshot sink publish latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of failed snapshot publishes by sink",
		}, []string{"sink"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of query API requests by route and status",
		}, []string{"route", "status"}),

		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_block_timestamp",
			Help:      "Block timestamp of the last aggregated event",
		}),
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessage increments the received counter for one message type.
func RecordMessage(msgType string) {
	DefaultMetrics.MessagesReceived.WithLabelValues(msgType).Inc()
}

// RecordDecodeError increments the skipped message counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordEventProcessed records a successfully aggregated event.
func RecordEventProcessed(kind string, blockTimestamp int64, seconds float64, unixNow int64) {
	DefaultMetrics.EventsProcessed.WithLabelValues(kind).Inc()
	DefaultMetrics.EventProcessingLatency.WithLabelValues(kind).Observe(seconds)
	DefaultMetrics.LastEventTimestamp.Set(float64(blockTimestamp))
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixNow))
}

// RecordEventFailed records an event whose transaction was rolled back.
func RecordEventFailed(reason string) {
	DefaultMetrics.EventsFailed.WithLabelValues(reason).Inc()
}

// RecordDuplicateEvent counts an event skipped because its id was already aggregated.
func RecordDuplicateEvent() {
	DefaultMetrics.EventsDuplicate.Inc()
}

// RecordBucketWrite records one aggregate write.
func RecordBucketWrite(aggregate string, created bool) {
	DefaultMetrics.BucketsUpdated.WithLabelValues(aggregate).Inc()
	if created {
		DefaultMetrics.BucketsCreated.WithLabelValues(aggregate).Inc()
	}
}

// RecordSinkPublish records a sink publish and its outcome.
func RecordSinkPublish(sink string, seconds float64, err error) {
	DefaultMetrics.SinkPublishLatency.WithLabelValues(sink).Observe(seconds)
	if err != nil {
		DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordAPIRequest counts one query API response.
func RecordAPIRequest(route string, status int) {
	DefaultMetrics.APIRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}
