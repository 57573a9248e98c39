package observer

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled = true

// Ingestion metrics
var (
	ingestionLabels = []string{"channel", "source"}

	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_ingestions_total",
			Help: "Total number of ingestions, labeled by channel, source and outcome.",
		},
		[]string{"channel", "source", "outcome"},
	)
	IngestionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_metrics_ingestion_duration_seconds",
			Help:    "Histogram of ingestion durations including the upstream call when triggered.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		ingestionLabels,
	)
	FallbackSynthesizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_fallback_synthesized_total",
			Help: "Total number of reports whose counts were synthesized by the fallback policy.",
		},
		[]string{"channel", "reason"},
	)
	UpstreamRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_metrics_upstream_request_duration_seconds",
			Help:    "Histogram of upstream webhook call durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"status"},
	)
)

// Database metrics
var (
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_metrics_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"operation", "entity", "status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_metrics_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// NATS consumer metrics
var (
	eventLabels = []string{"channel"}

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_events_received_total",
			Help: "Total number of ingest messages received from NATS.",
		},
		eventLabels,
	)
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_events_processed_total",
			Help: "Total number of ingest messages processed and acknowledged.",
		},
		eventLabels,
	)
	EventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_events_failed_total",
			Help: "Total number of ingest messages that failed processing (nak or term).",
		},
		eventLabels,
	)
	EventProcessingActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_event_actions_total",
			Help: "Total count of ack/nak/term decisions, labeled by error type.",
		},
		[]string{"channel", "action", "error_type"},
	)
)

// Notifier worker pool metrics
var (
	notifierTasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_notifier_tasks_submitted_total",
			Help: "Total number of ingested-event publish tasks submitted to the worker pool.",
		},
		[]string{"channel"},
	)
	notifierTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_metrics_notifier_tasks_processed_total",
			Help: "Total number of publish tasks processed by the worker pool, labeled by final status.",
		},
		[]string{"channel", "status"},
	)
	notifierBusyWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outreach_metrics_notifier_busy_workers",
		Help: "Number of notifier workers publishing when the last event was submitted.",
	})
)

// Load generator metrics
var (
	loadgenLabels = []string{"subject"}

	loadgenMessagesAttemptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_messages_attempted_total",
			Help: "Total number of messages the load generator attempted to publish.",
		},
		loadgenLabels,
	)
	loadgenMessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_messages_published_total",
			Help: "Total number of messages successfully published by the load generator.",
		},
		loadgenLabels,
	)
	loadgenPublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_publish_errors_total",
			Help: "Total number of errors encountered by the load generator during publishing.",
		},
		loadgenLabels,
	)
)

// InitMetrics turns metric collection on or off. Collectors are registered by promauto either way.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// Enabled reports whether metric collection is on.
func Enabled() bool {
	return metricsEnabled
}

func sanitizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveIngestion records the outcome and duration of one ingestion.
func ObserveIngestion(channel, source, outcome string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	IngestionsTotal.WithLabelValues(sanitizeLabel(channel), sanitizeLabel(source), outcome).Inc()
	IngestionDurationSeconds.WithLabelValues(sanitizeLabel(channel), sanitizeLabel(source)).Observe(duration.Seconds())
}

// IncFallbackSynthesized counts a report built from synthesized values.
func IncFallbackSynthesized(channel, reason string) {
	if !metricsEnabled {
		return
	}
	FallbackSynthesizedTotal.WithLabelValues(sanitizeLabel(channel), reason).Inc()
}

// ObserveUpstreamRequest records an upstream webhook call. status is the HTTP status
// code, or "timeout"/"error" when no response arrived.
func ObserveUpstreamRequest(status string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	UpstreamRequestDurationSeconds.WithLabelValues(sanitizeLabel(status)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// ObserveHTTPRequest records a served request. route is the matched pattern, not the raw path.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	route = sanitizeLabel(route)
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncEventsReceived increments the events received counter.
func IncEventsReceived(channel string) {
	if !metricsEnabled {
		return
	}
	EventsReceivedTotal.WithLabelValues(sanitizeLabel(channel)).Inc()
}

// IncEventsProcessed increments the events processed counter.
func IncEventsProcessed(channel string) {
	if !metricsEnabled {
		return
	}
	EventsProcessedTotal.WithLabelValues(sanitizeLabel(channel)).Inc()
}

// IncEventsFailed increments the events failed counter.
func IncEventsFailed(channel string) {
	if !metricsEnabled {
		return
	}
	EventsFailedTotal.WithLabelValues(sanitizeLabel(channel)).Inc()
}

// IncEventProcessingAction increments the counter for an ack/nak/term decision.
func IncEventProcessingAction(channel, action, errorType string) {
	if !metricsEnabled {
		return
	}
	EventProcessingActionsTotal.WithLabelValues(sanitizeLabel(channel), action, SanitizeErrorType(errorType)).Inc()
}

// SanitizeErrorType maps an error string onto a small set of categories.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "validation"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "unknown channel"):
		return "validation"
	case strings.Contains(errStr, "timed out"), strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "upstream"):
		return "upstream"
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}

// IncNotifierTasksSubmitted counts a publish task handed to the pool.
func IncNotifierTasksSubmitted(channel string) {
	if !metricsEnabled {
		return
	}
	notifierTasksSubmittedTotal.WithLabelValues(sanitizeLabel(channel)).Inc()
}

// IncNotifierTasksProcessed counts a finished publish task by status.
func IncNotifierTasksProcessed(channel, status string) {
	if !metricsEnabled {
		return
	}
	notifierTasksProcessedTotal.WithLabelValues(sanitizeLabel(channel), status).Inc()
}

// SetNotifierBusyWorkers sets the number of notifier workers currently publishing.
func SetNotifierBusyWorkers(n int) {
	if !metricsEnabled {
		return
	}
	notifierBusyWorkers.Set(float64(n))
}

// IncLoadgenMessagesAttempted increments the counter for attempted message publications.
func IncLoadgenMessagesAttempted(subject string) {
	if !metricsEnabled {
		return
	}
	loadgenMessagesAttemptedTotal.WithLabelValues(subject).Inc()
}

// IncLoadgenMessagesPublished increments the counter for successfully published messages.
func IncLoadgenMessagesPublished(subject string) {
	if !metricsEnabled {
		return
	}
	loadgenMessagesPublishedTotal.WithLabelValues(subject).Inc()
}

// IncLoadgenPublishErrors increments the counter for publishing errors.
func IncLoadgenPublishErrors(subject string) {
	if !metricsEnabled {
		return
	}
	loadgenPublishErrorsTotal.WithLabelValues(subject).Inc()
}
