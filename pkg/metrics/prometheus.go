// Package metrics provides Prometheus metrics for the Podium dashboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the Podium service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Upstream fetch metrics
	fetchTotal       *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	fetchNotModified prometheus.Counter
	fetchRetries     prometheus.Counter

	// Feed connection metrics
	feedReconnects        prometheus.Counter
	feedBackoffDelay      prometheus.Gauge
	feedConnected         prometheus.Gauge
	feedPayloadsDelivered prometheus.Counter
	feedPayloadsDeduped   prometheus.Counter

	// Reconciliation metrics
	reconcilePasses   prometheus.Counter
	reconcileDuration prometheus.Histogram
	reconcileStale    prometheus.Counter
	boardEntries      prometheus.Gauge
	boardPlaceholders prometheus.Gauge
	rankChanges       prometheus.Counter

	// Roster metrics
	rosterRecords   prometheus.Gauge
	rosterRefreshes *prometheus.CounterVec
	rosterCacheAge  prometheus.Gauge

	// Snapshot metrics
	snapshotWrites      prometheus.Counter
	snapshotWriteErrors prometheus.Counter
	snapshotLastUnix    prometheus.Gauge

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	streamSubscribers   prometheus.Gauge

	// Enhanced error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "board",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Upstream fetch metrics - the feed is the single external dependency
	m.fetchTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fetch_total",
			Help:      "Total number of upstream fetches by outcome",
		},
		[]string{"outcome"},
	)

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Histogram of upstream fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.fetchNotModified = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_not_modified_total",
		Help:      "Total number of conditional fetches answered 304 (cache hits)",
	})

	m.fetchRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_retries_total",
		Help:      "Total number of upstream fetch retry attempts",
	})

	// Feed connection metrics - long-running screen health indicators
	m.feedReconnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_reconnects_total",
		Help:      "Total number of feed reconnection attempts",
	})

	m.feedBackoffDelay = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_backoff_delay_milliseconds",
		Help:      "Current feed reconnect backoff delay in milliseconds",
	})

	m.feedConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_connected",
		Help:      "1 when the feed is connected, 0 while reconnecting",
	})

	m.feedPayloadsDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_payloads_delivered_total",
		Help:      "Total number of distinct payloads delivered downstream",
	})

	m.feedPayloadsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_payloads_deduped_total",
		Help:      "Total number of payloads dropped as structurally identical to the previous one",
	})

	// Reconciliation metrics - the core loop
	m.reconcilePasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_passes_total",
		Help:      "Total number of completed reconciliation passes",
	})

	m.reconcileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_duration_milliseconds",
		Help:      "Reconciliation pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.reconcileStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_stale_total",
		Help:      "Total number of cycles that retained stale data after a failure",
	})

	m.boardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_entries",
		Help:      "Number of entries on the current board",
	})

	m.boardPlaceholders = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_placeholders",
		Help:      "Number of placeholder entries on the current board",
	})

	m.rankChanges = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_changes_total",
		Help:      "Total number of rank-change events emitted",
	})

	// Roster metrics
	m.rosterRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_records",
		Help:      "Number of roster records currently loaded",
	})

	m.rosterRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "roster_refreshes_total",
			Help:      "Total number of roster refreshes by outcome",
		},
		[]string{"outcome"},
	)

	m.rosterCacheAge = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_cache_age_seconds",
		Help:      "Age of the cached roster data in seconds",
	})

	// Snapshot metrics
	m.snapshotWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_writes_total",
		Help:      "Total number of period snapshots written",
	})

	m.snapshotWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_write_errors_total",
		Help:      "Total number of failed snapshot writes",
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_last_unix",
		Help:      "Unix timestamp of the last snapshot write",
	})

	// HTTP performance metrics - user experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.streamSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_subscribers",
		Help:      "Number of connected SSE stream subscribers",
	})

	// Enhanced error metrics - detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System performance metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordFetch records an upstream fetch by outcome: success, not_modified,
// timeout, transport, http_error, malformed.
func RecordFetch(outcome string) {
	globalManager.fetchTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency records upstream fetch latency in milliseconds.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchNotModified increments the conditional-fetch cache hit counter.
func RecordFetchNotModified() {
	globalManager.fetchNotModified.Inc()
}

// RecordFetchRetry increments the fetch retry counter.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	globalManager.feedReconnects.Inc()
}

// UpdateFeedBackoffDelay sets the current reconnect backoff delay.
func UpdateFeedBackoffDelay(delayMs float64) {
	globalManager.feedBackoffDelay.Set(delayMs)
}

// UpdateFeedConnected sets the feed connectivity gauge.
func UpdateFeedConnected(connected bool) {
	if connected {
		globalManager.feedConnected.Set(1)
	} else {
		globalManager.feedConnected.Set(0)
	}
}

// RecordFeedPayloadDelivered increments the delivered payload counter.
func RecordFeedPayloadDelivered() {
	globalManager.feedPayloadsDelivered.Inc()
}

// RecordFeedPayloadDeduped increments the deduplicated payload counter.
func RecordFeedPayloadDeduped() {
	globalManager.feedPayloadsDeduped.Inc()
}

// RecordReconcilePass increments the completed pass counter.
func RecordReconcilePass() {
	globalManager.reconcilePasses.Inc()
}

// RecordReconcileDuration records the duration of one pass in milliseconds.
func RecordReconcileDuration(durationMs float64) {
	globalManager.reconcileDuration.Observe(durationMs)
}

// RecordReconcileStale increments the stale-retention counter.
func RecordReconcileStale() {
	globalManager.reconcileStale.Inc()
}

// UpdateBoardEntries sets the current board entry count.
func UpdateBoardEntries(count int) {
	globalManager.boardEntries.Set(float64(count))
}

// UpdateBoardPlaceholders sets the current placeholder count.
func UpdateBoardPlaceholders(count int) {
	globalManager.boardPlaceholders.Set(float64(count))
}

// RecordRankChanges adds to the rank-change event counter.
func RecordRankChanges(count int) {
	globalManager.rankChanges.Add(float64(count))
}

// UpdateRosterRecords sets the loaded roster record count.
func UpdateRosterRecords(count int) {
	globalManager.rosterRecords.Set(float64(count))
}

// RecordRosterRefresh records a roster refresh by outcome: success, failure, cache_hit.
func RecordRosterRefresh(outcome string) {
	globalManager.rosterRefreshes.WithLabelValues(outcome).Inc()
}

// UpdateRosterCacheAge sets the cached roster age in seconds.
func UpdateRosterCacheAge(seconds float64) {
	globalManager.rosterCacheAge.Set(seconds)
}

// RecordSnapshotWrite increments the snapshot write counter and stamps the time.
func RecordSnapshotWrite() {
	globalManager.snapshotWrites.Inc()
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// RecordSnapshotWriteError increments the failed snapshot write counter.
func RecordSnapshotWriteError() {
	globalManager.snapshotWriteErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateStreamSubscribers sets the connected SSE subscriber count.
func UpdateStreamSubscribers(count int) {
	globalManager.streamSubscribers.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
