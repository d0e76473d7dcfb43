// Package metrics provides Prometheus metrics for the liverank ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the ranking service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission path
	submissionsTotal    prometheus.Counter
	submissionsRejected prometheus.Counter
	submissionsImproved prometheus.Counter

	// Rank index
	indexKeys          prometheus.Gauge
	indexEntries       prometheus.Gauge
	indexUpdateLatency prometheus.Histogram
	indexQueryLatency  prometheus.Histogram
	windowsEvicted     prometheus.Counter

	// Broadcast
	broadcastDelivered prometheus.Counter
	broadcastDropped   prometheus.Counter
	liveSubscribers    prometheus.Gauge

	// Replay / rebuild
	replayRows   prometheus.Counter
	replayErrors prometheus.Counter

	// Score log
	scorelogAppends prometheus.Counter
	scorelogErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "liverank",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissionsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Total number of score submissions accepted by the engine",
	})
	m.submissionsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_rejected_total",
		Help:      "Total number of submissions that did not beat the stored score",
	})
	m.submissionsImproved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_improved_total",
		Help:      "Total number of submissions that improved at least one index",
	})

	m.indexKeys = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_keys",
		Help:      "Current number of live index keys (per-game, global, daily)",
	})
	m.indexEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_entries",
		Help:      "Current number of member entries across all index keys",
	})
	m.indexUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_update_latency_milliseconds",
		Help:      "Histogram of conditional-max upsert latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.indexQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_query_latency_milliseconds",
		Help:      "Histogram of rank/top-N query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.windowsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "windows_evicted_total",
		Help:      "Total number of daily windows retired after retention",
	})

	m.broadcastDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_delivered_total",
		Help:      "Total number of rank updates delivered to subscribers",
	})
	m.broadcastDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_dropped_total",
		Help:      "Total number of rank updates dropped on slow subscribers",
	})
	m.liveSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_subscribers",
		Help:      "Current number of live update subscribers",
	})

	m.replayRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_rows_total",
		Help:      "Total number of score rows replayed during index rebuilds",
	})
	m.replayErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_errors_total",
		Help:      "Total number of rows that failed to replay",
	})

	m.scorelogAppends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorelog_appends_total",
		Help:      "Total number of raw score rows appended to the durable log",
	})
	m.scorelogErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorelog_errors_total",
		Help:      "Total number of durable log failures",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap memory usage in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Histogram of average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// GetRegistry returns the registry backing the global manager so the HTTP
// layer can expose it via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers operating on the global manager.

func RecordSubmission()         { globalManager.submissionsTotal.Inc() }
func RecordSubmissionRejected() { globalManager.submissionsRejected.Inc() }
func RecordSubmissionImproved() { globalManager.submissionsImproved.Inc() }

func UpdateIndexKeys(n int)    { globalManager.indexKeys.Set(float64(n)) }
func UpdateIndexEntries(n int) { globalManager.indexEntries.Set(float64(n)) }

func RecordIndexUpdateLatency(ms float64) { globalManager.indexUpdateLatency.Observe(ms) }
func RecordIndexQueryLatency(ms float64)  { globalManager.indexQueryLatency.Observe(ms) }
func RecordWindowEvicted()                { globalManager.windowsEvicted.Inc() }

func RecordBroadcastDelivered()   { globalManager.broadcastDelivered.Inc() }
func RecordBroadcastDropped()     { globalManager.broadcastDropped.Inc() }
func UpdateLiveSubscribers(n int) { globalManager.liveSubscribers.Set(float64(n)) }
func RecordReplayRow()            { globalManager.replayRows.Inc() }
func RecordReplayError()          { globalManager.replayErrors.Inc() }
func RecordScorelogAppend()       { globalManager.scorelogAppends.Inc() }
func RecordScorelogError()        { globalManager.scorelogErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)     { globalManager.systemGoroutineCount.Set(float64(n)) }
func RecordSystemGCPauseTime(ms float64)   { globalManager.systemGCPauseTime.Observe(ms) }
