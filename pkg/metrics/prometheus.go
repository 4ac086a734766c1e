// Package metrics provides Prometheus metrics for the liveboard
// service.
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

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Score pipeline
	scoreWrites           prometheus.Counter
	scoreDeletes          prometheus.Counter
	leaderboardBuilds     prometheus.Counter
	leaderboardBuildTime  prometheus.Histogram
	leaderboardBuildFails prometheus.Counter

	// Broadcast fanout
	broadcastsPublished *prometheus.CounterVec
	broadcastsDropped   prometheus.Counter
	broadcastFailures   prometheus.Counter
	subscriberCount     prometheus.Gauge

	// Conflict protocol
	conflictsDetected prometheus.Counter
	conflictsResolved *prometheus.CounterVec
	highlightsApplied prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error breakdowns
	errorsByComponent *prometheus.CounterVec

	// Store scale
	eventsTotal prometheus.Gauge
	teamsTotal  prometheus.Gauge
	scoresTotal prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "liveboard",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
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

	m.scoreWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_writes_total",
		Help:      "Total number of score saves (create or update)",
	})
	m.scoreDeletes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_deletes_total",
		Help:      "Total number of score deletions",
	})
	m.leaderboardBuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_builds_total",
		Help:      "Total number of leaderboard recomputations",
	})
	m.leaderboardBuildTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_build_milliseconds",
		Help:      "Histogram of leaderboard pipeline latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.leaderboardBuildFails = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_build_failures_total",
		Help:      "Total number of leaderboard builds rejected (incomplete data)",
	})

	m.broadcastsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_published_total",
		Help:      "Total number of broadcast messages delivered to subscribers",
	}, []string{"type"})
	m.broadcastsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_dropped_total",
		Help:      "Total number of broadcast messages dropped for slow subscribers",
	})
	m.broadcastFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_failures_total",
		Help:      "Total number of publish attempts that failed (non-fatal)",
	})
	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscriber_count",
		Help:      "Current number of live broadcast subscriptions",
	})

	m.conflictsDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "conflicts_detected_total",
		Help:      "Total number of concurrent-edit conflicts surfaced to operators",
	})
	m.conflictsResolved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "conflicts_resolved_total",
		Help:      "Total number of conflicts resolved, by choice",
	}, []string{"choice"})
	m.highlightsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "highlights_applied_total",
		Help:      "Total number of transient remote-change highlights",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component and reason",
	}, []string{"component", "reason"})

	m.eventsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_total",
		Help:      "Total number of events tracked in the store",
	})
	m.teamsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "teams_total",
		Help:      "Total number of teams across all events",
	})
	m.scoresTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_total",
		Help:      "Total number of recorded scores",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level recording helpers against the global manager.

func RecordScoreWrite()  { globalManager.scoreWrites.Inc() }
func RecordScoreDelete() { globalManager.scoreDeletes.Inc() }

func RecordLeaderboardBuild(durationMs float64) {
	globalManager.leaderboardBuilds.Inc()
	globalManager.leaderboardBuildTime.Observe(durationMs)
}
func RecordLeaderboardBuildFailure() { globalManager.leaderboardBuildFails.Inc() }

func RecordBroadcastPublished(msgType string) {
	globalManager.broadcastsPublished.WithLabelValues(msgType).Inc()
}
func RecordBroadcastDropped() { globalManager.broadcastsDropped.Inc() }
func RecordBroadcastFailure() { globalManager.broadcastFailures.Inc() }
func UpdateSubscriberCount(n int) {
	globalManager.subscriberCount.Set(float64(n))
}

func RecordConflictDetected() { globalManager.conflictsDetected.Inc() }
func RecordConflictResolved(accepted bool) {
	choice := "override"
	if accepted {
		choice = "accept"
	}
	globalManager.conflictsResolved.WithLabelValues(choice).Inc()
}
func RecordHighlightApplied() { globalManager.highlightsApplied.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

func RecordErrorByComponent(component, reason string) {
	globalManager.errorsByComponent.WithLabelValues(component, reason).Inc()
}

func UpdateEventsTotal(n int) { globalManager.eventsTotal.Set(float64(n)) }
func UpdateTeamsTotal(n int)  { globalManager.teamsTotal.Set(float64(n)) }
func UpdateScoresTotal(n int) { globalManager.scoresTotal.Set(float64(n)) }

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)     { globalManager.systemGoroutineCount.Set(float64(n)) }
