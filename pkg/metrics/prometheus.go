// Package metrics provides Prometheus metrics for the reckon integrity core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the integrity core.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event log
	eventsAppended   *prometheus.CounterVec
	appendDuplicates prometheus.Counter
	appendDuration   prometheus.Histogram

	// Derivation
	derivations *prometheus.CounterVec

	// Validation
	validationRuns     prometheus.Counter
	violationsDetected prometheus.Counter
	lastScanEntities   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "reckon",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsAppended = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_appended_total",
		Help:      "Total number of events sealed into the log, by kind",
	}, []string{"kind"})

	m.appendDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "append_duplicates_total",
		Help:      "Total number of appends rejected for id collision",
	})

	m.appendDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "append_duration_seconds",
		Help:      "Histogram of append latency including the existence probe",
		Buckets:   m.histogramBuckets,
	})

	m.derivations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "derivations_total",
		Help:      "Total number of state derivations, by outcome (ok|no_events|error)",
	}, []string{"outcome"})

	m.validationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "validation_runs_total",
		Help:      "Total number of integrity validation runs",
	})

	m.violationsDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "violations_detected_total",
		Help:      "Total number of integrity violations detected",
	})

	m.lastScanEntities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_scan_entities",
		Help:      "Number of entities checked by the most recent system scan",
	})
}

// RecordAppend increments the sealed-event counter for a kind.
func (m *Manager) RecordAppend(kind string) {
	m.eventsAppended.WithLabelValues(kind).Inc()
}

// RecordDuplicate increments the duplicate-append counter.
func (m *Manager) RecordDuplicate() {
	m.appendDuplicates.Inc()
}

// ObserveAppendDuration records one append's wall-clock latency.
func (m *Manager) ObserveAppendDuration(d time.Duration) {
	m.appendDuration.Observe(d.Seconds())
}

// RecordDerivation increments the derivation counter for an outcome.
func (m *Manager) RecordDerivation(outcome string) {
	m.derivations.WithLabelValues(outcome).Inc()
}

// RecordValidationRun increments the validation-run counter.
func (m *Manager) RecordValidationRun() {
	m.validationRuns.Inc()
}

// RecordViolations adds n to the detected-violation counter.
func (m *Manager) RecordViolations(n int) {
	if n > 0 {
		m.violationsDetected.Add(float64(n))
	}
}

// SetLastScanEntities records the entity count of the latest system scan.
func (m *Manager) SetLastScanEntities(n int) {
	m.lastScanEntities.Set(float64(n))
}

// Package-level helpers over the global manager. Components call these
// directly so instrumentation never needs plumbing through constructors.

// RecordAppend increments the sealed-event counter for a kind.
func RecordAppend(kind string) { globalManager.RecordAppend(kind) }

// RecordDuplicate increments the duplicate-append counter.
func RecordDuplicate() { globalManager.RecordDuplicate() }

// ObserveAppendDuration records one append's wall-clock latency.
func ObserveAppendDuration(d time.Duration) { globalManager.ObserveAppendDuration(d) }

// RecordDerivation increments the derivation counter for an outcome.
func RecordDerivation(outcome string) { globalManager.RecordDerivation(outcome) }

// RecordValidationRun increments the validation-run counter.
func RecordValidationRun() { globalManager.RecordValidationRun() }

// RecordViolations adds n to the detected-violation counter.
func RecordViolations(n int) { globalManager.RecordViolations(n) }

// SetLastScanEntities records the entity count of the latest system scan.
func SetLastScanEntities(n int) { globalManager.SetLastScanEntities(n) }

// GetRegistry returns the custom registry backing the global manager, for
// wiring an optional /metrics exporter endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
