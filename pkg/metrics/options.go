package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the Prometheus registerer metrics are registered on.
// Tests use fresh registries so repeated Manager construction never panics
// on duplicate registration.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithNamespace overrides the metric namespace (default "reckon").
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		m.namespace = ns
	}
}

// WithHistogramBuckets overrides the latency histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		m.histogramBuckets = buckets
	}
}
