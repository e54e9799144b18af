package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// MetricsConfig toggles the registry and sets the metric namespace.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Metrics counts adapter operations by outcome and times them.
// A disabled Metrics is a valid no-op.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registry   *prometheus.Registry
}

// NewMetrics creates a metrics collector on a private registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "opsdeck"
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of remote operations by outcome",
			},
			[]string{"system", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of remote operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"system", "operation"},
		),
	}
	registry.MustRegister(m.operations, m.duration)
	return m
}

// Enabled reports whether metrics are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(system, operation, outcome string, elapsed time.Duration) {
	if !m.Enabled() {
		return
	}
	m.operations.WithLabelValues(system, operation, outcome).Inc()
	m.duration.WithLabelValues(system, operation).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.Enabled() {
		return nil
	}
	return m.registry
}

// WriteText writes every gathered family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if !m.Enabled() {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
