/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-floodgate/internal/libinfo"
)

// Decision label values.
const (
	DecisionAllowed    = "allowed"
	DecisionDisallowed = "disallowed"
)

// MetricsCollector represents a collector of metrics to analyze how throttling works.
type MetricsCollector interface {
	// SetActorsAmount sets the total number of actors kept in the storage.
	SetActorsAmount(int)

	// IncEvents increments the total number of evaluated events with the given decision.
	IncEvents(allowed bool)

	// AddCleanupEvictions increments the total number of actors removed by cleanup.
	AddCleanupEvictions(int)

	// IncCleanupFailures increments the total number of failed cleanup passes.
	IncCleanupFailures()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// The floodgate_version label is always added.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the throttle.
type PrometheusMetrics struct {
	ActorsAmount          prometheus.Gauge
	EventsTotal           *prometheus.CounterVec
	CleanupEvictionsTotal prometheus.Counter
	CleanupFailuresTotal  prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	opts.ConstLabels = libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	return &PrometheusMetrics{
		ActorsAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "floodgate_actors_amount",
			Help:        "Number of actors kept in the storage.",
			ConstLabels: opts.ConstLabels,
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "floodgate_events_total",
			Help:        "Number of evaluated events by decision.",
			ConstLabels: opts.ConstLabels,
		}, []string{"decision"}),
		CleanupEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "floodgate_cleanup_evictions_total",
			Help:        "Number of idle actors removed by cleanup.",
			ConstLabels: opts.ConstLabels,
		}),
		CleanupFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "floodgate_cleanup_failures_total",
			Help:        "Number of failed cleanup passes.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.ActorsAmount,
		pm.EventsTotal,
		pm.CleanupEvictionsTotal,
		pm.CleanupFailuresTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.ActorsAmount)
	prometheus.Unregister(pm.EventsTotal)
	prometheus.Unregister(pm.CleanupEvictionsTotal)
	prometheus.Unregister(pm.CleanupFailuresTotal)
}

// SetActorsAmount sets the total number of actors kept in the storage.
func (pm *PrometheusMetrics) SetActorsAmount(amount int) {
	pm.ActorsAmount.Set(float64(amount))
}

// IncEvents increments the total number of evaluated events with the given decision.
func (pm *PrometheusMetrics) IncEvents(allowed bool) {
	decision := DecisionDisallowed
	if allowed {
		decision = DecisionAllowed
	}
	pm.EventsTotal.WithLabelValues(decision).Inc()
}

// AddCleanupEvictions increments the total number of actors removed by cleanup.
func (pm *PrometheusMetrics) AddCleanupEvictions(n int) {
	pm.CleanupEvictionsTotal.Add(float64(n))
}

// IncCleanupFailures increments the total number of failed cleanup passes.
func (pm *PrometheusMetrics) IncCleanupFailures() {
	pm.CleanupFailuresTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetActorsAmount(int)     {}
func (disabledMetrics) IncEvents(bool)          {}
func (disabledMetrics) AddCleanupEvictions(int) {}
func (disabledMetrics) IncCleanupFailures()     {}
