/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives named counters and scalar values. Names are free-form, for
// example "get_Post.success" or "getPaged_Comment.duration_seconds".
type Sink interface {
	IncCounter(name string)
	ObserveValue(name string, value float64)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) IncCounter(string)            {}
func (NopSink) ObserveValue(string, float64) {}

// PrometheusSink maps sink names onto two labelled vectors in its own
// registry.
type PrometheusSink struct {
	registry *prometheus.Registry
	counters *prometheus.CounterVec
	values   *prometheus.HistogramVec
}

// NewPrometheusSink creates a sink whose metrics live under namespace.
func NewPrometheusSink(namespace string) *PrometheusSink {
	registry := prometheus.NewRegistry()

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of storage events by name",
		},
		[]string{"name"},
	)

	values := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "values",
			Help:      "Observed storage values by name (durations, result counts)",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"name"},
	)

	registry.MustRegister(counters, values)

	return &PrometheusSink{
		registry: registry,
		counters: counters,
		values:   values,
	}
}

func (s *PrometheusSink) IncCounter(name string) {
	s.counters.WithLabelValues(name).Inc()
}

func (s *PrometheusSink) ObserveValue(name string, value float64) {
	s.values.WithLabelValues(name).Observe(value)
}

// Registry returns the registry holding this sink's metrics.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}
