// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for task execution.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kagent_a2a"

// Execution outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeFailed        = "failed"
	OutcomeInputRequired = "input_required"
	OutcomeCanceled      = "canceled"
)

// Metrics reports executor, persistence and resumption activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	executions          *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec
	eventsForwarded     *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	resumedTasks        prometheus.Counter
	inflight            prometheus.Gauge
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Collectors that are already registered are reused; any other registration
// error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Execution attempts by final outcome.",
		}, []string{"outcome"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "execution_duration_seconds",
			Help:      "Wall time of execution attempts by final outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		eventsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "events_forwarded_total",
			Help:      "Update events forwarded to the event queue by kind.",
		}, []string{"kind"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task_store",
			Name:      "persistence_failures_total",
			Help:      "Task saves that failed and were skipped.",
		}),
		resumedTasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resumption",
			Name:      "resumed_tasks_total",
			Help:      "Tasks rescheduled after a restart.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "inflight_tasks",
			Help:      "Execution attempts currently running.",
		}),
	}

	m.executions = register(reg, m.executions)
	m.executionDuration = register(reg, m.executionDuration)
	m.eventsForwarded = register(reg, m.eventsForwarded)
	m.persistenceFailures = register(reg, m.persistenceFailures)
	m.resumedTasks = register(reg, m.resumedTasks)
	m.inflight = register(reg, m.inflight)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveExecution records the outcome and duration of one execution attempt.
func (m *Metrics) ObserveExecution(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.executionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncEventsForwarded counts one forwarded event of kind.
func (m *Metrics) IncEventsForwarded(kind string) {
	if m == nil {
		return
	}
	m.eventsForwarded.WithLabelValues(kind).Inc()
}

// IncPersistenceFailures counts one failed task save.
func (m *Metrics) IncPersistenceFailures() {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc()
}

// IncResumedTasks counts one task rescheduled by resumption.
func (m *Metrics) IncResumedTasks() {
	if m == nil {
		return
	}
	m.resumedTasks.Inc()
}

// TrackInflight marks an execution as running and returns the function that
// marks it finished.
func (m *Metrics) TrackInflight() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
