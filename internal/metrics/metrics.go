// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package metrics defines the Prometheus collectors lyph exports on
// /metrics. Collectors live in the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lyph"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// operations counts engine operations. Labels: op, outcome.
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Graph operations by name and outcome",
	}, []string{"op", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operation_duration_seconds",
		Help:      "Graph operation latency in seconds, persistence included",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})

	// storeOps counts loads and saves. Labels: backend, action (load, save), outcome.
	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Snapshot loads and saves by backend and outcome",
	}, []string{"backend", "action", "outcome"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "duration_seconds",
		Help:      "Snapshot load and save latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"backend", "action"})

	// entities tracks live entity counts. Labels: kind.
	entities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "entities",
		Help:      "Live entities in the graph by kind",
	}, []string{"kind"})

	pathsFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "paths_found",
		Help:      "Paths returned per path search",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})

	// reloads counts graph reloads from the store. Labels: trigger (api, watch, startup).
	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "reloads_total",
		Help:      "Graph reloads from the backing store by trigger",
	}, []string{"trigger"})
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveOperation records one engine operation.
func ObserveOperation(op string, err error, d time.Duration) {
	operations.WithLabelValues(op, outcome(err)).Inc()
	operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func ObserveLoad(backend string, err error, d time.Duration) {
	storeOps.WithLabelValues(backend, "load", outcome(err)).Inc()
	storeDuration.WithLabelValues(backend, "load").Observe(d.Seconds())
}

func ObserveSave(backend string, err error, d time.Duration) {
	storeOps.WithLabelValues(backend, "save", outcome(err)).Inc()
	storeDuration.WithLabelValues(backend, "save").Observe(d.Seconds())
}

// SetEntities publishes the live count for one entity kind.
func SetEntities(kind string, n int) {
	entities.WithLabelValues(kind).Set(float64(n))
}

func ObservePaths(n int) {
	pathsFound.Observe(float64(n))
}

func ObserveReload(trigger string) {
	reloads.WithLabelValues(trigger).Inc()
}
