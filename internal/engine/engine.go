// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package engine is the service layer over a graph: it validates requests,
// runs graph operations, and saves the whole graph to the storage backend
// after every successful mutation.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/metrics"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/pkg/health"
)

// Reload triggers, used as metric labels.
const (
	TriggerStartup = "startup"
	TriggerAPI     = "api"
	TriggerWatch   = "watch"
)

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxPaths sets the path cap used when a path request leaves it unset.
func WithMaxPaths(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPaths = n
		}
	}
}

// Engine owns a graph and its backend. Mutations and their saves are
// serialized so that saves land in mutation order.
type Engine struct {
	mu       sync.Mutex
	graph    *graph.Graph
	backend  store.Backend
	logger   *slog.Logger
	maxPaths int
	health   *health.Tracker
}

func New(g *graph.Graph, backend store.Backend, opts ...Option) *Engine {
	e := &Engine{
		graph:    g,
		backend:  backend,
		logger:   slog.Default(),
		maxPaths: graph.DefaultMaxPaths,
		health:   health.NewTracker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the live graph for read-only queries. Mutating it directly
// bypasses persistence; use Apply for that.
func (e *Engine) Graph() *graph.Graph { return e.graph }

func (e *Engine) Backend() store.Backend { return e.backend }

// StoreHealth reports whether the last load or save succeeded.
func (e *Engine) StoreHealth() health.Metrics { return e.health.Metrics() }

// Load replaces the graph with the backend's contents. On failure the graph
// is left empty, the failure is logged, and the error is returned for
// callers that want to report it.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.loadLocked(ctx)
	if err != nil {
		e.logger.Warn("loading graph failed, starting empty", "backend", e.backend.Name(), "error", err)
		e.graph.Restore(nil)
		e.publishStats()
		return err
	}
	e.graph.Restore(snap)
	e.publishStats()
	metrics.ObserveReload(TriggerStartup)
	e.logger.Info("graph loaded", "backend", e.backend.Name(), "lyphs", len(snap.Lyphs), "lyphplates", len(snap.Lyphplates))
	return nil
}

// Reload re-reads the backend. Unlike Load, a failed reload keeps the
// current graph.
func (e *Engine) Reload(ctx context.Context, trigger string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.loadLocked(ctx)
	if err != nil {
		e.logger.Warn("reloading graph failed, keeping current state", "trigger", trigger, "error", err)
		return err
	}
	e.graph.Restore(snap)
	e.publishStats()
	metrics.ObserveReload(trigger)
	e.logger.Info("graph reloaded", "trigger", trigger, "lyphs", len(snap.Lyphs))
	return nil
}

func (e *Engine) loadLocked(ctx context.Context) (*graph.Snapshot, error) {
	start := time.Now()
	snap, err := e.backend.Load(ctx)
	metrics.ObserveLoad(e.backend.Name(), err, time.Since(start))
	if err != nil {
		e.health.RecordFailure(err)
		return nil, err
	}
	e.health.RecordSuccess()
	return snap, nil
}

// Changed reports whether the backend's state differs from what the engine
// last loaded or saved. Backends that cannot tell report false.
func (e *Engine) Changed(ctx context.Context) (bool, error) {
	cd, ok := e.backend.(store.ChangeDetector)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cd.Changed(ctx)
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Close()
}

// Apply runs fn against the graph as one operation. If fn fails the graph is
// restored to its prior state; otherwise it is saved once.
func (e *Engine) Apply(ctx context.Context, op string, fn func(g *graph.Graph) error) error {
	_, err := mutate(ctx, e, op, func(g *graph.Graph) (struct{}, error) {
		cp := g.Checkpoint()
		if err := fn(g); err != nil {
			g.Rollback(cp)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

// mutate runs fn under the engine lock and saves the graph if it succeeds.
// A failed save is logged and does not fail the operation.
func mutate[T any](ctx context.Context, e *Engine, op string, fn func(*graph.Graph) (T, error)) (T, error) {
	return mutateIf(ctx, e, op, func(g *graph.Graph) (T, bool, error) {
		res, err := fn(g)
		return res, err == nil, err
	})
}

// mutateIf is mutate for operations that only sometimes change the graph;
// fn reports whether a save is needed.
func mutateIf[T any](ctx context.Context, e *Engine, op string, fn func(*graph.Graph) (T, bool, error)) (T, error) {
	start := time.Now()

	e.mu.Lock()
	res, changed, err := fn(e.graph)
	if err == nil && changed {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()

	metrics.ObserveOperation(op, err, time.Since(start))
	if err != nil {
		e.logger.Debug("operation rejected", "op", op, "error", err)
	}
	return res, err
}

// read runs a query and records it.
func read[T any](op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := fn()
	metrics.ObserveOperation(op, err, time.Since(start))
	return res, err
}

func (e *Engine) persistLocked(ctx context.Context) {
	snap := e.graph.Snapshot()
	start := time.Now()
	// A cancelled request must not abandon a save halfway.
	err := e.backend.Save(context.WithoutCancel(ctx), snap)
	metrics.ObserveSave(e.backend.Name(), err, time.Since(start))
	if err != nil {
		e.health.RecordFailure(err)
		e.logger.Error("saving graph failed, continuing from memory", "backend", e.backend.Name(), "error", err)
	} else {
		e.health.RecordSuccess()
	}
	e.publishStats()
}

func (e *Engine) publishStats() {
	s := e.graph.Stats()
	metrics.SetEntities("lyphs", s.Lyphs)
	metrics.SetEntities("nodes", s.Nodes)
	metrics.SetEntities("lyphplates", s.Lyphplates)
	metrics.SetEntities("layers", s.Layers)
	metrics.SetEntities("views", s.Views)
	metrics.SetEntities("annotations", s.Annotations)
}
