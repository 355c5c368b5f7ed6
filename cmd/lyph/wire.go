// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/sigil-dev/lyph/internal/config"
	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/server"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/internal/watch"

	_ "github.com/sigil-dev/lyph/internal/store/badger"   // register badger backend
	_ "github.com/sigil-dev/lyph/internal/store/files"    // register files backend
	_ "github.com/sigil-dev/lyph/internal/store/postgres" // register postgres backend
	_ "github.com/sigil-dev/lyph/internal/store/s3"       // register s3 backend
	_ "github.com/sigil-dev/lyph/internal/store/sqlite"   // register sqlite backend
)

// openEngine opens the configured backend and loads the graph from it.
// With strict set a failed load is returned as an error and the backend is
// closed; otherwise the engine starts empty and reports degraded health,
// which is what the server wants.
func openEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, strict bool) (*engine.Engine, error) {
	backend, err := store.Open(ctx, cfg.StoreConfig(logger))
	if err != nil {
		return nil, err
	}

	g := graph.New(cfg.GraphOptions(logger)...)
	e := engine.New(g, backend,
		engine.WithLogger(logger),
		engine.WithMaxPaths(cfg.Graph.MaxPaths),
	)
	if err := e.Load(ctx); err != nil && strict {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func serverConfig(cfg *config.Config, logger *slog.Logger) server.Config {
	return server.Config{
		ListenAddr:     cfg.Networking.Listen,
		CORSOrigins:    cfg.Networking.CORSOrigins,
		TrustedProxies: cfg.Networking.TrustedProxies,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimit.RequestsPerSecond,
			Burst:             cfg.Networking.RateLimit.Burst,
		},
		Logger: logger,
	}
}

// newWatcher watches the backend's directory when it has one and polls
// otherwise.
func newWatcher(e *engine.Engine, cfg *config.Config, logger *slog.Logger) *watch.Watcher {
	var dir string
	if dw, ok := e.Backend().(store.DirWatcher); ok {
		dir = dw.WatchDir()
	}
	return watch.New(e, dir,
		watch.WithLogger(logger),
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithPollInterval(cfg.Watch.PollInterval),
	)
}
