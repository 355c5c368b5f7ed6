// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// DefaultBackend is used when StorageConfig.Backend is empty.
const DefaultBackend = "files"

// Factory opens a backend from configuration.
type Factory func(ctx context.Context, cfg *StorageConfig) (Backend, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return DefaultBackend
	}
	return cfg.Backend
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg *StorageConfig) (Backend, error) {
	if cfg == nil {
		cfg = &StorageConfig{}
	}
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, lypherr.New(lypherr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend,
			lypherr.Field("backend", backend))
	}

	b, err := factory(ctx, cfg)
	if err != nil {
		return nil, lypherr.With(err, lypherr.Field("backend", backend))
	}
	return b, nil
}
