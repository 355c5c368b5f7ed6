// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigil-dev/lyph/internal/store"
)

const (
	name            = "sqlite"
	defaultFileName = "lyph.db"
)

func init() {
	store.RegisterBackend(name, open)
}

func open(_ context.Context, cfg *store.StorageConfig) (store.Backend, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, store.WriteFailure(err, name)
	}

	ts, err := NewTripleStore(path)
	if err != nil {
		return nil, store.ReadFailure(fmt.Errorf("creating triple store: %w", err), name)
	}
	return ts, nil
}

// dbPath resolves the database file. A relative path is taken relative to
// the data directory.
func dbPath(cfg *store.StorageConfig) (string, error) {
	path := cfg.SQLite.Path
	if path == "" {
		path = defaultFileName
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	if cfg.DataDir == "" {
		return "", store.InvalidConfig(name, "data_dir is required for a relative sqlite path")
	}
	return filepath.Join(cfg.DataDir, path), nil
}
