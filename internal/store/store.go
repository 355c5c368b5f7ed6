// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package store persists graph snapshots. Each backend writes the full
// snapshot on every save; there is no incremental journal.
package store

import (
	"context"

	"github.com/sigil-dev/lyph/internal/graph"
)

// Backend loads and saves whole graph snapshots. Load on a store that has
// never been saved returns an empty snapshot and no error.
type Backend interface {
	Load(ctx context.Context) (*graph.Snapshot, error)
	Save(ctx context.Context, s *graph.Snapshot) error
	Close() error
	Name() string
}

// ChangeDetector is implemented by backends whose state can be changed from
// outside the process. Changed reports whether the stored state differs from
// what this backend last loaded or saved.
type ChangeDetector interface {
	Changed(ctx context.Context) (bool, error)
}

// DirWatcher is implemented by backends that keep their state in a local
// directory that can be watched for edits.
type DirWatcher interface {
	WatchDir() string
}
