// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package files stores the graph as the four plain-text graph files in a
// local directory.
package files

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
)

const name = "files"

func init() {
	store.RegisterBackend(name, func(_ context.Context, cfg *store.StorageConfig) (store.Backend, error) {
		if cfg.DataDir == "" {
			return nil, store.InvalidConfig(name, "data_dir is required for the files backend")
		}
		return New(cfg.DataDir)
	})
}

var (
	_ store.Backend        = (*Backend)(nil)
	_ store.ChangeDetector = (*Backend)(nil)
	_ store.DirWatcher     = (*Backend)(nil)
)

type Backend struct {
	dir string

	mu     sync.Mutex
	digest string
}

// New returns a backend rooted at dir, creating the directory if needed.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, store.WriteFailure(err, name)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) Name() string     { return name }
func (b *Backend) WatchDir() string { return b.dir }
func (b *Backend) Close() error     { return nil }

func (b *Backend) Load(context.Context) (*graph.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files, err := b.read()
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	s, err := codec.Decode(files)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	b.digest = store.Digest(files)
	return s, nil
}

// Save rewrites every graph file. Each file is written to a temporary name
// and renamed into place.
func (b *Backend) Save(_ context.Context, s *graph.Snapshot) error {
	files, err := codec.Encode(s)
	if err != nil {
		return store.WriteFailure(err, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, fn := range codec.FileNames {
		if err := writeAtomic(filepath.Join(b.dir, fn), files[fn]); err != nil {
			return store.WriteFailure(err, name)
		}
	}
	b.digest = store.Digest(files)
	return nil
}

// Changed reports whether the files on disk differ from the last load or
// save made through this backend.
func (b *Backend) Changed(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files, err := b.read()
	if err != nil {
		return false, store.ReadFailure(err, name)
	}
	return store.Digest(files) != b.digest, nil
}

// read returns the graph files that exist; missing files are left out.
func (b *Backend) read() (codec.Files, error) {
	files := make(codec.Files, len(codec.FileNames))
	for _, fn := range codec.FileNames {
		data, err := os.ReadFile(filepath.Join(b.dir, fn))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files[fn] = data
	}
	return files, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o640); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
