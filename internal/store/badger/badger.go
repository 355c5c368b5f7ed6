// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package badger keeps the graph files as values in an embedded BadgerDB,
// one key per file.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
)

const (
	name       = "badger"
	keyPrefix  = "graph/"
	defaultDir = "lyph.badger"
)

// Config holds configuration for the BadgerDB instance.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// Logger receives BadgerDB's own log lines. Nil disables them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var _ store.Backend = (*Store)(nil)

// Store is a store.Backend over BadgerDB.
type Store struct {
	db *badger.DB
}

func init() {
	store.RegisterBackend(name, func(_ context.Context, cfg *store.StorageConfig) (store.Backend, error) {
		bc := Config{Path: cfg.Badger.Path, InMemory: cfg.Badger.InMemory, Logger: cfg.Logger}
		if !bc.InMemory {
			if bc.Path == "" {
				bc.Path = defaultDir
			}
			if !filepath.IsAbs(bc.Path) {
				if cfg.DataDir == "" {
					return nil, store.InvalidConfig(name, "data_dir is required for a relative badger path")
				}
				bc.Path = filepath.Join(cfg.DataDir, bc.Path)
			}
		}
		return Open(bc)
	})
}

// Open opens the database at cfg.Path, creating the directory if needed.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, store.InvalidConfig(name, "path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, store.WriteFailure(fmt.Errorf("create database directory %s: %w", cfg.Path, err), name)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, store.ReadFailure(fmt.Errorf("open badger database: %w", err), name)
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return name }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(context.Context) (*graph.Snapshot, error) {
	files := codec.Files{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
			files[strings.TrimPrefix(string(item.Key()), keyPrefix)] = val
		}
		return nil
	})
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}

	snap, err := codec.Decode(files)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	return snap, nil
}

// Save writes every graph file in a single transaction.
func (s *Store) Save(_ context.Context, snap *graph.Snapshot) error {
	files, err := codec.Encode(snap)
	if err != nil {
		return store.WriteFailure(err, name)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, file := range files.Names() {
			if err := txn.Set([]byte(keyPrefix+file), files[file]); err != nil {
				return fmt.Errorf("set %s: %w", file, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.WriteFailure(err, name)
	}
	return nil
}
