// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package postgres stores the graph in a Postgres state table, one JSONB
// payload per entity kind.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
)

const (
	name          = "postgres"
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/lyph?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the function used to open databases and returns a
// restore func. Tests use it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

var _ store.Backend = (*Store)(nil)

// Store is a store.Backend over a Postgres database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func init() {
	store.RegisterBackend(name, func(ctx context.Context, cfg *store.StorageConfig) (store.Backend, error) {
		return New(ctx, cfg.Postgres.DSN)
	})
}

// New connects to dsn (falling back to a local default) and makes sure the
// state table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, store.ReadFailure(fmt.Errorf("open postgres: %w", err), name)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, store.ReadFailure(fmt.Errorf("ping postgres: %w", err), name)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, store.ReadFailure(err, name)
	}
	return &Store{db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Name() string { return name }

func (s *Store) Close() error { return s.db.Close() }

// buckets lists the state rows, one per snapshot section.
var buckets = []string{"lyphplates", "layers", "lyphs", "nodes", "views"}

func targets(snap *graph.Snapshot) map[string]any {
	return map[string]any{
		"lyphplates": &snap.Lyphplates,
		"layers":     &snap.Layers,
		"lyphs":      &snap.Lyphs,
		"nodes":      &snap.Nodes,
		"views":      &snap.Views,
	}
}

func (s *Store) Load(ctx context.Context) (*graph.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, store.ReadFailure(fmt.Errorf("select state: %w", err), name)
	}
	defer func() { _ = rows.Close() }()

	snap := &graph.Snapshot{}
	dst := targets(snap)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, store.ReadFailure(fmt.Errorf("scan state: %w", err), name)
		}
		if len(payload) == 0 {
			continue
		}
		target, ok := dst[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, store.ReadFailure(fmt.Errorf("decode %s: %w", bucket, err), name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, store.ReadFailure(fmt.Errorf("iterate state: %w", err), name)
	}
	return snap, nil
}

// Save upserts every bucket inside one transaction.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) error {
	if snap == nil {
		snap = &graph.Snapshot{}
	}
	src := targets(snap)
	payloads := make(map[string][]byte, len(buckets))
	for _, bucket := range buckets {
		data, err := json.Marshal(src[bucket])
		if err != nil {
			return store.WriteFailure(fmt.Errorf("encode %s: %w", bucket, err), name)
		}
		payloads[bucket] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.WriteFailure(fmt.Errorf("begin tx: %w", err), name)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, bucket := range buckets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state (bucket, payload) VALUES ($1, $2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
			bucket, payloads[bucket]); err != nil {
			return store.WriteFailure(fmt.Errorf("upsert %s: %w", bucket, err), name)
		}
	}
	if err := tx.Commit(); err != nil {
		return store.WriteFailure(fmt.Errorf("commit: %w", err), name)
	}
	committed = true
	return nil
}
