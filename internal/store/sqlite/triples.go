// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
)

// Compile-time interface check.
var _ store.Backend = (*TripleStore)(nil)

// TripleStore keeps lyphplates and layers as rows of a triples table and
// the remaining graph files as whole documents.
type TripleStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewTripleStore opens (or creates) a SQLite database at dbPath and
// initialises the triples and documents tables.
func NewTripleStore(dbPath string) (*TripleStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite db: %w", err)
	}

	return &TripleStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS triples (
	seq          INTEGER PRIMARY KEY,
	subject      TEXT NOT NULL,
	subject_kind INTEGER NOT NULL,
	predicate    TEXT NOT NULL,
	object       TEXT NOT NULL,
	object_kind  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triples_subject ON triples(subject);
CREATE INDEX IF NOT EXISTS idx_triples_predicate ON triples(predicate);

CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	body BLOB NOT NULL
);
`
	_, err := db.Exec(ddl)
	return err
}

func (s *TripleStore) Name() string { return name }

func (s *TripleStore) Close() error { return s.db.Close() }

// Load reads the documents first, then rebuilds lyphplates and layers from
// the triples table.
func (s *TripleStore) Load(ctx context.Context) (*graph.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.documents(ctx)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	snap, err := codec.Decode(files)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}

	triples, err := s.triples(ctx)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	snap.Lyphplates, snap.Layers, err = codec.TemplatesFromTriples(triples)
	if err != nil {
		return nil, store.ReadFailure(err, name)
	}
	return snap, nil
}

func (s *TripleStore) documents(ctx context.Context) (codec.Files, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, body FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := codec.Files{}
	for rows.Next() {
		var (
			docName string
			body    []byte
		)
		if err := rows.Scan(&docName, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		files[docName] = body
	}
	return files, rows.Err()
}

func (s *TripleStore) triples(ctx context.Context) ([]codec.Triple, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, subject_kind, predicate, object, object_kind FROM triples ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select triples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []codec.Triple
	for rows.Next() {
		var t codec.Triple
		if err := rows.Scan(&t.Subject.Value, &t.Subject.Kind, &t.Predicate.Value, &t.Object.Value, &t.Object.Kind); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		t.Predicate.Kind = codec.IRI
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save replaces both tables in one transaction.
func (s *TripleStore) Save(ctx context.Context, snap *graph.Snapshot) error {
	files, err := codec.Encode(snap)
	if err != nil {
		return store.WriteFailure(err, name)
	}
	if snap == nil {
		snap = &graph.Snapshot{}
	}
	triples := codec.TemplateTriples(snap.Lyphplates, snap.Layers)

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

	for _, stmt := range []string{`DELETE FROM triples`, `DELETE FROM documents`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return store.WriteFailure(fmt.Errorf("clear tables: %w", err), name)
		}
	}

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO triples (seq, subject, subject_kind, predicate, object, object_kind) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return store.WriteFailure(fmt.Errorf("prepare triple insert: %w", err), name)
	}
	defer func() { _ = ins.Close() }()

	for i, t := range triples {
		if _, err := ins.ExecContext(ctx, i+1, t.Subject.Value, int(t.Subject.Kind), t.Predicate.Value, t.Object.Value, int(t.Object.Kind)); err != nil {
			return store.WriteFailure(fmt.Errorf("insert triple: %w", err), name)
		}
	}

	for _, docName := range files.Names() {
		if docName == codec.TemplatesFile {
			continue
		}
		body := bytes.Clone(files[docName])
		if body == nil {
			body = []byte{}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents (name, body) VALUES (?, ?)`, docName, body); err != nil {
			return store.WriteFailure(fmt.Errorf("insert document %s: %w", docName, err), name)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.WriteFailure(fmt.Errorf("commit: %w", err), name)
	}
	committed = true
	return nil
}
