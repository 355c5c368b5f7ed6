// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/internal/store/sqlite"
	"github.com/sigil-dev/lyph/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripleStoreContract(t *testing.T) {
	ts, err := sqlite.NewTripleStore(testDBPath(t, "contract"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })

	storetest.Run(t, ts)
}

func TestTripleStore_StoresTemplatesAsRows(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "rows")
	ts, err := sqlite.NewTripleStore(path)
	require.NoError(t, err)

	snap := storetest.Sample(t).Snapshot()
	require.NoError(t, ts.Save(ctx, snap))
	require.NoError(t, ts.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var label string
	err = db.QueryRow(`SELECT object FROM triples WHERE subject = ? AND predicate = ?`,
		codec.TemplateIRI("1"), "http://www.w3.org/2000/01/rdf-schema#label").Scan(&label)
	require.NoError(t, err)
	assert.Equal(t, "fat", label)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM triples`).Scan(&count))
	assert.Equal(t, len(codec.TemplateTriples(snap.Lyphplates, snap.Layers)), count)

	var docs []string
	rows, err := db.Query(`SELECT name FROM documents ORDER BY name`)
	require.NoError(t, err)
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		docs = append(docs, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{codec.AnnotationsFile, codec.EdgesFile, codec.ViewsFile}, docs)
}

func TestTripleStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "reopen")

	ts, err := sqlite.NewTripleStore(path)
	require.NoError(t, err)
	snap := storetest.Sample(t).Snapshot()
	require.NoError(t, ts.Save(ctx, snap))
	require.NoError(t, ts.Close())

	ts, err = sqlite.NewTripleStore(path)
	require.NoError(t, err)
	defer ts.Close()

	got, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Lyphs, len(snap.Lyphs))
	assert.Len(t, got.Lyphplates, len(snap.Lyphplates))
	assert.Len(t, got.Views, 1)
}

func TestOpen_ResolvesRelativePath(t *testing.T) {
	dir := testDir(t)
	b, err := store.Open(context.Background(), &store.StorageConfig{
		Backend: "sqlite",
		DataDir: dir,
		SQLite:  store.SQLiteConfig{Path: filepath.Join("nested", "graph.db")},
	})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "sqlite", b.Name())
	_, err = os.Stat(filepath.Join(dir, "nested", "graph.db"))
	assert.NoError(t, err)
}
