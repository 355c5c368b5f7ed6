// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package badger_test

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/internal/store/badger"
	"github.com/sigil-dev/lyph/internal/store/storetest"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	s, err := badger.Open(badger.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, s)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	snap := storetest.Sample(t).Snapshot()
	require.NoError(t, s.Save(ctx, snap))
	require.NoError(t, s.Close())

	s, err = badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Lyphs, len(snap.Lyphs))
	assert.Len(t, got.Layers, len(snap.Layers))
}

func TestStore_KeysPerFile(t *testing.T) {
	dir := t.TempDir()
	s, err := badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), storetest.Sample(t).Snapshot()))
	require.NoError(t, s.Close())

	db, err := badgerdb.Open(badgerdb.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	var keys []string
	err = db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	require.NoError(t, err)

	var want []string
	for _, f := range (codec.Files{codec.AnnotationsFile: nil, codec.TemplatesFile: nil, codec.EdgesFile: nil, codec.ViewsFile: nil}).Names() {
		want = append(want, "graph/"+f)
	}
	assert.Equal(t, want, keys)
}

func TestStore_CorruptValue(t *testing.T) {
	dir := t.TempDir()
	db, err := badgerdb.Open(badgerdb.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("graph/"+codec.ViewsFile), []byte("not a view file\n"))
	}))
	require.NoError(t, db.Close())

	s, err := badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, lypherr.CodeCodecParseInvalid, lypherr.CodeOf(err))
	assert.Equal(t, "badger", lypherr.FieldsOf(err)["backend"])
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	require.Error(t, err)
	assert.True(t, lypherr.IsInvalidInput(err))

	_, err = store.Open(context.Background(), &store.StorageConfig{Backend: "badger"})
	require.Error(t, err)
	assert.True(t, lypherr.IsInvalidInput(err))
}

func TestOpen_ViaFactory(t *testing.T) {
	b, err := store.Open(context.Background(), &store.StorageConfig{
		Backend: "badger",
		Badger:  store.BadgerConfig{InMemory: true},
	})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "badger", b.Name())
}
