// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemory_SavedSnapshotIsCopied(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	snap := storetest.Sample(t).Snapshot()
	require.NoError(t, m.Save(ctx, snap))
	snap.Lyphs[0].Name = "changed after save"

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "changed after save", got.Lyphs[0].Name)
	assert.Equal(t, 1, m.Saves())
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, m.Save(ctx, nil), store.ErrClosed)
	assert.Equal(t, 0, m.Saves())
}

func TestDigest(t *testing.T) {
	a := codec.Files{codec.EdgesFile: []byte("1\t1\t(nofma)\t1\t2\t\n"), codec.ViewsFile: []byte("TopView 0\n")}
	b := codec.Files{codec.ViewsFile: []byte("TopView 0\n"), codec.EdgesFile: []byte("1\t1\t(nofma)\t1\t2\t\n")}
	assert.Equal(t, store.Digest(a), store.Digest(b))

	// Moving bytes between files changes the digest.
	c := codec.Files{codec.EdgesFile: []byte("1\t1\t(nofma)\t1\t2\t\nTopView 0\n"), codec.ViewsFile: nil}
	assert.NotEqual(t, store.Digest(a), store.Digest(c))
	assert.Len(t, store.Digest(nil), 64)
}
