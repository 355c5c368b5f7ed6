// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package files_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/sigil-dev/lyph/internal/store/files"
	"github.com/sigil-dev/lyph/internal/store/storetest"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendContract(t *testing.T) {
	b, err := files.New(t.TempDir())
	require.NoError(t, err)
	storetest.Run(t, b)
}

func TestSave_WritesEveryFile(t *testing.T) {
	dir := t.TempDir()
	b, err := files.New(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), storetest.Sample(t).Snapshot()))

	for _, fn := range codec.FileNames {
		info, err := os.Stat(filepath.Join(dir, fn))
		require.NoError(t, err, fn)
		assert.False(t, info.IsDir())
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(codec.FileNames), "no temporary files left behind")

	edges, err := os.ReadFile(filepath.Join(dir, codec.EdgesFile))
	require.NoError(t, err)
	assert.Contains(t, string(edges), "aorta")
}

func TestChanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := files.New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, b.WatchDir())

	require.NoError(t, b.Save(ctx, storetest.Sample(t).Snapshot()))
	changed, err := b.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own writes are not changes")

	path := filepath.Join(dir, codec.EdgesFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("Node\t99\n")...), 0o600))

	changed, err = b.Changed(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	s, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, nodeIDs(s.Nodes), "99")

	changed, err = b.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "a load resets the baseline")
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, codec.ViewsFile), []byte("garbage\n"), 0o600))

	b, err := files.New(dir)
	require.NoError(t, err)
	_, err = b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeCodecParseInvalid))
	assert.Equal(t, "files", lypherr.FieldsOf(err)["backend"])
}

func TestOpen_RequiresDataDir(t *testing.T) {
	_, err := store.Open(context.Background(), &store.StorageConfig{Backend: "files"})
	require.Error(t, err)
	assert.True(t, lypherr.IsInvalidInput(err))

	b, err := store.Open(context.Background(), &store.StorageConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "files", b.Name())
}

func nodeIDs(nodes []graph.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
