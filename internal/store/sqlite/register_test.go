// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/lyph/internal/store"
	_ "github.com/sigil-dev/lyph/internal/store/sqlite"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Paths(t *testing.T) {
	dir := testDir(t)
	abs := filepath.Join(testDir(t), "abs", "graph.db")

	tests := []struct {
		name string
		cfg  store.StorageConfig
		want string
	}{
		{
			name: "default file in data dir",
			cfg:  store.StorageConfig{Backend: "sqlite", DataDir: filepath.Join(dir, "a")},
			want: filepath.Join(dir, "a", "lyph.db"),
		},
		{
			name: "relative path",
			cfg:  store.StorageConfig{Backend: "sqlite", DataDir: dir, SQLite: store.SQLiteConfig{Path: "nested/g.db"}},
			want: filepath.Join(dir, "nested", "g.db"),
		},
		{
			name: "absolute path ignores data dir",
			cfg:  store.StorageConfig{Backend: "sqlite", SQLite: store.SQLiteConfig{Path: abs}},
			want: abs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := store.Open(context.Background(), &tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })

			assert.Equal(t, "sqlite", b.Name())
			assert.FileExists(t, tt.want)
		})
	}
}

func TestOpen_Failures(t *testing.T) {
	_, err := store.Open(context.Background(), &store.StorageConfig{Backend: "sqlite"})
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeStoreInvalidInput))

	// A directory where the database file should be.
	dir := testDir(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lyph.db"), 0o755))
	_, err = store.Open(context.Background(), &store.StorageConfig{Backend: "sqlite", DataDir: dir})
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeStoreReadFailure))
	assert.Contains(t, err.Error(), "creating triple store")
	assert.Equal(t, "sqlite", lypherr.FieldsOf(err)["backend"])
}
