// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package storetest holds the behaviour every store.Backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// Sample returns a small graph with templates, layers, located nodes, a
// view and annotations.
func Sample(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(graph.WithClock(func() time.Time { return fixedNow }))

	fat, err := g.CreateLyphplate(graph.LyphplateSpec{Name: "fat", Type: graph.TemplateBasic, OntTerm: "FMA_12345"})
	require.NoError(t, err)
	thick := 4
	lyr, err := g.CreateLayer(graph.LayerSpec{Name: "adventitia", Materials: []string{fat.ID}, Thickness: &thick})
	require.NoError(t, err)
	vessel, err := g.CreateLyphplate(graph.LyphplateSpec{Name: "vessel", Type: graph.TemplateShell, Layers: []string{lyr.ID}})
	require.NoError(t, err)

	aorta, err := g.CreateLyph(graph.LyphSpec{Name: "aorta", Type: graph.Advective, Template: vessel.ID, Species: "human"})
	require.NoError(t, err)
	_, err = g.CreateLyph(graph.LyphSpec{Name: "arch", Type: graph.Diffusive, From: aorta.To, Constraints: []string{fat.ID}})
	require.NoError(t, err)
	n, err := g.CreateNode(graph.NodeSpec{Location: aorta.ID})
	require.NoError(t, err)

	_, err = g.CreateView(graph.ViewSpec{Name: "overview", Nodes: []graph.ViewNode{{Node: n.ID, X: 3, Y: 4.5}}})
	require.NoError(t, err)
	_, err = g.Annotate([]string{aorta.ID}, "seeAlso", "http://example.org/aorta", "42")
	require.NoError(t, err)

	return g
}

// normalize passes a snapshot through a graph so that representation
// differences between backends (nil versus empty slices) do not matter.
func normalize(s *graph.Snapshot) *graph.Snapshot {
	g := graph.New()
	g.Restore(s)
	return g.Snapshot()
}

// Run exercises b against the shared backend contract. b must be empty.
func Run(t *testing.T, b store.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty load", func(t *testing.T) {
		s, err := b.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Empty(t, s.Lyphs)
		assert.Empty(t, s.Lyphplates)
	})

	g := Sample(t)
	want := g.Snapshot()

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, b.Save(ctx, want))
		got, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, normalize(want), normalize(got))
	})

	t.Run("save replaces previous state", func(t *testing.T) {
		_, err := g.DeleteLyphs([]string{"2"})
		require.NoError(t, err)
		next := g.Snapshot()

		require.NoError(t, b.Save(ctx, next))
		got, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, normalize(next), normalize(got))
		assert.Len(t, got.Lyphs, 1)
	})

	assert.NotEmpty(t, b.Name())
}
