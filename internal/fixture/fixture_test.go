// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package fixture_test

import (
	"context"
	"testing"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/fixture"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_Apply(t *testing.T) {
	f, err := fixture.ParseFile("testdata/pulmonary.yaml")
	require.NoError(t, err)

	g := graph.New()
	res, err := f.Apply(g)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Created)

	pa, err := g.Lyph(res.Keys["pa"])
	require.NoError(t, err)
	assert.Equal(t, "pulmonary artery", pa.Name)
	assert.Equal(t, res.Keys["heart"], pa.From)
	assert.Equal(t, res.Keys["lung"], pa.To)
	assert.Equal(t, res.Keys["vessel"], pa.Template)
	require.Len(t, pa.Annotations, 1)
	assert.Equal(t, "FMA_7088", pa.Annotations[0].Obj)

	vessel, err := g.Lyphplate(res.Keys["vessel"])
	require.NoError(t, err)
	assert.Equal(t, []string{res.Keys["lumen"], res.Keys["wall"]}, vessel.Layers)

	bed, err := g.Node(res.Keys["bed"])
	require.NoError(t, err)
	assert.Equal(t, pa.ID, bed.Location)
	assert.Equal(t, graph.LocBorder, bed.LocType)

	views := g.Views()
	require.Len(t, views, 1)
	assert.Equal(t, "overview", views[0].Name)
	assert.Len(t, views[0].Nodes, 2)
	assert.Equal(t, 80.0, views[0].Rects[0].Width)

	// The lumen material was promoted from its ontology term.
	assert.Equal(t, 2, g.Stats().Lyphplates)
}

func TestParse_Empty(t *testing.T) {
	f, err := fixture.Parse(nil)
	require.NoError(t, err)

	res, err := f.Apply(graph.New())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "unknown field",
			doc:     "lyphs:\n  - type: 1\n    colour: red\n",
			wantMsg: "colour",
		},
		{
			name:    "bad lyph type",
			doc:     "lyphs:\n  - type: sideways\n",
			wantMsg: "lyphs[0]",
		},
		{
			name:    "duplicate key",
			doc:     "nodes:\n  - key: a\nlyphs:\n  - key: a\n    type: 2\n",
			wantMsg: `key "a" already used by nodes[0]`,
		},
		{
			name:    "lyphplate without name",
			doc:     "lyphplates:\n  - type: basic\n",
			wantMsg: "name must not be empty",
		},
		{
			name:    "location without lyph",
			doc:     "locations:\n  - node: n\n",
			wantMsg: "node and lyph are required",
		},
		{
			name:    "not yaml",
			doc:     "lyphs: [",
			wantMsg: "fixture parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, lypherr.HasCode(err, lypherr.CodeFixtureInvalid))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := fixture.Parse([]byte("lyphplates:\n  - type: spiral\nlyphs:\n  - type: 9\n"))
	require.Error(t, err)
	assert.Equal(t, 3, lypherr.FieldsOf(err)["problems"])
}

func TestApply_GraphErrorNamesEntry(t *testing.T) {
	f, err := fixture.Parse([]byte("lyphs:\n  - type: 1\n    from: missing-node\n"))
	require.NoError(t, err)

	_, err = f.Apply(graph.New())
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeGraphNodeNotFound))
	assert.Equal(t, "lyphs[0]", lypherr.FieldsOf(err)["entry"])
}

func TestApply_ThroughEngineIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := engine.New(graph.New(), mem)

	f, err := fixture.Parse([]byte("nodes:\n  - key: a\n  - key: b\nlyphs:\n  - type: 1\n    from: a\n    to: nowhere\n"))
	require.NoError(t, err)

	err = e.Apply(ctx, "import", func(g *graph.Graph) error {
		_, err := f.Apply(g)
		return err
	})
	require.Error(t, err)
	assert.Empty(t, e.Graph().Nodes())
	assert.Zero(t, mem.Saves())
}
