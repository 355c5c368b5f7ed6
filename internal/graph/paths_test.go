// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph_test

import (
	"testing"

	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds 1 -a-> 2 -b-> 3 plus a detour 1 -c-> 4 -d-> 3.
func chain(t *testing.T, g *graph.Graph, tplB string) (a, b, c, d graph.Lyph) {
	t.Helper()
	a = mustLyph(t, g, graph.LyphSpec{Name: "a"})
	b = mustLyph(t, g, graph.LyphSpec{Name: "b", From: a.To, Template: tplB})
	c = mustLyph(t, g, graph.LyphSpec{Name: "c", From: a.From})
	d = mustLyph(t, g, graph.LyphSpec{Name: "d", From: c.To, To: b.To, Type: graph.NIF})
	return a, b, c, d
}

func TestFindPaths_Shortest(t *testing.T) {
	g := newGraph(t)
	a, b, _, _ := chain(t, g, "")

	paths, err := g.FindPaths(graph.PathQuery{From: []string{a.From}, To: []string{b.To}})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{a.ID, b.ID}, paths[0].Lyphs)
	assert.Equal(t, []string{a.From, a.To, b.To}, paths[0].Nodes)
}

func TestFindPaths_SourceIsGoal(t *testing.T) {
	g := newGraph(t)
	a, _, _, _ := chain(t, g, "")

	paths, err := g.FindPaths(graph.PathQuery{From: []string{a.From}, To: []string{a.From}})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestFindPaths_Reverse(t *testing.T) {
	g := newGraph(t)
	a, b, _, _ := chain(t, g, "")

	paths, err := g.FindPaths(graph.PathQuery{From: []string{b.To}, To: []string{a.From}})
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = g.FindPaths(graph.PathQuery{From: []string{b.To}, To: []string{a.From}, IncludeReverse: true})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{b.ID, a.ID}, paths[0].Lyphs)
}

func TestFindPaths_AvoidAndNIF(t *testing.T) {
	g := newGraph(t)
	a, b, c, d := chain(t, g, "")

	q := graph.PathQuery{From: []string{a.From}, To: []string{b.To}, Avoid: []string{a.To}}
	paths, err := g.FindPaths(q)
	require.NoError(t, err)
	assert.Empty(t, paths, "the only non-NIF route goes through the avoided node")

	q.IncludeNIF = true
	paths, err = g.FindPaths(q)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{c.ID, d.ID}, paths[0].Lyphs)
}

func TestFindPaths_TemplateFilter(t *testing.T) {
	g := newGraph(t)
	vessel := mustBasic(t, g, "vessel")
	artery := mustBasic(t, g, "artery", vessel.ID)
	nerve := mustBasic(t, g, "nerve")

	n1 := mustNode(t, g)
	n2 := mustNode(t, g)
	n3 := mustNode(t, g)
	typed := mustLyph(t, g, graph.LyphSpec{From: n1.ID, To: n2.ID, Template: artery.ID})
	untyped := mustLyph(t, g, graph.LyphSpec{From: n2.ID, To: n3.ID})

	q := graph.PathQuery{
		From:   []string{n1.ID},
		To:     []string{n3.ID},
		Filter: &graph.PathFilter{Template: vessel.ID},
	}
	paths, err := g.FindPaths(q)
	require.NoError(t, err)
	assert.Empty(t, paths)

	q.Filter.AcceptUntyped = true
	paths, err = g.FindPaths(q)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{typed.ID, untyped.ID}, paths[0].Lyphs)

	q.Filter = &graph.PathFilter{Template: nerve.ID, AcceptUntyped: true}
	paths, err = g.FindPaths(q)
	require.NoError(t, err)
	assert.Empty(t, paths)

	constrained := mustLyph(t, g, graph.LyphSpec{From: n1.ID, To: n3.ID, Constraints: []string{artery.ID}})
	q.Filter = &graph.PathFilter{Template: vessel.ID}
	paths, err = g.FindPaths(q)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{constrained.ID}, paths[0].Lyphs)

	q.Filter = &graph.PathFilter{Template: "404"}
	_, err = g.FindPaths(q)
	assert.True(t, lypherr.IsNotFound(err))
}

func TestFindPaths_MaxPaths(t *testing.T) {
	g := newGraph(t)
	hub := mustNode(t, g)

	var goals []string
	for range 20 {
		l := mustLyph(t, g, graph.LyphSpec{From: hub.ID})
		goals = append(goals, l.To)
	}

	paths, err := g.FindPaths(graph.PathQuery{From: []string{hub.ID}, To: goals})
	require.NoError(t, err)
	assert.Len(t, paths, graph.DefaultMaxPaths)

	paths, err = g.FindPaths(graph.PathQuery{From: []string{hub.ID}, To: goals, MaxPaths: 3})
	require.NoError(t, err)
	assert.Len(t, paths, 3)
	for _, p := range paths {
		assert.Len(t, p.Lyphs, 1)
	}
}

func TestFindPaths_MultiSource(t *testing.T) {
	g := newGraph(t)
	a := mustLyph(t, g, graph.LyphSpec{})
	b := mustLyph(t, g, graph.LyphSpec{To: a.To})

	paths, err := g.FindPaths(graph.PathQuery{From: []string{a.From, b.From}, To: []string{a.To}})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{a.ID}, paths[0].Lyphs)

	_, err = g.FindPaths(graph.PathQuery{From: []string{"404"}, To: []string{a.To}})
	assert.True(t, lypherr.IsNotFound(err))
	_, err = g.FindPaths(graph.PathQuery{To: []string{a.To}})
	assert.True(t, lypherr.IsInvalidInput(err))
}
