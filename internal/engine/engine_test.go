// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newGraph() *graph.Graph {
	return graph.New(graph.WithClock(func() time.Time { return fixedNow }))
}

// flakyBackend wraps Memory and fails on demand.
type flakyBackend struct {
	*store.Memory

	mu       sync.Mutex
	failLoad bool
	failSave bool
	changed  bool
}

func (f *flakyBackend) Load(ctx context.Context) (*graph.Snapshot, error) {
	f.mu.Lock()
	fail := f.failLoad
	f.mu.Unlock()
	if fail {
		return nil, store.ReadFailure(errors.New("disk on fire"), "flaky")
	}
	return f.Memory.Load(ctx)
}

func (f *flakyBackend) Save(ctx context.Context, s *graph.Snapshot) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return store.WriteFailure(errors.New("disk full"), "flaky")
	}
	return f.Memory.Save(ctx, s)
}

func (f *flakyBackend) Changed(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed, nil
}

func (f *flakyBackend) set(fn func(*flakyBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newEngine(t *testing.T) (*engine.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	e := engine.New(newGraph(), mem)
	require.NoError(t, e.Load(context.Background()))
	return e, mem
}

func TestEngine_MutationsSave(t *testing.T) {
	ctx := context.Background()
	e, mem := newEngine(t)

	l, err := e.CreateLyph(ctx, engine.LyphRequest{Name: "aorta", Type: "advective"})
	require.NoError(t, err)
	assert.Equal(t, graph.Advective, l.Type)
	assert.Equal(t, 1, mem.Saves())

	snap, err := mem.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lyphs, 1)
	assert.Equal(t, "aorta", snap.Lyphs[0].Name)

	name := "thoracic aorta"
	_, err = e.EditLyph(ctx, l.ID, engine.LyphPatchRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Saves())
}

func TestEngine_RejectedOperationDoesNotSave(t *testing.T) {
	ctx := context.Background()
	e, mem := newEngine(t)

	_, err := e.EditLyph(ctx, "404", engine.LyphPatchRequest{})
	require.Error(t, err)
	assert.True(t, lypherr.IsNotFound(err))

	_, err = e.CreateLyph(ctx, engine.LyphRequest{Type: "sideways"})
	require.Error(t, err)
	assert.True(t, lypherr.IsInvalidInput(err))

	assert.Equal(t, 0, mem.Saves())
}

func TestEngine_SaveFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	fb := &flakyBackend{Memory: store.NewMemory()}
	e := engine.New(newGraph(), fb)
	require.NoError(t, e.Load(ctx))

	fb.set(func(f *flakyBackend) { f.failSave = true })
	n, err := e.CreateNode(ctx, engine.NodeRequest{})
	require.NoError(t, err)

	_, err = e.Graph().Node(n.ID)
	require.NoError(t, err)

	h := e.StoreHealth()
	assert.False(t, h.Available)
	assert.Equal(t, int64(1), h.FailureCount)
	assert.Contains(t, h.LastError, "disk full")

	fb.set(func(f *flakyBackend) { f.failSave = false })
	_, err = e.CreateNode(ctx, engine.NodeRequest{})
	require.NoError(t, err)
	assert.True(t, e.StoreHealth().Available)
	assert.Equal(t, 1, fb.Saves())
}

func TestEngine_LoadFailureStartsEmpty(t *testing.T) {
	ctx := context.Background()
	fb := &flakyBackend{Memory: store.NewMemory(), failLoad: true}
	g := newGraph()
	_, err := g.CreateNode(graph.NodeSpec{})
	require.NoError(t, err)

	e := engine.New(g, fb)
	err = e.Load(ctx)
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeStoreReadFailure))
	assert.Empty(t, e.Graph().Nodes())
	assert.False(t, e.StoreHealth().Available)
}

func TestEngine_ReloadKeepsGraphOnFailure(t *testing.T) {
	ctx := context.Background()
	fb := &flakyBackend{Memory: store.NewMemory()}
	e := engine.New(newGraph(), fb)
	require.NoError(t, e.Load(ctx))

	_, err := e.CreateLyph(ctx, engine.LyphRequest{Type: "1"})
	require.NoError(t, err)

	fb.set(func(f *flakyBackend) { f.failLoad = true })
	require.Error(t, e.Reload(ctx, engine.TriggerAPI))
	assert.Len(t, e.Graph().Lyphs(), 1)

	// Another writer replaced the stored graph.
	fb.set(func(f *flakyBackend) { f.failLoad = false })
	require.NoError(t, fb.Memory.Save(ctx, &graph.Snapshot{}))
	require.NoError(t, e.Reload(ctx, engine.TriggerWatch))
	assert.Empty(t, e.Graph().Lyphs())
}

func TestEngine_Changed(t *testing.T) {
	ctx := context.Background()

	e, _ := newEngine(t)
	changed, err := e.Changed(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "memory backend cannot detect changes")

	fb := &flakyBackend{Memory: store.NewMemory(), changed: true}
	e = engine.New(newGraph(), fb)
	changed, err = e.Changed(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestEngine_ApplyRollsBack(t *testing.T) {
	ctx := context.Background()
	e, mem := newEngine(t)

	err := e.Apply(ctx, "import", func(g *graph.Graph) error {
		if _, err := g.CreateNode(graph.NodeSpec{}); err != nil {
			return err
		}
		_, err := g.CreateLyph(graph.LyphSpec{Type: graph.Advective, From: "999"})
		return err
	})
	require.Error(t, err)
	assert.Empty(t, e.Graph().Nodes())
	assert.Equal(t, 0, mem.Saves())

	err = e.Apply(ctx, "import", func(g *graph.Graph) error {
		for range 3 {
			if _, err := g.CreateNode(graph.NodeSpec{}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, e.Graph().Nodes(), 3)
	assert.Equal(t, 1, mem.Saves())
}

func TestEngine_ApplyRollbackKeepsIDCounters(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	err := e.Apply(ctx, "import", func(g *graph.Graph) error {
		for range 3 {
			if _, err := g.CreateNode(graph.NodeSpec{}); err != nil {
				return err
			}
		}
		_, err := g.DeleteNodes([]string{"3"})
		return err
	})
	require.NoError(t, err)

	err = e.Apply(ctx, "import", func(g *graph.Graph) error {
		return lypherr.New(lypherr.CodeGraphInputInvalid, "bad fixture")
	})
	require.Error(t, err)

	var n graph.Node
	err = e.Apply(ctx, "import", func(g *graph.Graph) error {
		var err error
		n, err = g.CreateNode(graph.NodeSpec{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "4", n.ID, "ids of deleted nodes are not handed out again")
}

func TestEngine_LyphplatePromotionSaves(t *testing.T) {
	ctx := context.Background()
	e, mem := newEngine(t)

	tpl, err := e.Lyphplate(ctx, "FMA_7088")
	require.NoError(t, err)
	assert.Equal(t, graph.TemplateBasic, tpl.Type)
	assert.Equal(t, 1, mem.Saves())

	again, err := e.Lyphplate(ctx, "FMA_7088")
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, again.ID)
	assert.Equal(t, 1, mem.Saves(), "existing lyphplate is not saved again")

	_, err = e.Lyphplate(ctx, "no such thing")
	assert.True(t, lypherr.HasCode(err, lypherr.CodeGraphLyphplateNotFound))
}

func TestEngine_TemplateLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	thick := 3
	muscle, err := e.CreateLayer(ctx, engine.LayerRequest{Name: "muscle", Thickness: &thick})
	require.NoError(t, err)
	lumen, err := e.CreateLayer(ctx, engine.LayerRequest{Name: "lumen"})
	require.NoError(t, err)

	vessel, err := e.CreateLyphplate(ctx, engine.LyphplateRequest{
		Name:   "vessel",
		Type:   "shell",
		Layers: []string{lumen.ID, muscle.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{lumen.ID, muscle.ID}, vessel.Layers)

	vessel, err = e.MoveLayer(ctx, vessel.ID, engine.LayerPositionRequest{Layer: muscle.ID, Position: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{muscle.ID, lumen.ID}, vessel.Layers)

	vessel, err = e.RemoveLayerOccurrence(ctx, vessel.ID, engine.LayerPositionRequest{Layer: muscle.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{lumen.ID}, vessel.Layers)

	clone, err := e.CloneLyphplate(ctx, vessel.ID)
	require.NoError(t, err)
	assert.NotEqual(t, vessel.ID, clone.ID)

	res, err := e.DeleteTemplates(ctx, engine.DeleteTemplatesRequest{Lyphplates: []string{clone.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{clone.ID}, res.Lyphplates)
}

func TestEngine_ViewsAndAnnotations(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	l, err := e.CreateLyph(ctx, engine.LyphRequest{Name: "vein", Type: "diffusive"})
	require.NoError(t, err)

	annotated, err := e.Annotate(ctx, engine.AnnotateRequest{Lyphs: []string{l.ID}, Pred: "part_of", Obj: "FMA_7088"})
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	assert.Len(t, annotated[0].Annotations, 1)

	cleared, err := e.RemoveAnnotation(ctx, engine.UnannotateRequest{Lyphs: []string{l.ID}, Obj: graph.RemoveAllAnnotations})
	require.NoError(t, err)
	assert.Empty(t, cleared[0].Annotations)

	v, err := e.CreateView(ctx, engine.ViewRequest{Name: "overview", Nodes: []graph.ViewNode{{Node: l.From, X: 10, Y: 20}}})
	require.NoError(t, err)

	v, err = e.RenameView(ctx, v.ID, "main")
	require.NoError(t, err)
	assert.Equal(t, "main", v.Name)

	deleted, err := e.DeleteViews(ctx, engine.IDsRequest{IDs: []string{v.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{v.ID}, deleted)
}

func TestEngine_DeleteLyphsCascades(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	l, err := e.CreateLyph(ctx, engine.LyphRequest{Type: "advective"})
	require.NoError(t, err)

	res, err := e.DeleteLyphs(ctx, engine.IDsRequest{IDs: []string{l.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{l.ID}, res.Lyphs)
	assert.Empty(t, e.Graph().Lyphs())
}

func TestEngine_FindPathsDefaultsCap(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := engine.New(newGraph(), mem, engine.WithMaxPaths(1))

	src, err := e.CreateNode(ctx, engine.NodeRequest{})
	require.NoError(t, err)
	var goals []string
	for range 3 {
		l, err := e.CreateLyph(ctx, engine.LyphRequest{Type: "advective", From: src.ID})
		require.NoError(t, err)
		goals = append(goals, l.To)
	}

	paths, err := e.FindPaths(engine.PathRequest{From: []string{src.ID}, To: goals})
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	paths, err = e.FindPaths(engine.PathRequest{From: []string{src.ID}, To: goals, MaxPaths: 10})
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}
