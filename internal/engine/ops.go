// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"context"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/metrics"
)

func (e *Engine) CreateNode(ctx context.Context, req NodeRequest) (graph.Node, error) {
	if err := Validate(req); err != nil {
		return graph.Node{}, err
	}
	lt, _ := graph.ParseLocType(req.LocType)
	return mutate(ctx, e, "create_node", func(g *graph.Graph) (graph.Node, error) {
		return g.CreateNode(graph.NodeSpec{Location: req.Location, LocType: lt})
	})
}

func (e *Engine) SetNodeLocation(ctx context.Context, nodeID string, req LocationRequest) (graph.Node, error) {
	if err := Validate(req); err != nil {
		return graph.Node{}, err
	}
	lt := graph.LocInterior
	if req.LocType != "" {
		lt, _ = graph.ParseLocType(req.LocType)
	}
	return mutate(ctx, e, "set_node_location", func(g *graph.Graph) (graph.Node, error) {
		return g.SetNodeLocation(nodeID, req.Lyph, lt)
	})
}

func (e *Engine) CreateLyph(ctx context.Context, req LyphRequest) (graph.Lyph, error) {
	if err := Validate(req); err != nil {
		return graph.Lyph{}, err
	}
	return mutate(ctx, e, "create_lyph", func(g *graph.Graph) (graph.Lyph, error) {
		return g.CreateLyph(req.spec())
	})
}

func (e *Engine) EditLyph(ctx context.Context, id string, req LyphPatchRequest) (graph.Lyph, error) {
	if err := Validate(req); err != nil {
		return graph.Lyph{}, err
	}
	return mutate(ctx, e, "edit_lyph", func(g *graph.Graph) (graph.Lyph, error) {
		return g.EditLyph(id, req.patch())
	})
}

func (e *Engine) DeleteLyphs(ctx context.Context, req IDsRequest) (graph.DeleteResult, error) {
	if err := Validate(req); err != nil {
		return graph.DeleteResult{}, err
	}
	return mutate(ctx, e, "delete_lyphs", func(g *graph.Graph) (graph.DeleteResult, error) {
		return g.DeleteLyphs(req.IDs)
	})
}

func (e *Engine) DeleteNodes(ctx context.Context, req IDsRequest) (graph.DeleteResult, error) {
	if err := Validate(req); err != nil {
		return graph.DeleteResult{}, err
	}
	return mutate(ctx, e, "delete_nodes", func(g *graph.Graph) (graph.DeleteResult, error) {
		return g.DeleteNodes(req.IDs)
	})
}

func (e *Engine) Annotate(ctx context.Context, req AnnotateRequest) ([]graph.Lyph, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	return mutate(ctx, e, "annotate", func(g *graph.Graph) ([]graph.Lyph, error) {
		return g.Annotate(req.Lyphs, req.Pred, req.Obj, req.Pubmed)
	})
}

func (e *Engine) RemoveAnnotation(ctx context.Context, req UnannotateRequest) ([]graph.Lyph, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	return mutate(ctx, e, "remove_annotation", func(g *graph.Graph) ([]graph.Lyph, error) {
		return g.RemoveAnnotation(req.Lyphs, req.Obj)
	})
}

// Lyphplate resolves a reference. Ontology terms and bare names are promoted
// to new basic lyphplates; when that happens the graph is saved.
func (e *Engine) Lyphplate(ctx context.Context, ref string) (graph.Lyphplate, error) {
	return mutateIf(ctx, e, "lyphplate", func(g *graph.Graph) (graph.Lyphplate, bool, error) {
		before := g.Stats().Lyphplates
		t, err := g.Lyphplate(ref)
		return t, err == nil && g.Stats().Lyphplates > before, err
	})
}

func (e *Engine) CreateLyphplate(ctx context.Context, req LyphplateRequest) (graph.Lyphplate, error) {
	if err := Validate(req); err != nil {
		return graph.Lyphplate{}, err
	}
	return mutate(ctx, e, "create_lyphplate", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.CreateLyphplate(req.spec())
	})
}

func (e *Engine) EditLyphplate(ctx context.Context, id string, req LyphplatePatchRequest) (graph.Lyphplate, error) {
	if err := Validate(req); err != nil {
		return graph.Lyphplate{}, err
	}
	return mutate(ctx, e, "edit_lyphplate", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.EditLyphplate(id, req.patch())
	})
}

func (e *Engine) CloneLyphplate(ctx context.Context, id string) (graph.Lyphplate, error) {
	return mutate(ctx, e, "clone_lyphplate", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.CloneLyphplate(id)
	})
}

func (e *Engine) MoveLayer(ctx context.Context, templateID string, req LayerPositionRequest) (graph.Lyphplate, error) {
	if err := Validate(req); err != nil {
		return graph.Lyphplate{}, err
	}
	return mutate(ctx, e, "move_layer", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.MoveLayer(templateID, req.Layer, req.Position)
	})
}

func (e *Engine) InsertLayer(ctx context.Context, templateID string, req LayerPositionRequest) (graph.Lyphplate, error) {
	if err := Validate(req); err != nil {
		return graph.Lyphplate{}, err
	}
	return mutate(ctx, e, "insert_layer", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.InsertLayerAt(templateID, req.Layer, req.Position)
	})
}

func (e *Engine) RemoveLayerOccurrence(ctx context.Context, templateID string, req LayerPositionRequest) (graph.Lyphplate, error) {
	if err := Validate(req); err != nil {
		return graph.Lyphplate{}, err
	}
	return mutate(ctx, e, "remove_layer", func(g *graph.Graph) (graph.Lyphplate, error) {
		return g.RemoveLayerOccurrence(templateID, req.Layer, req.Position)
	})
}

func (e *Engine) CreateLayer(ctx context.Context, req LayerRequest) (graph.Layer, error) {
	if err := Validate(req); err != nil {
		return graph.Layer{}, err
	}
	return mutate(ctx, e, "create_layer", func(g *graph.Graph) (graph.Layer, error) {
		return g.CreateLayer(req.spec())
	})
}

func (e *Engine) EditLayer(ctx context.Context, id string, req LayerPatchRequest) (graph.Layer, error) {
	if err := Validate(req); err != nil {
		return graph.Layer{}, err
	}
	patch, opts := req.patch()
	return mutate(ctx, e, "edit_layer", func(g *graph.Graph) (graph.Layer, error) {
		return g.EditLayer(id, patch, opts)
	})
}

func (e *Engine) CloneLayer(ctx context.Context, id string) (graph.Layer, error) {
	return mutate(ctx, e, "clone_layer", func(g *graph.Graph) (graph.Layer, error) {
		return g.CloneLayer(id)
	})
}

func (e *Engine) DeleteTemplates(ctx context.Context, req DeleteTemplatesRequest) (graph.TemplateDeletionResult, error) {
	if err := Validate(req); err != nil {
		return graph.TemplateDeletionResult{}, err
	}
	return mutate(ctx, e, "delete_templates", func(g *graph.Graph) (graph.TemplateDeletionResult, error) {
		return g.DeleteTemplates(graph.TemplateDeletion{
			Lyphplates: req.Lyphplates,
			Layers:     req.Layers,
			Recursive:  req.Recursive,
		})
	})
}

func (e *Engine) CreateView(ctx context.Context, req ViewRequest) (graph.View, error) {
	if err := Validate(req); err != nil {
		return graph.View{}, err
	}
	return mutate(ctx, e, "create_view", func(g *graph.Graph) (graph.View, error) {
		return g.CreateView(graph.ViewSpec{Name: req.Name, Nodes: req.Nodes, Rects: req.Rects})
	})
}

func (e *Engine) AddNodesToView(ctx context.Context, id string, req ViewNodesRequest) (graph.View, error) {
	if err := Validate(req); err != nil {
		return graph.View{}, err
	}
	return mutate(ctx, e, "add_view_nodes", func(g *graph.Graph) (graph.View, error) {
		return g.AddNodesToView(id, req.Nodes)
	})
}

func (e *Engine) RemoveNodesFromView(ctx context.Context, id string, req IDsRequest) (graph.View, error) {
	if err := Validate(req); err != nil {
		return graph.View{}, err
	}
	return mutate(ctx, e, "remove_view_nodes", func(g *graph.Graph) (graph.View, error) {
		return g.RemoveNodesFromView(id, req.IDs)
	})
}

func (e *Engine) RenameView(ctx context.Context, id, name string) (graph.View, error) {
	return mutate(ctx, e, "rename_view", func(g *graph.Graph) (graph.View, error) {
		return g.RenameView(id, name)
	})
}

func (e *Engine) DeleteViews(ctx context.Context, req IDsRequest) ([]string, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	return mutate(ctx, e, "delete_views", func(g *graph.Graph) ([]string, error) {
		return g.DeleteViews(req.IDs)
	})
}

// FindPaths runs a path search. It does not take the engine lock; the graph
// guards its own reads.
func (e *Engine) FindPaths(req PathRequest) ([]graph.Path, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	paths, err := read("find_paths", func() ([]graph.Path, error) {
		return e.graph.FindPaths(req.query(e.maxPaths))
	})
	if err == nil {
		metrics.ObservePaths(len(paths))
	}
	return paths, err
}
