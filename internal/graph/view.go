// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

type ViewSpec struct {
	Name  string
	Nodes []ViewNode
	Rects []ViewRect
}

// CreateView stores a view, or returns an existing one with the same name,
// nodes and coordinates.
func (g *Graph) CreateView(spec ViewSpec) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, vn := range spec.Nodes {
		if _, err := g.nodeLocked(vn.Node); err != nil {
			return View{}, err
		}
	}
	for _, r := range spec.Rects {
		if _, err := g.lyphLocked(r.Lyph); err != nil {
			return View{}, err
		}
	}

	for _, id := range sortedKeys(g.views) {
		v := g.views[id]
		if v.Name == spec.Name && slices.Equal(v.Nodes, spec.Nodes) {
			return v.clone(), nil
		}
	}

	v := &View{
		ID:    g.newID(kindView),
		Name:  spec.Name,
		Nodes: slices.Clone(spec.Nodes),
		Rects: slices.Clone(spec.Rects),
	}
	g.views[v.ID] = v
	return v.clone(), nil
}

func (g *Graph) View(id string) (View, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, err := g.viewLocked(id)
	if err != nil {
		return View{}, err
	}
	return v.clone(), nil
}

// Views returns every view ordered by id.
func (g *Graph) Views() []View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]View, 0, len(g.views))
	for _, id := range sortedKeys(g.views) {
		out = append(out, g.views[id].clone())
	}
	return out
}

func (g *Graph) viewLocked(id string) (*View, error) {
	v, ok := g.views[id]
	if !ok {
		return nil, lypherr.New(lypherr.CodeGraphViewNotFound,
			fmt.Sprintf("view %q not found", id), lypherr.Field("view", id))
	}
	return v, nil
}

// AddNodesToView appends nodes to a view. Nodes already in the view are
// moved to the new coordinates instead.
func (g *Graph) AddNodesToView(id string, nodes []ViewNode) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := g.viewLocked(id)
	if err != nil {
		return View{}, err
	}
	for _, vn := range nodes {
		if _, err := g.nodeLocked(vn.Node); err != nil {
			return View{}, err
		}
	}

	updated := slices.Clone(v.Nodes)
	for _, vn := range nodes {
		i := slices.IndexFunc(updated, func(x ViewNode) bool { return x.Node == vn.Node })
		if i >= 0 {
			updated[i] = vn
			continue
		}
		updated = append(updated, vn)
	}
	v.Nodes = updated

	return v.clone(), nil
}

// RemoveNodesFromView drops nodes from a view. The edit is refused when it
// would leave the view with nothing in it.
func (g *Graph) RemoveNodesFromView(id string, nodeIDs []string) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := g.viewLocked(id)
	if err != nil {
		return View{}, err
	}

	remaining := slices.DeleteFunc(slices.Clone(v.Nodes), func(vn ViewNode) bool {
		return slices.Contains(nodeIDs, vn.Node)
	})
	if len(remaining) == 0 && len(v.Rects) == 0 {
		return View{}, lypherr.New(lypherr.CodeGraphViewEmptyConflict,
			fmt.Sprintf("removing these nodes would leave view %s empty", v.ID), lypherr.Field("view", v.ID))
	}

	v.Nodes = remaining
	return v.clone(), nil
}

func (g *Graph) RenameView(id, name string) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := g.viewLocked(id)
	if err != nil {
		return View{}, err
	}
	v.Name = name
	return v.clone(), nil
}

func (g *Graph) DeleteViews(ids []string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(ids) == 0 {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "no views given")
	}
	for _, id := range ids {
		if _, err := g.viewLocked(id); err != nil {
			return nil, err
		}
	}

	var removed []string
	for _, id := range ids {
		if _, ok := g.views[id]; ok {
			delete(g.views, id)
			removed = append(removed, id)
		}
	}
	slices.SortFunc(removed, compareIDs)
	return removed, nil
}
