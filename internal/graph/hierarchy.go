// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"slices"
)

// HierarchyMember is one lyphplate in a hierarchy level with its direct and
// inherited superclasses.
type HierarchyMember struct {
	ID           string   `json:"id"`
	Superclasses []string `json:"superclasses"`
}

// Superclasses returns the ids of every lyphplate that id specializes,
// ordered by id. A layered lyphplate S is a superclass of T when both have
// the same type and layer count and each layer of S is the same layer as, or
// a superlayer of, the layer of T at that position. Superclasses of a
// superclass are included.
func (g *Graph) Superclasses(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.templateLocked(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(g.newHierarchy().superclasses(t)), nil
}

// Subclasses returns the ids of every lyphplate that has id among its
// superclasses, ordered by id.
func (g *Graph) Subclasses(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, err := g.templateLocked(id); err != nil {
		return nil, err
	}

	h := g.newHierarchy()
	var subs []string
	for _, tid := range sortedKeys(g.templates) {
		t := g.templates[tid]
		if t.state == Live && slices.Contains(h.superclasses(t), id) {
			subs = append(subs, tid)
		}
	}
	return subs, nil
}

// Hierarchy arranges the lyphplates into levels: the first holds those
// without superclasses, and each later level holds those whose superclasses
// all appear in earlier levels.
func (g *Graph) Hierarchy() [][]HierarchyMember {
	g.mu.RLock()
	defer g.mu.RUnlock()

	h := g.newHierarchy()
	ids := sortedKeys(g.templates)
	placed := make(map[string]bool, len(ids))

	var levels [][]HierarchyMember
	for {
		var level []HierarchyMember
		for _, id := range ids {
			t := g.templates[id]
			if placed[id] || t.state != Live {
				continue
			}
			supers := h.superclasses(t)
			if !allPlaced(supers, placed) {
				continue
			}
			level = append(level, HierarchyMember{ID: id, Superclasses: append([]string{}, supers...)})
		}
		if len(level) == 0 {
			return levels
		}
		for _, m := range level {
			placed[m.ID] = true
		}
		levels = append(levels, level)
	}
}

func allPlaced(ids []string, placed map[string]bool) bool {
	for _, id := range ids {
		if !placed[id] {
			return false
		}
	}
	return true
}

// hierarchy computes superclass sets for one query. The sets follow the
// current composition, so they always reflect edits and deletions.
type hierarchy struct {
	g      *Graph
	supers map[string][]string
	busy   map[string]bool
}

func (g *Graph) newHierarchy() *hierarchy {
	return &hierarchy{
		g:      g,
		supers: make(map[string][]string),
		busy:   make(map[string]bool),
	}
}

func (h *hierarchy) superclasses(t *templateEntry) []string {
	if s, ok := h.supers[t.ID]; ok {
		return s
	}
	if h.busy[t.ID] {
		return nil
	}
	h.busy[t.ID] = true
	defer delete(h.busy, t.ID)

	var out []string
	add := func(id string) {
		if id != t.ID && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if t.Type.Layered() {
		for _, id := range sortedKeys(h.g.templates) {
			sup := h.g.templates[id]
			if sup.state != Live || !h.superByLayers(sup, t) {
				continue
			}
			add(sup.ID)
			for _, s := range h.superclasses(sup) {
				add(s)
			}
		}
	}
	slices.SortFunc(out, compareIDs)

	h.supers[t.ID] = out
	return out
}

func (h *hierarchy) superByLayers(sup, sub *templateEntry) bool {
	if sup == sub || sup.Type != sub.Type || len(sup.Layers) == 0 || len(sup.Layers) != len(sub.Layers) {
		return false
	}
	for i := range sup.Layers {
		if !h.superLayer(sup.Layers[i], sub.Layers[i]) {
			return false
		}
	}
	return true
}

// superLayer reports whether every material of layer sup is a material of
// layer sub or a superclass of one.
func (h *hierarchy) superLayer(sup, sub string) bool {
	if sup == sub {
		return true
	}
	ls, ok := h.g.layers[sup]
	if !ok || len(ls.Materials) == 0 {
		return false
	}
	lb, ok := h.g.layers[sub]
	if !ok {
		return false
	}
	for _, m := range ls.Materials {
		if !h.covers(m, lb.Materials) {
			return false
		}
	}
	return true
}

func (h *hierarchy) covers(sup string, materials []string) bool {
	for _, m := range materials {
		if m == sup {
			return true
		}
		if t, ok := h.g.templates[m]; ok && slices.Contains(h.superclasses(t), sup) {
			return true
		}
	}
	return false
}
