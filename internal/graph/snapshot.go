// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"slices"
)

// Snapshot is the full persistent state of a graph as plain data. Node exit
// lists are derived from lyphs and are not part of it.
type Snapshot struct {
	Lyphs      []Lyph      `json:"lyphs"`
	Nodes      []Node      `json:"nodes"`
	Lyphplates []Lyphplate `json:"lyphplates"`
	Layers     []Layer     `json:"layers"`
	Views      []View      `json:"views"`
}

// Snapshot copies the current state.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &Snapshot{
		Lyphs:      make([]Lyph, 0, len(g.lyphs)),
		Nodes:      make([]Node, 0, len(g.nodes)),
		Lyphplates: make([]Lyphplate, 0, len(g.templates)),
		Layers:     make([]Layer, 0, len(g.layers)),
		Views:      make([]View, 0, len(g.views)),
	}
	for _, id := range sortedKeys(g.lyphs) {
		s.Lyphs = append(s.Lyphs, g.lyphs[id].clone())
	}
	for _, id := range sortedKeys(g.nodes) {
		n := g.nodes[id]
		s.Nodes = append(s.Nodes, Node{ID: n.ID, Location: n.Location, LocType: n.LocType})
	}
	for _, id := range sortedKeys(g.templates) {
		s.Lyphplates = append(s.Lyphplates, g.templates[id].clone())
	}
	for _, id := range sortedKeys(g.layers) {
		s.Layers = append(s.Layers, g.layers[id].clone())
	}
	for _, id := range sortedKeys(g.views) {
		s.Views = append(s.Views, g.views[id].clone())
	}
	return s
}

// Restore replaces the graph's state with s. Dangling references are
// repaired the way a load from disk would: missing endpoint nodes are
// created, unknown templates, layers and materials are dropped, and a layered
// template left without layers is dropped too. Loaded node locations are not
// re-validated. A nil snapshot empties the graph.
func (g *Graph) Restore(s *Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.restoreLocked(s)
}

// Checkpoint is a graph state to return to with Rollback.
type Checkpoint struct {
	snap  *Snapshot
	topID [kindCount]int
}

// Checkpoint captures the current state together with the id counters.
func (g *Graph) Checkpoint() *Checkpoint {
	snap := g.Snapshot()

	g.mu.RLock()
	defer g.mu.RUnlock()
	return &Checkpoint{snap: snap, topID: g.topID}
}

// Rollback returns the graph to cp. Ids handed out before the checkpoint,
// including those of entities deleted since, are not reused.
func (g *Graph) Rollback(cp *Checkpoint) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.restoreLocked(cp.snap)
	for k := range g.topID {
		g.topID[k] = max(g.topID[k], cp.topID[k])
	}
}

func (g *Graph) restoreLocked(s *Snapshot) {
	g.reset()
	if s == nil {
		return
	}

	for _, t := range s.Lyphplates {
		if t.ID == "" || !t.Type.Valid() {
			g.logger.Warn("skipping lyphplate with bad id or type", "lyphplate", t.ID, "type", t.Type)
			continue
		}
		e := &templateEntry{Lyphplate: t.clone()}
		if !e.Type.Layered() {
			e.Layers = nil
		}
		g.templates[e.ID] = e
		g.noteID(kindLyphplate, e.ID)
	}
	for _, l := range s.Layers {
		if l.ID == "" {
			continue
		}
		g.layers[l.ID] = &layerEntry{Layer: l.clone()}
		g.noteID(kindLayer, l.ID)
	}
	g.pruneTemplates()
	for _, t := range g.templates {
		g.indexTemplate(t)
	}

	for _, n := range s.Nodes {
		if n.ID == "" {
			continue
		}
		g.nodes[n.ID] = &nodeEntry{Node: Node{ID: n.ID, Location: n.Location, LocType: n.LocType}}
		g.noteID(kindNode, n.ID)
	}

	for _, src := range s.Lyphs {
		if src.ID == "" || !src.Type.Valid() || src.From == "" || src.To == "" {
			g.logger.Warn("skipping malformed lyph", "lyph", src.ID, "type", int(src.Type))
			continue
		}
		if g.lyphs[src.ID] != nil {
			g.logger.Warn("skipping duplicate lyph", "lyph", src.ID)
			continue
		}
		l := &lyphEntry{Lyph: src.clone()}
		for _, nid := range []string{l.From, l.To} {
			if _, ok := g.nodes[nid]; !ok {
				g.nodes[nid] = &nodeEntry{Node: Node{ID: nid}}
				g.noteID(kindNode, nid)
			}
		}
		if l.Template != "" && g.templates[l.Template] == nil {
			g.logger.Warn("dropping unknown template from lyph", "lyph", l.ID, "lyphplate", l.Template)
			l.Template = ""
		}
		l.Constraints = slices.DeleteFunc(l.Constraints, func(id string) bool { return g.templates[id] == nil })
		if len(l.Constraints) == 0 {
			l.Constraints = nil
		}

		g.lyphs[l.ID] = l
		g.noteID(kindLyph, l.ID)
		g.link(l)
		g.indexLyph(l)
	}

	for _, n := range g.nodes {
		if n.Location != "" && g.lyphs[n.Location] == nil {
			g.logger.Warn("ignoring location in unknown lyph", "node", n.ID, "lyph", n.Location)
			n.Location = ""
		}
		if n.Location == "" {
			n.LocType = LocNone
		} else if n.LocType == LocNone {
			n.LocType = LocInterior
		}
	}

	for _, src := range s.Views {
		if src.ID == "" {
			continue
		}
		v := src.clone()
		v.Nodes = slices.DeleteFunc(v.Nodes, func(vn ViewNode) bool { return g.nodes[vn.Node] == nil })
		v.Rects = slices.DeleteFunc(v.Rects, func(r ViewRect) bool { return g.lyphs[r.Lyph] == nil })
		g.views[v.ID] = &v
		g.noteID(kindView, v.ID)
	}
}

// pruneTemplates drops references to missing templates and layers until the
// template/layer set is closed under reference.
func (g *Graph) pruneTemplates() {
	for changed := true; changed; {
		changed = false

		for _, lyr := range g.layers {
			kept := slices.DeleteFunc(slices.Clone(lyr.Materials), func(id string) bool { return g.templates[id] == nil })
			if len(kept) != len(lyr.Materials) {
				g.logger.Warn("dropping unknown materials from layer", "layer", lyr.ID)
				lyr.Materials = kept
			}
			if lyr.Materials == nil {
				lyr.Materials = []string{}
			}
		}

		for _, id := range sortedKeys(g.templates) {
			t := g.templates[id]
			misc := slices.DeleteFunc(slices.Clone(t.Misc), func(id string) bool { return g.templates[id] == nil })
			layers := slices.DeleteFunc(slices.Clone(t.Layers), func(id string) bool { return g.layers[id] == nil })
			if len(misc) != len(t.Misc) || len(layers) != len(t.Layers) {
				g.logger.Warn("dropping unknown references from lyphplate", "lyphplate", t.ID)
				t.Misc, t.Layers = misc, layers
			}
			if t.Type.Layered() && len(t.Layers) == 0 {
				g.logger.Warn("dropping layered lyphplate without layers", "lyphplate", t.ID)
				delete(g.templates, id)
				changed = true
			}
		}
	}
}
