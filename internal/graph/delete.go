// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// DeleteResult reports what a lyph or node deletion removed.
type DeleteResult struct {
	Lyphs []string `json:"lyphs,omitempty"`
	Nodes []string `json:"nodes,omitempty"`
	// Views lists views whose content changed. A view may be left empty.
	Views          []string `json:"views,omitempty"`
	HadAnnotations bool     `json:"had_annotations"`
}

// DeleteLyphs removes lyphs. Nodes housed in a removed lyph lose their
// location rather than moving up to the next housing lyph; rectangles for
// removed lyphs are stripped from views.
func (g *Graph) DeleteLyphs(ids []string) (DeleteResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	targets, err := g.lyphsLocked(ids)
	if err != nil {
		return DeleteResult{}, err
	}

	var res DeleteResult
	g.deleteLyphs(targets, &res)
	return res, nil
}

// deleteLyphs runs the mark and sweep over lyphs. Callers have already
// resolved every target.
func (g *Graph) deleteLyphs(targets []*lyphEntry, res *DeleteResult) {
	var doomed []*lyphEntry
	for _, l := range targets {
		if l.state != Live {
			continue
		}
		l.state = Doomed
		doomed = append(doomed, l)
	}
	if len(doomed) == 0 {
		return
	}

	isDoomed := func(id string) bool {
		l, ok := g.lyphs[id]
		return ok && l.state == Doomed
	}

	for _, vid := range sortedKeys(g.views) {
		v := g.views[vid]
		before := len(v.Rects)
		v.Rects = slices.DeleteFunc(v.Rects, func(r ViewRect) bool { return isDoomed(r.Lyph) })
		if len(v.Rects) != before {
			res.Views = appendUnique(res.Views, vid)
		}
	}

	for _, n := range g.nodes {
		if n.Location != "" && isDoomed(n.Location) {
			n.Location = ""
			n.LocType = LocNone
		}
	}

	for _, l := range doomed {
		g.unlink(l)
		g.unindexLyph(l)
		if len(l.Annotations) > 0 {
			res.HadAnnotations = true
		}
		delete(g.lyphs, l.ID)
		l.state = Removed
		res.Lyphs = append(res.Lyphs, l.ID)
	}
	slices.SortFunc(res.Lyphs, compareIDs)
}

// DeleteNodes removes nodes together with every lyph touching them. Views
// that lose all their content through this path are kept, empty.
func (g *Graph) DeleteNodes(ids []string) (DeleteResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(ids) == 0 {
		return DeleteResult{}, lypherr.New(lypherr.CodeGraphInputInvalid, "no nodes given")
	}

	var targets []*nodeEntry
	for _, id := range ids {
		n, err := g.nodeLocked(id)
		if err != nil {
			return DeleteResult{}, err
		}
		if !slices.Contains(targets, n) {
			targets = append(targets, n)
		}
	}

	var res DeleteResult
	var incident []*lyphEntry
	for _, n := range targets {
		n.state = Doomed
		for _, lid := range g.incident(n) {
			if l := g.lyphs[lid]; !slices.Contains(incident, l) {
				incident = append(incident, l)
			}
		}
	}
	g.deleteLyphs(incident, &res)

	isDoomed := func(id string) bool {
		n, ok := g.nodes[id]
		return ok && n.state == Doomed
	}
	for _, vid := range sortedKeys(g.views) {
		v := g.views[vid]
		before := len(v.Nodes)
		v.Nodes = slices.DeleteFunc(v.Nodes, func(vn ViewNode) bool { return isDoomed(vn.Node) })
		if len(v.Nodes) != before {
			res.Views = appendUnique(res.Views, vid)
		}
	}

	for _, n := range targets {
		if len(n.Exits) > 0 || len(n.Incoming) > 0 {
			panic(fmt.Sprintf("graph: node %s still has lyphs after its lyphs were deleted", n.ID))
		}
		delete(g.nodes, n.ID)
		n.state = Removed
		res.Nodes = append(res.Nodes, n.ID)
	}
	slices.SortFunc(res.Nodes, compareIDs)
	slices.SortFunc(res.Views, compareIDs)

	return res, nil
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
