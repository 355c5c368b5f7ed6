// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// DefaultMaxPaths caps FindPaths when the query leaves MaxPaths unset.
const DefaultMaxPaths = 16

// PathFilter restricts the lyphs a path may use. A typed lyph passes when
// its template is built from Template. An untyped lyph with constraints
// passes when every constraint is built from Template; one without passes
// only with AcceptUntyped.
type PathFilter struct {
	Template      string
	AcceptUntyped bool
}

type PathQuery struct {
	From           []string
	To             []string
	Filter         *PathFilter
	MaxPaths       int
	Avoid          []string
	IncludeReverse bool
	IncludeNIF     bool
}

// Path is a route from a source node to a goal node. Nodes has one more
// entry than Lyphs.
type Path struct {
	Lyphs []string `json:"lyphs"`
	Nodes []string `json:"nodes"`
}

type step struct {
	node  string
	lyph  string
	depth int
	back  *step
}

// FindPaths runs a breadth-first search from every source at once and
// returns one shortest path per goal node reached, up to MaxPaths. A source
// that is also a goal yields no path.
func (g *Graph) FindPaths(q PathQuery) ([]Path, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(q.From) == 0 || len(q.To) == 0 {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "path search needs source and goal nodes")
	}
	for _, ids := range [][]string{q.From, q.To, q.Avoid} {
		for _, id := range ids {
			if _, err := g.nodeLocked(id); err != nil {
				return nil, err
			}
		}
	}

	var filterID string
	if q.Filter != nil {
		t := g.lookupLyphplate(q.Filter.Template)
		if t == nil {
			return nil, lypherr.New(lypherr.CodeGraphLyphplateNotFound,
				"path filter lyphplate not found", lypherr.FieldLyphplate(q.Filter.Template))
		}
		filterID = t.ID
	}

	maxPaths := q.MaxPaths
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}

	goal := make(map[string]bool, len(q.To))
	for _, id := range q.To {
		goal[id] = true
	}

	visited := make(map[string]bool)
	for _, id := range q.Avoid {
		visited[id] = true
	}

	var queue []*step
	for _, id := range q.From {
		if visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, &step{node: id})
	}

	notFrom := make(map[string]bool)
	passes := func(l *lyphEntry) bool {
		if l.Type == NIF && !q.IncludeNIF {
			return false
		}
		if q.Filter == nil {
			return true
		}
		if l.Template != "" {
			return g.builtFrom(l.Template, filterID, notFrom)
		}
		if len(l.Constraints) == 0 {
			return q.Filter.AcceptUntyped
		}
		for _, c := range l.Constraints {
			if !g.builtFrom(c, filterID, notFrom) {
				return false
			}
		}
		return true
	}

	var paths []Path
	for len(queue) > 0 && len(paths) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > 0 && goal[cur.node] {
			paths = append(paths, backtrace(cur))
			continue
		}

		n := g.nodes[cur.node]
		expand := func(exits []Exit) {
			for _, x := range exits {
				if visited[x.Node] {
					continue
				}
				l := g.lyphs[x.Lyph]
				if !passes(l) {
					continue
				}
				visited[x.Node] = true
				queue = append(queue, &step{node: x.Node, lyph: l.ID, depth: cur.depth + 1, back: cur})
			}
		}
		expand(n.Exits)
		if q.IncludeReverse {
			expand(n.Incoming)
		}
	}

	return paths, nil
}

func backtrace(s *step) Path {
	p := Path{
		Lyphs: make([]string, 0, s.depth),
		Nodes: make([]string, 0, s.depth+1),
	}
	for ; s != nil; s = s.back {
		p.Nodes = append(p.Nodes, s.node)
		if s.lyph != "" {
			p.Lyphs = append(p.Lyphs, s.lyph)
		}
	}
	slices.Reverse(p.Lyphs)
	slices.Reverse(p.Nodes)
	return p
}
