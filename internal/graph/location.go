// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"math"
	"slices"
)

// LyphLocation returns the id of the lyph housing lyph id, or "" if it is
// not housed anywhere.
func (g *Graph) LyphLocation(id string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	l, err := g.lyphLocked(id)
	if err != nil {
		return "", err
	}
	if loc := g.newLocator().location(l); loc != nil {
		return loc.ID, nil
	}
	return "", nil
}

// RelativeLocation is LyphLocation ascending past every lyph in exclude,
// yielding the nearest housing lyph that is not excluded.
func (g *Graph) RelativeLocation(id string, exclude []string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	l, err := g.lyphLocked(id)
	if err != nil {
		return "", err
	}

	lc := g.newLocator()
	seen := map[string]bool{l.ID: true}
	loc := lc.location(l)
	for loc != nil && slices.Contains(exclude, loc.ID) {
		if seen[loc.ID] {
			return "", nil
		}
		seen[loc.ID] = true
		loc = lc.location(loc)
	}
	if loc == nil {
		return "", nil
	}
	return loc.ID, nil
}

// noCut is the low mark of a resolution that never met a lyph already being
// resolved.
const noCut = math.MaxInt

// locator resolves lyph locations for one query. Results that do not depend
// on the lyphs being resolved further up the stack are memoized.
type locator struct {
	g     *Graph
	depth map[string]int
	memo  map[string]*lyphEntry
}

func (g *Graph) newLocator() *locator {
	return &locator{
		g:     g,
		depth: make(map[string]int),
		memo:  make(map[string]*lyphEntry),
	}
}

func (lc *locator) location(e *lyphEntry) *lyphEntry {
	loc, _ := lc.locate(e)
	return loc
}

// locate finds the lyph housing e. Meeting a lyph whose location is being
// resolved further up the stack yields none; low reports the shallowest such
// lyph so callers know whether their own answer may be memoized.
func (lc *locator) locate(e *lyphEntry) (loc *lyphEntry, low int) {
	if loc, ok := lc.memo[e.ID]; ok {
		return loc, noCut
	}
	if d, ok := lc.depth[e.ID]; ok {
		return nil, d
	}

	d := len(lc.depth)
	lc.depth[e.ID] = d
	loc, low = lc.resolve(e)
	delete(lc.depth, e.ID)

	if low >= d {
		lc.memo[e.ID] = loc
		low = noCut
	}
	return loc, low
}

// resolve answers locate for e. When both endpoints sit in the same lyph that
// lyph is the answer. Otherwise the housing chain of the to-endpoint is
// marked and the from-endpoint's chain is climbed one level at a time until
// it meets a marked lyph.
func (lc *locator) resolve(e *lyphEntry) (*lyphEntry, int) {
	g := lc.g
	a := g.liveLyph(g.mustNode(e.From, e.ID).Location)
	b := g.liveLyph(g.mustNode(e.To, e.ID).Location)
	if a == nil || b == nil {
		return nil, noCut
	}
	if a == b {
		if a == e {
			return nil, noCut
		}
		return a, noCut
	}

	low := noCut
	house := make(map[string]bool)
	for x := b; x != nil && !house[x.ID]; {
		house[x.ID] = true
		var l int
		x, l = lc.locate(x)
		low = min(low, l)
	}

	climbed := make(map[string]bool)
	for x := a; x != nil && !climbed[x.ID]; {
		if house[x.ID] {
			if x == e {
				return nil, low
			}
			return x, low
		}
		climbed[x.ID] = true
		var l int
		x, l = lc.locate(x)
		low = min(low, l)
	}
	return nil, low
}

type tri uint8

const (
	unknown tri = iota
	calculating
	in
	out
)

// membership answers "is this node inside target" for one target lyph. The
// memo tables live only as long as the query.
type membership struct {
	g      *Graph
	target string
	nodes  map[string]tri
	lyphs  map[string]tri
}

func (g *Graph) newMembership(target string) *membership {
	return &membership{
		g:      g,
		target: target,
		nodes:  make(map[string]tri),
		lyphs:  make(map[string]tri),
	}
}

// nodeIn reports whether n is located in the target, either directly or
// through a lyph that is itself in the target.
func (m *membership) nodeIn(n *nodeEntry) bool {
	switch m.nodes[n.ID] {
	case in:
		return true
	case out, calculating:
		return false
	}
	m.nodes[n.ID] = calculating

	res := false
	if n.Location == m.target {
		res = true
	} else if l := m.g.liveLyph(n.Location); l != nil {
		res = m.lyphIn(l)
	}

	m.nodes[n.ID] = verdict(res)
	return res
}

// lyphIn reports whether l lies in the target through either endpoint.
func (m *membership) lyphIn(l *lyphEntry) bool {
	switch m.lyphs[l.ID] {
	case in:
		return true
	case out, calculating:
		return false
	}
	m.lyphs[l.ID] = calculating

	res := m.nodeIn(m.g.mustNode(l.From, l.ID)) || m.nodeIn(m.g.mustNode(l.To, l.ID))

	m.lyphs[l.ID] = verdict(res)
	return res
}

func verdict(b bool) tri {
	if b {
		return in
	}
	return out
}

// NodesInLyph returns the ids of every node transitively located inside the
// lyph, ordered by id.
func (g *Graph) NodesInLyph(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	l, err := g.lyphLocked(id)
	if err != nil {
		return nil, err
	}

	var ids []string
	for nid := range g.nodesInLyph(l) {
		ids = append(ids, nid)
	}
	slices.SortFunc(ids, compareIDs)
	return ids, nil
}

func (g *Graph) nodesInLyph(l *lyphEntry) map[string]bool {
	m := g.newMembership(l.ID)
	set := make(map[string]bool)
	for id, n := range g.nodes {
		if n.state == Live && m.nodeIn(n) {
			set[id] = true
		}
	}
	return set
}

// canNodeFitInLyph rejects placing n inside target when target is one of
// n's own lyphs, or when an endpoint of target already lies inside one of
// n's lyphs.
func (g *Graph) canNodeFitInLyph(n *nodeEntry, target *lyphEntry) bool {
	from := g.mustNode(target.From, target.ID)
	to := g.mustNode(target.To, target.ID)

	for _, id := range g.incident(n) {
		if id == target.ID {
			return false
		}
		m := g.newMembership(id)
		if m.nodeIn(from) || m.nodeIn(to) {
			return false
		}
	}
	return true
}
