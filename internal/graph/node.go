// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// NodeSpec describes a node to create. Location is optional.
type NodeSpec struct {
	Location string
	LocType  LocType
}

func (g *Graph) CreateNode(spec NodeSpec) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var loc *lyphEntry
	if spec.Location != "" {
		var err error
		if loc, err = g.lyphLocked(spec.Location); err != nil {
			return Node{}, err
		}
	}

	n := g.makeNode()
	if loc != nil {
		n.Location = loc.ID
		n.LocType = defaultLocType(spec.LocType)
	}
	return n.clone(), nil
}

func (g *Graph) makeNode() *nodeEntry {
	n := &nodeEntry{Node: Node{ID: g.newID(kindNode)}}
	g.nodes[n.ID] = n
	return n
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, err := g.nodeLocked(id)
	if err != nil {
		return Node{}, err
	}
	return n.clone(), nil
}

// Nodes returns every node ordered by id.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Node, 0, len(g.nodes))
	for _, id := range sortedKeys(g.nodes) {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

func (g *Graph) nodeLocked(id string) (*nodeEntry, error) {
	n, ok := g.nodes[id]
	if !ok || n.state != Live {
		return nil, lypherr.New(lypherr.CodeGraphNodeNotFound,
			fmt.Sprintf("node %q not found", id), lypherr.FieldNode(id))
	}
	return n, nil
}

// SetNodeLocation houses a node inside a lyph, or clears its location when
// lyphID is empty. Placements that would make a lyph contain itself through
// its own endpoints are rejected.
func (g *Graph) SetNodeLocation(nodeID, lyphID string, loctype LocType) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.nodeLocked(nodeID)
	if err != nil {
		return Node{}, err
	}

	if lyphID == "" {
		n.Location = ""
		n.LocType = LocNone
		return n.clone(), nil
	}

	l, err := g.lyphLocked(lyphID)
	if err != nil {
		return Node{}, err
	}

	if !g.canNodeFitInLyph(n, l) {
		return Node{}, lypherr.New(lypherr.CodeGraphLocationInvalid,
			fmt.Sprintf("node %s cannot be placed in lyph %s without making it contain itself", n.ID, l.ID),
			lypherr.FieldNode(n.ID), lypherr.FieldLyph(l.ID))
	}

	n.Location = l.ID
	n.LocType = defaultLocType(loctype)
	return n.clone(), nil
}

// CanNodeFitInLyph reports whether the node could be housed in the lyph.
func (g *Graph) CanNodeFitInLyph(nodeID, lyphID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, err := g.nodeLocked(nodeID)
	if err != nil {
		return false, err
	}
	l, err := g.lyphLocked(lyphID)
	if err != nil {
		return false, err
	}
	return g.canNodeFitInLyph(n, l), nil
}

func defaultLocType(t LocType) LocType {
	if t == LocNone {
		return LocInterior
	}
	return t
}

// incident returns the ids of every lyph touching n, outgoing first.
func (g *Graph) incident(n *nodeEntry) []string {
	ids := make([]string, 0, len(n.Exits)+len(n.Incoming))
	for _, x := range n.Exits {
		ids = append(ids, x.Lyph)
	}
	for _, x := range n.Incoming {
		if !slices.Contains(ids, x.Lyph) {
			ids = append(ids, x.Lyph)
		}
	}
	return ids
}

func (g *Graph) link(l *lyphEntry) {
	from := g.mustNode(l.From, l.ID)
	to := g.mustNode(l.To, l.ID)
	from.Exits = append(from.Exits, Exit{Lyph: l.ID, Node: l.To})
	to.Incoming = append(to.Incoming, Exit{Lyph: l.ID, Node: l.From})
}

func (g *Graph) unlink(l *lyphEntry) {
	from := g.mustNode(l.From, l.ID)
	to := g.mustNode(l.To, l.ID)
	from.Exits = dropExit(from.Exits, l.ID)
	to.Incoming = dropExit(to.Incoming, l.ID)
}

func (g *Graph) mustNode(id, lyphID string) *nodeEntry {
	n, ok := g.nodes[id]
	if !ok {
		panic(fmt.Sprintf("graph: lyph %s references missing node %s", lyphID, id))
	}
	return n
}

func dropExit(exits []Exit, lyphID string) []Exit {
	return slices.DeleteFunc(exits, func(x Exit) bool { return x.Lyph == lyphID })
}
