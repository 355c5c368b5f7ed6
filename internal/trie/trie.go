// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package trie implements the prefix-tree dictionary used to index ids,
// names and ontology terms. Siblings never share a first byte: every insert
// splits an existing edge at the longest common prefix instead of adding a
// parallel branch.
package trie

import (
	"sort"
	"strings"
)

// Autocomplete limits: at most DefaultPresort candidates are gathered
// breadth-first, then the DefaultPostsort shortest keys are returned.
const (
	DefaultPresort  = 30
	DefaultPostsort = 10
)

// Node is a single dictionary node. A node without a payload is either the
// root or a structural fork created by an edge split.
type Node[V any] struct {
	parent   *Node[V]
	label    string
	children []*Node[V]
	value    V
	hasValue bool
}

// Key reconstructs the full key by walking parent links.
func (n *Node[V]) Key() string {
	var labels []string
	for x := n; x != nil; x = x.parent {
		labels = append(labels, x.label)
	}

	var b strings.Builder
	for i := len(labels) - 1; i >= 0; i-- {
		b.WriteString(labels[i])
	}
	return b.String()
}

// Value returns the payload and whether one is set.
func (n *Node[V]) Value() (V, bool) {
	return n.value, n.hasValue
}

// Set stores a payload on the node.
func (n *Node[V]) Set(v V) {
	n.value = v
	n.hasValue = true
}

// Clear drops the payload. The node itself stays in place.
func (n *Node[V]) Clear() {
	var zero V
	n.value = zero
	n.hasValue = false
}

// HasValue reports whether the node carries a payload.
func (n *Node[V]) HasValue() bool {
	return n.hasValue
}

func (n *Node[V]) childIndex(c byte) (int, bool) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].label[0] >= c
	})
	return i, i < len(n.children) && n.children[i].label[0] == c
}

func (n *Node[V]) insertChild(i int, c *Node[V]) {
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
}

// Trie is a keyed dictionary. The trie owns all of its nodes; nodes are
// created or split on insertion and never individually removed.
type Trie[V any] struct {
	root *Node[V]
}

// New returns an empty trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{root: &Node[V]{}}
}

// Insert returns the node for key, creating it (and splitting an existing
// edge where only part of its label matches) if necessary. Insert is
// idempotent: inserting the same key twice yields the same node.
func (t *Trie[V]) Insert(key string) *Node[V] {
	n := t.root

	for {
		if key == "" {
			return n
		}

		i, ok := n.childIndex(key[0])
		if !ok {
			leaf := &Node[V]{parent: n, label: key}
			n.insertChild(i, leaf)
			return leaf
		}

		c := n.children[i]
		l := commonPrefix(c.label, key)
		if l == len(c.label) {
			n = c
			key = key[l:]
			continue
		}

		fork := &Node[V]{parent: n, label: c.label[:l], children: []*Node[V]{c}}
		c.label = c.label[l:]
		c.parent = fork
		n.children[i] = fork

		if l == len(key) {
			return fork
		}

		leaf := &Node[V]{parent: fork, label: key[l:]}
		j, _ := fork.childIndex(leaf.label[0])
		fork.insertChild(j, leaf)
		return leaf
	}
}

// Search returns the node whose full key is exactly key.
func (t *Trie[V]) Search(key string) (*Node[V], bool) {
	n := t.root

	for key != "" {
		i, ok := n.childIndex(key[0])
		if !ok {
			return nil, false
		}
		c := n.children[i]
		if !strings.HasPrefix(key, c.label) {
			return nil, false
		}
		key = key[len(c.label):]
		n = c
	}

	return n, true
}

// Put inserts key and stores v on its node.
func (t *Trie[V]) Put(key string, v V) *Node[V] {
	n := t.Insert(key)
	n.Set(v)
	return n
}

// Lookup returns the payload stored under key.
func (t *Trie[V]) Lookup(key string) (V, bool) {
	n, ok := t.Search(key)
	if !ok {
		var zero V
		return zero, false
	}
	return n.Value()
}

// Delete clears the payload stored under key and reports whether one existed.
func (t *Trie[V]) Delete(key string) bool {
	n, ok := t.Search(key)
	if !ok || !n.hasValue {
		return false
	}
	n.Clear()
	return true
}

// PrefixSearch returns payload-bearing nodes whose keys start with prefix.
// Candidates are collected breadth-first up to presort, ordered by ascending
// key length (shorter keys first) and truncated to postsort. Non-positive
// limits fall back to the defaults.
func (t *Trie[V]) PrefixSearch(prefix string, presort, postsort int) []*Node[V] {
	if presort <= 0 {
		presort = DefaultPresort
	}
	if postsort <= 0 {
		postsort = DefaultPostsort
	}

	start := t.prefixNode(prefix)
	if start == nil {
		return nil
	}

	type hit struct {
		node *Node[V]
		key  string
	}

	var hits []hit
	queue := []*Node[V]{start}
	for len(queue) > 0 && len(hits) < presort {
		n := queue[0]
		queue = queue[1:]

		if n.hasValue {
			hits = append(hits, hit{node: n, key: n.Key()})
		}
		queue = append(queue, n.children...)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return len(hits[i].key) < len(hits[j].key)
	})

	if len(hits) > postsort {
		hits = hits[:postsort]
	}

	out := make([]*Node[V], len(hits))
	for i, h := range hits {
		out[i] = h.node
	}
	return out
}

// prefixNode finds the shallowest node whose key starts with prefix. The
// prefix may end partway through an edge label.
func (t *Trie[V]) prefixNode(prefix string) *Node[V] {
	n := t.root

	for prefix != "" {
		i, ok := n.childIndex(prefix[0])
		if !ok {
			return nil
		}
		c := n.children[i]
		switch {
		case strings.HasPrefix(prefix, c.label):
			prefix = prefix[len(c.label):]
			n = c
		case strings.HasPrefix(c.label, prefix):
			return c
		default:
			return nil
		}
	}

	return n
}

// Walk visits every payload-bearing node in pre-order until visit returns
// false.
func (t *Trie[V]) Walk(visit func(n *Node[V]) bool) {
	walk(t.root, visit)
}

func walk[V any](n *Node[V], visit func(n *Node[V]) bool) bool {
	if n.hasValue && !visit(n) {
		return false
	}
	for _, c := range n.children {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
