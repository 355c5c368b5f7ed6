// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graph holds the in-memory lyph graph: lyphs, nodes, lyphplates,
// layers and views, together with the location, deletion and path engines
// that operate on them.
//
// Entities are stored in per-kind maps keyed by id. Tries index names,
// FMA terms, species and ontology terms for lookup and autocomplete; they
// are never the authoritative enumeration. Every exported method takes the
// graph lock and returns copies, so callers never share mutable state with
// the graph.
package graph

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sigil-dev/lyph/internal/trie"
)

// Labeler returns a display label for an ontology term, or "" if unknown.
type Labeler func(term string) string

// Option configures a Graph.
type Option func(*Graph)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// WithOntologyPrefixes sets the prefixes (e.g. "FMA", "UBERON") whose terms
// may be promoted into basic lyphplates on first reference.
func WithOntologyPrefixes(prefixes ...string) Option {
	return func(g *Graph) {
		g.ontPrefixes = slices.Clone(prefixes)
	}
}

func WithLabeler(l Labeler) Option {
	return func(g *Graph) {
		g.labeler = l
	}
}

// WithAutocomplete overrides the presort and postsort limits used by the
// prefix lookups.
func WithAutocomplete(presort, postsort int) Option {
	return func(g *Graph) {
		g.presort = presort
		g.postsort = postsort
	}
}

var DefaultOntologyPrefixes = []string{"FMA", "UBERON", "GO", "CL", "CHEBI", "PATO"}

type kind int

const (
	kindLyph kind = iota
	kindNode
	kindLyphplate
	kindLayer
	kindView
	kindCount
)

type Graph struct {
	mu sync.RWMutex

	lyphs     map[string]*lyphEntry
	nodes     map[string]*nodeEntry
	templates map[string]*templateEntry
	layers    map[string]*layerEntry
	views     map[string]*View

	lyphNames     index
	lyphFMA       index
	lyphSpecies   index
	templateNames index
	ontTerms      index

	topID [kindCount]int

	// templates promoted by the mutation in progress
	promoted []*templateEntry

	logger      *slog.Logger
	now         func() time.Time
	ontPrefixes []string
	labeler     Labeler
	presort     int
	postsort    int
}

func New(opts ...Option) *Graph {
	g := &Graph{
		logger:      slog.Default(),
		now:         time.Now,
		ontPrefixes: slices.Clone(DefaultOntologyPrefixes),
		presort:     trie.DefaultPresort,
		postsort:    trie.DefaultPostsort,
	}
	g.reset()

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Graph) reset() {
	g.lyphs = make(map[string]*lyphEntry)
	g.nodes = make(map[string]*nodeEntry)
	g.templates = make(map[string]*templateEntry)
	g.layers = make(map[string]*layerEntry)
	g.views = make(map[string]*View)

	g.lyphNames = newIndex()
	g.lyphFMA = newIndex()
	g.lyphSpecies = newIndex()
	g.templateNames = newIndex()
	g.ontTerms = newIndex()

	g.topID = [kindCount]int{}
	g.promoted = nil
}

func (g *Graph) newID(k kind) string {
	g.topID[k]++
	return strconv.Itoa(g.topID[k])
}

// noteID raises the id counter for k so freshly assigned ids never collide
// with loaded ones. Non-numeric ids are ignored.
func (g *Graph) noteID(k kind, id string) {
	if n, err := strconv.Atoi(id); err == nil && n > g.topID[k] {
		g.topID[k] = n
	}
}

func (g *Graph) timestamp() time.Time {
	return g.now().UTC().Truncate(time.Second)
}

// compareIDs orders numeric ids numerically and everything else after them
// lexically.
func compareIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, compareIDs)
	return keys
}

// index maps a string key to the ids carrying it.
type index struct {
	t *trie.Trie[[]string]
}

func newIndex() index {
	return index{t: trie.New[[]string]()}
}

func (ix index) add(key, id string) {
	if key == "" {
		return
	}
	n := ix.t.Insert(key)
	ids, _ := n.Value()
	if !slices.Contains(ids, id) {
		n.Set(append(slices.Clone(ids), id))
	}
}

func (ix index) remove(key, id string) {
	if key == "" {
		return
	}
	n, ok := ix.t.Search(key)
	if !ok {
		return
	}
	ids, _ := n.Value()
	ids = slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id })
	if len(ids) == 0 {
		n.Clear()
		return
	}
	n.Set(ids)
}

func (ix index) get(key string) []string {
	ids, _ := ix.t.Lookup(key)
	return slices.Clone(ids)
}

func (ix index) prefix(prefix string, presort, postsort int) []string {
	var out []string
	for _, n := range ix.t.PrefixSearch(prefix, presort, postsort) {
		ids, _ := n.Value()
		out = append(out, ids...)
	}
	return out
}

func (g *Graph) indexLyph(l *lyphEntry) {
	g.lyphNames.add(l.Name, l.ID)
	g.lyphFMA.add(l.FMA, l.ID)
	g.lyphSpecies.add(l.Species, l.ID)
}

func (g *Graph) unindexLyph(l *lyphEntry) {
	g.lyphNames.remove(l.Name, l.ID)
	g.lyphFMA.remove(l.FMA, l.ID)
	g.lyphSpecies.remove(l.Species, l.ID)
}

func (g *Graph) indexTemplate(t *templateEntry) {
	g.templateNames.add(t.Name, t.ID)
	g.ontTerms.add(t.OntTerm, t.ID)
}

func (g *Graph) unindexTemplate(t *templateEntry) {
	g.templateNames.remove(t.Name, t.ID)
	g.ontTerms.remove(t.OntTerm, t.ID)
}

// Stats counts live entities.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{
		Lyphs:      len(g.lyphs),
		Nodes:      len(g.nodes),
		Lyphplates: len(g.templates),
		Layers:     len(g.layers),
		Views:      len(g.views),
	}
	for _, l := range g.lyphs {
		s.Annotations += len(l.Annotations)
	}
	return s
}
