// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// LyphSpec describes a lyph to create. An empty From or To creates a fresh
// node for that endpoint.
type LyphSpec struct {
	Name        string
	Type        LyphType
	From        string
	To          string
	Template    string
	Constraints []string
	FMA         string
	Species     string
	Pubmed      string
	Projection  string
}

// LyphPatch lists the fields to change on an existing lyph. Nil fields are
// left alone; an empty Template clears the template.
type LyphPatch struct {
	Name       *string
	Type       *LyphType
	From       *string
	To         *string
	Template   *string
	FMA        *string
	Species    *string
	Pubmed     *string
	Projection *string
}

// CreateLyph creates a lyph, or returns the existing live lyph that already
// joins the same endpoints with identical type, template, FMA term, species,
// pubmed and projection.
func (g *Graph) CreateLyph(spec LyphSpec) (_ Lyph, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	if !spec.Type.Valid() {
		return Lyph{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("lyph type must be 1, 2 or 3, got %d", spec.Type))
	}

	var from, to *nodeEntry
	if spec.From != "" {
		if from, err = g.nodeLocked(spec.From); err != nil {
			return Lyph{}, err
		}
	}
	if spec.To != "" {
		if to, err = g.nodeLocked(spec.To); err != nil {
			return Lyph{}, err
		}
	}

	constraints := make([]string, 0, len(spec.Constraints))
	for _, ref := range spec.Constraints {
		t, err := g.resolveLyphplate(ref)
		if err != nil {
			return Lyph{}, err
		}
		if !slices.Contains(constraints, t.ID) {
			constraints = append(constraints, t.ID)
		}
	}

	var templateID string
	if spec.Template != "" {
		t, err := g.resolveLyphplate(spec.Template)
		if err != nil {
			return Lyph{}, err
		}
		templateID = t.ID
	}

	if from != nil && to != nil {
		if dup := g.findDuplicateLyph(spec, from, to, templateID); dup != nil {
			return dup.clone(), nil
		}
	}

	if from == nil {
		from = g.makeNode()
	}
	if to == nil {
		to = g.makeNode()
	}

	l := &lyphEntry{Lyph: Lyph{
		ID:         g.newID(kindLyph),
		Name:       spec.Name,
		Type:       spec.Type,
		From:       from.ID,
		To:         to.ID,
		Template:   templateID,
		FMA:        spec.FMA,
		Species:    spec.Species,
		Pubmed:     spec.Pubmed,
		Projection: spec.Projection,
		Modified:   g.timestamp(),
	}}
	if len(constraints) > 0 {
		l.Constraints = constraints
	}

	g.lyphs[l.ID] = l
	g.link(l)
	g.indexLyph(l)

	return l.clone(), nil
}

func (g *Graph) findDuplicateLyph(spec LyphSpec, from, to *nodeEntry, templateID string) *lyphEntry {
	for _, x := range from.Exits {
		if x.Node != to.ID {
			continue
		}
		l, ok := g.lyphs[x.Lyph]
		if !ok || l.state != Live {
			continue
		}
		if l.Type == spec.Type &&
			l.Template == templateID &&
			l.FMA == spec.FMA &&
			l.Species == spec.Species &&
			l.Pubmed == spec.Pubmed &&
			l.Projection == spec.Projection {
			return l
		}
	}
	return nil
}

// EditLyph applies patch to a lyph. Moving an endpoint onto a node that is
// itself housed inside the lyph is rejected.
func (g *Graph) EditLyph(id string, patch LyphPatch) (_ Lyph, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	l, err := g.lyphLocked(id)
	if err != nil {
		return Lyph{}, err
	}

	if patch.Type != nil && !patch.Type.Valid() {
		return Lyph{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("lyph type must be 1, 2 or 3, got %d", *patch.Type), lypherr.FieldLyph(id))
	}

	from, to := l.From, l.To
	if patch.From != nil {
		from = *patch.From
	}
	if patch.To != nil {
		to = *patch.To
	}

	rewire := from != l.From || to != l.To
	if rewire {
		inside := g.nodesInLyph(l)
		for _, nid := range []string{from, to} {
			if _, err := g.nodeLocked(nid); err != nil {
				return Lyph{}, err
			}
			if inside[nid] {
				return Lyph{}, lypherr.New(lypherr.CodeGraphLocationInvalid,
					fmt.Sprintf("node %s is located inside lyph %s and cannot be its endpoint", nid, l.ID),
					lypherr.FieldLyph(l.ID), lypherr.FieldNode(nid))
			}
		}
	}

	templateID := l.Template
	if patch.Template != nil {
		templateID = ""
		if *patch.Template != "" {
			t, err := g.resolveLyphplate(*patch.Template)
			if err != nil {
				return Lyph{}, err
			}
			templateID = t.ID
		}
	}

	g.unindexLyph(l)
	if rewire {
		g.unlink(l)
		l.From, l.To = from, to
		g.link(l)
	}

	l.Template = templateID
	if patch.Type != nil {
		l.Type = *patch.Type
	}
	setIf(&l.Name, patch.Name)
	setIf(&l.FMA, patch.FMA)
	setIf(&l.Species, patch.Species)
	setIf(&l.Pubmed, patch.Pubmed)
	setIf(&l.Projection, patch.Projection)
	l.Modified = g.timestamp()
	g.indexLyph(l)

	return l.clone(), nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Lyph returns a copy of the lyph with the given id.
func (g *Graph) Lyph(id string) (Lyph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	l, err := g.lyphLocked(id)
	if err != nil {
		return Lyph{}, err
	}
	return l.clone(), nil
}

// Lyphs returns every lyph ordered by id.
func (g *Graph) Lyphs() []Lyph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.lyphCopies(sortedKeys(g.lyphs))
}

// LyphsByPrefix autocompletes lyph names.
func (g *Graph) LyphsByPrefix(prefix string) []Lyph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.lyphCopies(g.lyphNames.prefix(prefix, g.presort, g.postsort))
}

func (g *Graph) LyphsBySpecies(species string) []Lyph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.lyphSpecies.get(species)
	slices.SortFunc(ids, compareIDs)
	return g.lyphCopies(ids)
}

func (g *Graph) LyphsByFMA(fma string) []Lyph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.lyphFMA.get(fma)
	slices.SortFunc(ids, compareIDs)
	return g.lyphCopies(ids)
}

func (g *Graph) lyphCopies(ids []string) []Lyph {
	out := make([]Lyph, 0, len(ids))
	for _, id := range ids {
		if l, ok := g.lyphs[id]; ok && l.state == Live {
			out = append(out, l.clone())
		}
	}
	return out
}

func (g *Graph) lyphLocked(id string) (*lyphEntry, error) {
	l, ok := g.lyphs[id]
	if !ok || l.state != Live {
		return nil, lypherr.New(lypherr.CodeGraphLyphNotFound,
			fmt.Sprintf("lyph %q not found", id), lypherr.FieldLyph(id))
	}
	return l, nil
}

func (g *Graph) liveLyph(id string) *lyphEntry {
	if id == "" {
		return nil
	}
	l, ok := g.lyphs[id]
	if !ok || l.state != Live {
		return nil
	}
	return l
}

// Annotate attaches pred/obj to each lyph. Lyphs that already carry the same
// pred/obj pair are left unchanged.
func (g *Graph) Annotate(ids []string, pred, obj, pubmed string) ([]Lyph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pred == "" || obj == "" {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "annotation needs both pred and obj")
	}

	targets, err := g.lyphsLocked(ids)
	if err != nil {
		return nil, err
	}

	now := g.timestamp()
	out := make([]Lyph, 0, len(targets))
	for _, l := range targets {
		dup := slices.ContainsFunc(l.Annotations, func(a Annotation) bool {
			return a.Pred == pred && a.Obj == obj
		})
		if !dup {
			l.Annotations = append(l.Annotations, Annotation{Pred: pred, Obj: obj, Pubmed: pubmed})
			l.Modified = now
		}
		out = append(out, l.clone())
	}
	return out, nil
}

// RemoveAllAnnotations is the obj value that strips every annotation.
const RemoveAllAnnotations = "all"

// RemoveAnnotation strips annotations with the given object from each lyph,
// or every annotation when obj is "all". It fails if nothing was removed.
func (g *Graph) RemoveAnnotation(ids []string, obj string) ([]Lyph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if obj == "" {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "annotation obj is required")
	}

	targets, err := g.lyphsLocked(ids)
	if err != nil {
		return nil, err
	}

	removed := 0
	for _, l := range targets {
		before := len(l.Annotations)
		if obj == RemoveAllAnnotations {
			l.Annotations = nil
		} else {
			l.Annotations = slices.DeleteFunc(l.Annotations, func(a Annotation) bool { return a.Obj == obj })
		}
		removed += before - len(l.Annotations)
	}

	if removed == 0 {
		return nil, lypherr.New(lypherr.CodeGraphAnnotationMissing,
			fmt.Sprintf("no annotation %q on the given lyphs", obj), lypherr.Field("obj", obj))
	}

	now := g.timestamp()
	out := make([]Lyph, 0, len(targets))
	for _, l := range targets {
		l.Modified = now
		out = append(out, l.clone())
	}
	return out, nil
}

// LyphsByAnnotation returns lyphs carrying an annotation with predicate pred.
func (g *Graph) LyphsByAnnotation(pred string) []Lyph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Lyph
	for _, id := range sortedKeys(g.lyphs) {
		l := g.lyphs[id]
		if slices.ContainsFunc(l.Annotations, func(a Annotation) bool { return a.Pred == pred }) {
			out = append(out, l.clone())
		}
	}
	return out
}

// lyphsLocked resolves every id or fails without touching anything.
// Duplicate ids collapse to one entry.
func (g *Graph) lyphsLocked(ids []string) ([]*lyphEntry, error) {
	if len(ids) == 0 {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "no lyphs given")
	}

	out := make([]*lyphEntry, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		l, err := g.lyphLocked(id)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, l)
		}
	}
	return out, nil
}
