// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// LyphplateSpec describes a template to create. Layers name existing layer
// ids; Misc entries are lyphplate references.
type LyphplateSpec struct {
	Name    string
	Type    TemplateType
	Layers  []string
	Misc    []string
	OntTerm string
	Length  string
}

type LyphplatePatch struct {
	Name    *string
	OntTerm *string
	Length  *string
	Misc    *[]string
	Layers  *[]string
}

// Lyphplate resolves ref as a template id, exact name or ontology term. A
// live lyph id or a recognized ontology term that has no template yet is
// promoted into a new basic template.
func (g *Graph) Lyphplate(ref string) (_ Lyphplate, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	t, err := g.resolveLyphplate(ref)
	if err != nil {
		return Lyphplate{}, err
	}
	return t.clone(), nil
}

// Lyphplates returns every template ordered by id.
func (g *Graph) Lyphplates() []Lyphplate {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.templateCopies(sortedKeys(g.templates))
}

// LyphplatesByPrefix autocompletes template names.
func (g *Graph) LyphplatesByPrefix(prefix string) []Lyphplate {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.templateCopies(g.templateNames.prefix(prefix, g.presort, g.postsort))
}

func (g *Graph) LyphplatesByOntTerm(term string) []Lyphplate {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.ontTerms.get(term)
	slices.SortFunc(ids, compareIDs)
	return g.templateCopies(ids)
}

func (g *Graph) templateCopies(ids []string) []Lyphplate {
	out := make([]Lyphplate, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.templates[id]; ok && t.state == Live {
			out = append(out, t.clone())
		}
	}
	return out
}

// lookupLyphplate finds an existing template without promoting anything.
func (g *Graph) lookupLyphplate(ref string) *templateEntry {
	if ref == "" {
		return nil
	}
	if t, ok := g.templates[ref]; ok && t.state == Live {
		return t
	}
	for _, id := range g.templateNames.get(ref) {
		if t, ok := g.templates[id]; ok && t.state == Live {
			return t
		}
	}
	for _, id := range g.ontTerms.get(ref) {
		if t, ok := g.templates[id]; ok && t.state == Live {
			return t
		}
	}
	return nil
}

func (g *Graph) resolveLyphplate(ref string) (*templateEntry, error) {
	if t := g.lookupLyphplate(ref); t != nil {
		return t, nil
	}

	if l := g.liveLyph(ref); l != nil {
		name := l.Name
		if name == "" {
			name = "Lyph " + l.ID
		}
		return g.promote(ref, name), nil
	}

	if g.isOntologyTerm(ref) {
		name := ref
		if g.labeler != nil {
			if label := g.labeler(ref); label != "" {
				name = label
			}
		}
		return g.promote(ref, name), nil
	}

	return nil, lypherr.New(lypherr.CodeGraphLyphplateNotFound,
		fmt.Sprintf("lyphplate %q not found", ref), lypherr.FieldLyphplate(ref))
}

// promote materializes a basic template keyed by term so later lookups find
// it through the ontology index.
func (g *Graph) promote(term, name string) *templateEntry {
	t := &templateEntry{Lyphplate: Lyphplate{
		ID:      g.newID(kindLyphplate),
		Name:    name,
		Type:    TemplateBasic,
		OntTerm: term,
	}}
	g.templates[t.ID] = t
	g.indexTemplate(t)
	g.promoted = append(g.promoted, t)
	g.logger.Debug("promoted basic lyphplate", "lyphplate", t.ID, "term", term)
	return t
}

// settlePromotions ends a mutation that may have promoted templates. When the
// mutation failed, the promoted templates are withdrawn and their ids are
// released.
func (g *Graph) settlePromotions(err error) {
	if err != nil {
		for i := len(g.promoted) - 1; i >= 0; i-- {
			t := g.promoted[i]
			g.unindexTemplate(t)
			delete(g.templates, t.ID)
			if t.ID == strconv.Itoa(g.topID[kindLyphplate]) {
				g.topID[kindLyphplate]--
			}
			g.logger.Debug("withdrew promoted lyphplate", "lyphplate", t.ID, "term", t.OntTerm)
		}
	}
	g.promoted = nil
}

func (g *Graph) isOntologyTerm(ref string) bool {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return true
	}
	for _, p := range g.ontPrefixes {
		if len(ref) > len(p)+1 && strings.HasPrefix(ref, p) {
			if sep := ref[len(p)]; sep == '_' || sep == ':' {
				return true
			}
		}
	}
	return false
}

func (g *Graph) templateLocked(id string) (*templateEntry, error) {
	t, ok := g.templates[id]
	if !ok || t.state != Live {
		return nil, lypherr.New(lypherr.CodeGraphLyphplateNotFound,
			fmt.Sprintf("lyphplate %q not found", id), lypherr.FieldLyphplate(id))
	}
	return t, nil
}

// BuiltFrom reports whether template x contains template y anywhere in its
// composition, counting x itself.
func (g *Graph) BuiltFrom(x, y string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, err := g.templateLocked(x); err != nil {
		return false, err
	}
	if _, err := g.templateLocked(y); err != nil {
		return false, err
	}
	return g.builtFrom(x, y, make(map[string]bool)), nil
}

// builtFrom walks misc materials and layer materials of x looking for y.
// notFrom memoizes templates already known not to contain y, so it may be
// shared across queries for the same y but never across different ones.
func (g *Graph) builtFrom(x, y string, notFrom map[string]bool) bool {
	if x == y {
		return true
	}
	if notFrom[x] {
		return false
	}
	notFrom[x] = true

	if g.composedOf(x, y, notFrom) {
		delete(notFrom, x)
		return true
	}
	return false
}

func (g *Graph) composedOf(x, y string, notFrom map[string]bool) bool {
	t, ok := g.templates[x]
	if !ok {
		return false
	}
	for _, m := range t.Misc {
		if g.builtFrom(m, y, notFrom) {
			return true
		}
	}
	for _, lid := range t.Layers {
		lyr, ok := g.layers[lid]
		if !ok {
			continue
		}
		for _, m := range lyr.Materials {
			if g.builtFrom(m, y, notFrom) {
				return true
			}
		}
	}
	return false
}

func (g *Graph) CreateLyphplate(spec LyphplateSpec) (_ Lyphplate, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	if spec.Name == "" {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid, "lyphplate name is required")
	}
	if !spec.Type.Valid() {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("unrecognized lyphplate type %q", spec.Type))
	}

	layers, err := g.checkLayerList(spec.Type, spec.Layers)
	if err != nil {
		return Lyphplate{}, err
	}

	misc, err := g.resolveMaterials(spec.Misc)
	if err != nil {
		return Lyphplate{}, err
	}

	t := &templateEntry{Lyphplate: Lyphplate{
		ID:      g.newID(kindLyphplate),
		Name:    spec.Name,
		Type:    spec.Type,
		Layers:  layers,
		Misc:    misc,
		OntTerm: spec.OntTerm,
		Length:  spec.Length,
	}}
	g.templates[t.ID] = t
	g.indexTemplate(t)

	return t.clone(), nil
}

func (g *Graph) checkLayerList(typ TemplateType, ids []string) ([]string, error) {
	if !typ.Layered() {
		if len(ids) > 0 {
			return nil, lypherr.New(lypherr.CodeGraphInputInvalid, "basic lyphplates cannot have layers")
		}
		return nil, nil
	}
	if len(ids) == 0 {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("%s lyphplates need at least one layer", typ))
	}
	for _, id := range ids {
		if _, err := g.layerLocked(id); err != nil {
			return nil, err
		}
	}
	return slices.Clone(ids), nil
}

// resolveMaterials resolves template references, dropping duplicates.
func (g *Graph) resolveMaterials(refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		t, err := g.resolveLyphplate(ref)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, t.ID) {
			out = append(out, t.ID)
		}
	}
	return out, nil
}

// EditLyphplate applies patch to a template. New misc materials and layers
// must not contain the template itself.
func (g *Graph) EditLyphplate(id string, patch LyphplatePatch) (_ Lyphplate, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	t, err := g.templateLocked(id)
	if err != nil {
		return Lyphplate{}, err
	}

	var misc, layers []string
	if patch.Misc != nil {
		if misc, err = g.resolveMaterials(*patch.Misc); err != nil {
			return Lyphplate{}, err
		}
		for _, m := range misc {
			if err := g.checkNoCycle(m, t.ID); err != nil {
				return Lyphplate{}, err
			}
		}
	}
	if patch.Layers != nil {
		if layers, err = g.checkLayerList(t.Type, *patch.Layers); err != nil {
			return Lyphplate{}, err
		}
		for _, lid := range layers {
			if err := g.checkLayerFits(g.layers[lid], t.ID); err != nil {
				return Lyphplate{}, err
			}
		}
	}
	if patch.Name != nil && *patch.Name == "" {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid, "lyphplate name cannot be empty")
	}

	g.unindexTemplate(t)
	setIf(&t.Name, patch.Name)
	setIf(&t.OntTerm, patch.OntTerm)
	setIf(&t.Length, patch.Length)
	if patch.Misc != nil {
		t.Misc = misc
	}
	if patch.Layers != nil {
		t.Layers = layers
	}
	g.indexTemplate(t)

	return t.clone(), nil
}

// checkNoCycle rejects using material inside container when material is
// already built from container.
func (g *Graph) checkNoCycle(material, container string) error {
	if g.builtFrom(material, container, make(map[string]bool)) {
		return lypherr.New(lypherr.CodeGraphCycleInvalid,
			fmt.Sprintf("lyphplate %s is built from %s; using it there would create a cycle", material, container),
			lypherr.FieldLyphplate(container), lypherr.Field("material", material))
	}
	return nil
}

func (g *Graph) checkLayerFits(lyr *layerEntry, container string) error {
	for _, m := range lyr.Materials {
		if err := g.checkNoCycle(m, container); err != nil {
			return lypherr.With(err, lypherr.FieldLayer(lyr.ID))
		}
	}
	return nil
}

// CloneLyphplate copies a template under a new id named "Clone of <name>".
// Layers and materials are shared by reference.
func (g *Graph) CloneLyphplate(id string) (Lyphplate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.templateLocked(id)
	if err != nil {
		return Lyphplate{}, err
	}

	t := &templateEntry{Lyphplate: src.clone()}
	t.ID = g.newID(kindLyphplate)
	t.Name = "Clone of " + src.Name
	t.OntTerm = ""
	g.templates[t.ID] = t
	g.indexTemplate(t)

	return t.clone(), nil
}

func (g *Graph) layeredTemplate(id string) (*templateEntry, error) {
	t, err := g.templateLocked(id)
	if err != nil {
		return nil, err
	}
	if !t.Type.Layered() {
		return nil, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("lyphplate %s is basic and has no layers", t.ID), lypherr.FieldLyphplate(t.ID))
	}
	return t, nil
}

// MoveLayer moves the first occurrence of layer to the 1-based position pos,
// shifting the layers in between.
func (g *Graph) MoveLayer(templateID, layerID string, pos int) (Lyphplate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.layeredTemplate(templateID)
	if err != nil {
		return Lyphplate{}, err
	}

	idx := slices.Index(t.Layers, layerID)
	if idx < 0 {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphLayerNotFound,
			fmt.Sprintf("layer %s is not part of lyphplate %s", layerID, t.ID),
			lypherr.FieldLayer(layerID), lypherr.FieldLyphplate(t.ID))
	}
	if pos < 1 || pos > len(t.Layers) {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("position %d is outside 1..%d", pos, len(t.Layers)), lypherr.FieldLyphplate(t.ID))
	}

	layers := slices.Delete(slices.Clone(t.Layers), idx, idx+1)
	t.Layers = slices.Insert(layers, pos-1, layerID)

	return t.clone(), nil
}

// InsertLayerAt splices a layer into a template at the 1-based position pos.
// Shell templates require a position; mix templates default to the front
// when pos is zero.
func (g *Graph) InsertLayerAt(templateID, layerID string, pos int) (Lyphplate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.layeredTemplate(templateID)
	if err != nil {
		return Lyphplate{}, err
	}
	lyr, err := g.layerLocked(layerID)
	if err != nil {
		return Lyphplate{}, err
	}

	if pos == 0 {
		if t.Type == TemplateShell {
			return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid,
				"shell lyphplates need an explicit layer position", lypherr.FieldLyphplate(t.ID))
		}
		pos = 1
	}
	if pos < 1 || pos > len(t.Layers)+1 {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("position %d is outside 1..%d", pos, len(t.Layers)+1), lypherr.FieldLyphplate(t.ID))
	}
	if err := g.checkLayerFits(lyr, t.ID); err != nil {
		return Lyphplate{}, err
	}

	t.Layers = slices.Insert(slices.Clone(t.Layers), pos-1, lyr.ID)
	return t.clone(), nil
}

// RemoveLayerOccurrence removes the occurrence-th (1-based; 0 means first)
// appearance of layer from a template. The last layer cannot be removed.
func (g *Graph) RemoveLayerOccurrence(templateID, layerID string, occurrence int) (Lyphplate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.layeredTemplate(templateID)
	if err != nil {
		return Lyphplate{}, err
	}
	if occurrence == 0 {
		occurrence = 1
	}

	idx, seen := -1, 0
	for i, id := range t.Layers {
		if id == layerID {
			seen++
			if seen == occurrence {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphLayerNotFound,
			fmt.Sprintf("lyphplate %s has no occurrence %d of layer %s", t.ID, occurrence, layerID),
			lypherr.FieldLayer(layerID), lypherr.FieldLyphplate(t.ID))
	}
	if len(t.Layers) == 1 {
		return Lyphplate{}, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("%s lyphplates need at least one layer", t.Type), lypherr.FieldLyphplate(t.ID))
	}

	t.Layers = slices.Delete(slices.Clone(t.Layers), idx, idx+1)
	return t.clone(), nil
}
