// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// TemplateDeletion names the lyphplates and layers to delete. With Recursive
// set, anything built from a deleted template is deleted too and lyphs lose
// their template; without it, any live use aborts the whole deletion.
type TemplateDeletion struct {
	Lyphplates []string
	Layers     []string
	Recursive  bool
}

type TemplateDeletionResult struct {
	Lyphplates []string `json:"lyphplates,omitempty"`
	Layers     []string `json:"layers,omitempty"`
	// Untyped lists lyphs whose template was removed.
	Untyped []string `json:"untyped,omitempty"`
}

// templateSweep tracks every mark made during one deletion so it can be
// rolled back.
type templateSweep struct {
	g         *Graph
	templates []*templateEntry
	layers    []*layerEntry
}

func (s *templateSweep) doomTemplate(t *templateEntry) bool {
	if t.state != Live {
		return false
	}
	t.state = Doomed
	s.templates = append(s.templates, t)
	return true
}

func (s *templateSweep) doomLayer(l *layerEntry) bool {
	if l.state != Live {
		return false
	}
	l.state = Doomed
	s.layers = append(s.layers, l)
	return true
}

func (s *templateSweep) rollback() {
	for _, t := range s.templates {
		t.state = Live
	}
	for _, l := range s.layers {
		l.state = Live
	}
	s.templates, s.layers = nil, nil
}

func (s *templateSweep) templateDoomed(id string) bool {
	t, ok := s.g.templates[id]
	return ok && t.state == Doomed
}

func (s *templateSweep) layerDoomed(id string) bool {
	l, ok := s.g.layers[id]
	return ok && l.state == Doomed
}

func (s *templateSweep) anyTemplateDoomed(ids []string) (string, bool) {
	for _, id := range ids {
		if s.templateDoomed(id) {
			return id, true
		}
	}
	return "", false
}

// DeleteTemplates removes lyphplates and layers. A rejected non-recursive
// deletion leaves every entity exactly as it was.
func (g *Graph) DeleteTemplates(req TemplateDeletion) (TemplateDeletionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(req.Lyphplates) == 0 && len(req.Layers) == 0 {
		return TemplateDeletionResult{}, lypherr.New(lypherr.CodeGraphInputInvalid, "nothing to delete")
	}

	var templates []*templateEntry
	for _, id := range req.Lyphplates {
		t, err := g.templateLocked(id)
		if err != nil {
			return TemplateDeletionResult{}, err
		}
		templates = append(templates, t)
	}
	var layers []*layerEntry
	for _, id := range req.Layers {
		l, err := g.layerLocked(id)
		if err != nil {
			return TemplateDeletionResult{}, err
		}
		layers = append(layers, l)
	}

	s := &templateSweep{g: g}
	for _, t := range templates {
		s.doomTemplate(t)
	}
	for _, l := range layers {
		s.doomLayer(l)
	}

	var res TemplateDeletionResult
	if req.Recursive {
		s.spread()
		res.Untyped = g.stripTemplateRefs(s)
	} else {
		if err := s.checkUnused(); err != nil {
			s.rollback()
			return TemplateDeletionResult{}, err
		}
		g.filterConstraints(s)
	}

	g.sweep(s, &res)
	return res, nil
}

// spread dooms, until nothing changes, every layer with a doomed material and
// every template with a doomed misc material or layer.
func (s *templateSweep) spread() {
	g := s.g
	for changed := true; changed; {
		changed = false
		for _, id := range sortedKeys(g.layers) {
			l := g.layers[id]
			if l.state != Live {
				continue
			}
			if _, hit := s.anyTemplateDoomed(l.Materials); hit {
				changed = s.doomLayer(l) || changed
			}
		}
		for _, id := range sortedKeys(g.templates) {
			t := g.templates[id]
			if t.state != Live {
				continue
			}
			_, hit := s.anyTemplateDoomed(t.Misc)
			if !hit {
				hit = slices.ContainsFunc(t.Layers, s.layerDoomed)
			}
			if hit {
				changed = s.doomTemplate(t) || changed
			}
		}
	}
}

// checkUnused looks for live users of anything doomed. Layers whose only
// users are doomed templates are queued for removal along with them.
func (s *templateSweep) checkUnused() error {
	g := s.g

	for _, id := range sortedKeys(g.lyphs) {
		l := g.lyphs[id]
		if l.state == Live && s.templateDoomed(l.Template) {
			return inUse(g.templates[l.Template], fmt.Sprintf("lyph %s", describe(l.ID, l.Name)))
		}
	}

	for _, id := range sortedKeys(g.templates) {
		t := g.templates[id]
		if t.state != Live {
			continue
		}
		if m, hit := s.anyTemplateDoomed(t.Misc); hit {
			return inUse(g.templates[m], fmt.Sprintf("lyphplate %s", describe(t.ID, t.Name)))
		}
	}

	for _, id := range sortedKeys(g.layers) {
		l := g.layers[id]
		if l.state != Live {
			continue
		}
		m, hit := s.anyTemplateDoomed(l.Materials)
		if !hit {
			continue
		}
		if user := s.liveUser(l.ID); user != nil {
			return inUse(g.templates[m], fmt.Sprintf("layer %s of lyphplate %s", l.ID, describe(user.ID, user.Name)))
		}
		s.doomLayer(l)
	}

	for _, id := range sortedKeys(g.layers) {
		l := g.layers[id]
		if l.state != Doomed {
			continue
		}
		if user := s.liveUser(l.ID); user != nil {
			return lypherr.New(lypherr.CodeGraphTemplateInUse,
				fmt.Sprintf("layer %s is already in use by lyphplate %s", l.ID, describe(user.ID, user.Name)),
				lypherr.FieldLayer(l.ID), lypherr.Field("user", user.ID))
		}
	}

	return nil
}

func (s *templateSweep) liveUser(layerID string) *templateEntry {
	for _, id := range sortedKeys(s.g.templates) {
		t := s.g.templates[id]
		if t.state == Live && slices.Contains(t.Layers, layerID) {
			return t
		}
	}
	return nil
}

func inUse(t *templateEntry, user string) error {
	return lypherr.New(lypherr.CodeGraphTemplateInUse,
		fmt.Sprintf("lyphplate %s is already in use by %s", describe(t.ID, t.Name), user),
		lypherr.FieldLyphplate(t.ID), lypherr.Field("user", user))
}

func describe(id, name string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, name)
}

func (g *Graph) stripTemplateRefs(s *templateSweep) []string {
	var untyped []string
	now := g.timestamp()
	for _, id := range sortedKeys(g.lyphs) {
		l := g.lyphs[id]
		if s.templateDoomed(l.Template) {
			l.Template = ""
			l.Modified = now
			untyped = append(untyped, l.ID)
		}
	}
	g.filterConstraints(s)
	return untyped
}

func (g *Graph) filterConstraints(s *templateSweep) {
	for _, l := range g.lyphs {
		if len(l.Constraints) == 0 {
			continue
		}
		l.Constraints = slices.DeleteFunc(l.Constraints, s.templateDoomed)
		if len(l.Constraints) == 0 {
			l.Constraints = nil
		}
	}
}

func (g *Graph) sweep(s *templateSweep, res *TemplateDeletionResult) {
	for _, l := range s.layers {
		delete(g.layers, l.ID)
		l.state = Removed
		res.Layers = append(res.Layers, l.ID)
	}
	for _, t := range s.templates {
		g.unindexTemplate(t)
		delete(g.templates, t.ID)
		t.state = Removed
		res.Lyphplates = append(res.Lyphplates, t.ID)
	}
	slices.SortFunc(res.Layers, compareIDs)
	slices.SortFunc(res.Lyphplates, compareIDs)
}
