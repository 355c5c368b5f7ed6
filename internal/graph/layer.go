// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// LayerSpec describes a layer to create. A nil Thickness is unspecified.
type LayerSpec struct {
	Name      string
	Materials []string
	Thickness *int
}

type LayerPatch struct {
	Name      *string
	Materials *[]string
	Thickness *int
}

// EditLayerOptions scopes a layer edit. When Template is set and Mutable is
// false, the layer is cloned and the clone replaces it in that template
// only; other templates sharing the layer keep the original.
type EditLayerOptions struct {
	Template string
	Mutable  bool
}

func (g *Graph) Layer(id string) (Layer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lyr, err := g.layerLocked(id)
	if err != nil {
		return Layer{}, err
	}
	return lyr.clone(), nil
}

// Layers returns every layer ordered by id.
func (g *Graph) Layers() []Layer {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Layer, 0, len(g.layers))
	for _, id := range sortedKeys(g.layers) {
		out = append(out, g.layers[id].clone())
	}
	return out
}

func (g *Graph) layerLocked(id string) (*layerEntry, error) {
	lyr, ok := g.layers[id]
	if !ok || lyr.state != Live {
		return nil, lypherr.New(lypherr.CodeGraphLayerNotFound,
			fmt.Sprintf("layer %q not found", id), lypherr.FieldLayer(id))
	}
	return lyr, nil
}

func (g *Graph) CreateLayer(spec LayerSpec) (_ Layer, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	thickness, err := checkThickness(spec.Thickness)
	if err != nil {
		return Layer{}, err
	}
	materials, err := g.resolveMaterials(spec.Materials)
	if err != nil {
		return Layer{}, err
	}

	lyr := g.makeLayer(spec.Name, materials, thickness)
	return lyr.clone(), nil
}

func (g *Graph) makeLayer(name string, materials []string, thickness int) *layerEntry {
	if materials == nil {
		materials = []string{}
	}
	lyr := &layerEntry{Layer: Layer{
		ID:        g.newID(kindLayer),
		Name:      name,
		Materials: materials,
		Thickness: thickness,
	}}
	g.layers[lyr.ID] = lyr
	return lyr
}

func checkThickness(t *int) (int, error) {
	if t == nil {
		return UnspecifiedThickness, nil
	}
	if *t < UnspecifiedThickness {
		return 0, lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("layer thickness %d is invalid", *t))
	}
	return *t, nil
}

// CloneLayer copies a layer under a new id named "Clone of <name>".
func (g *Graph) CloneLayer(id string) (Layer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.layerLocked(id)
	if err != nil {
		return Layer{}, err
	}
	lyr := g.cloneLayer(src)
	return lyr.clone(), nil
}

func (g *Graph) cloneLayer(src *layerEntry) *layerEntry {
	return g.makeLayer("Clone of "+src.Name, slices.Clone(src.Materials), src.Thickness)
}

// EditLayer applies patch to a layer, copy-on-write when opts ask for it.
// The returned layer is the one that was actually edited.
func (g *Graph) EditLayer(id string, patch LayerPatch, opts EditLayerOptions) (_ Layer, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() { g.settlePromotions(err) }()

	lyr, err := g.layerLocked(id)
	if err != nil {
		return Layer{}, err
	}

	var scope *templateEntry
	if opts.Template != "" {
		if scope, err = g.templateLocked(opts.Template); err != nil {
			return Layer{}, err
		}
		if !slices.Contains(scope.Layers, lyr.ID) {
			return Layer{}, lypherr.New(lypherr.CodeGraphLayerNotFound,
				fmt.Sprintf("layer %s is not part of lyphplate %s", lyr.ID, scope.ID),
				lypherr.FieldLayer(lyr.ID), lypherr.FieldLyphplate(scope.ID))
		}
	}

	var materials []string
	if patch.Materials != nil {
		if materials, err = g.resolveMaterials(*patch.Materials); err != nil {
			return Layer{}, err
		}

		users := g.templatesUsingLayer(lyr.ID)
		if scope != nil && !opts.Mutable {
			users = []*templateEntry{scope}
		}
		for _, m := range materials {
			for _, u := range users {
				if err := g.checkNoCycle(m, u.ID); err != nil {
					return Layer{}, lypherr.With(err, lypherr.FieldLayer(lyr.ID))
				}
			}
		}
	}

	var thickness int
	if patch.Thickness != nil {
		if thickness, err = checkThickness(patch.Thickness); err != nil {
			return Layer{}, err
		}
	}

	if scope != nil && !opts.Mutable {
		lyr = g.cloneLayer(lyr)
		layers := slices.Clone(scope.Layers)
		for i, lid := range layers {
			if lid == id {
				layers[i] = lyr.ID
			}
		}
		scope.Layers = layers
	}

	setIf(&lyr.Name, patch.Name)
	if patch.Materials != nil {
		if materials == nil {
			materials = []string{}
		}
		lyr.Materials = materials
	}
	if patch.Thickness != nil {
		lyr.Thickness = thickness
	}

	return lyr.clone(), nil
}

func (g *Graph) templatesUsingLayer(layerID string) []*templateEntry {
	var out []*templateEntry
	for _, id := range sortedKeys(g.templates) {
		t := g.templates[id]
		if t.state == Live && slices.Contains(t.Layers, layerID) {
			out = append(out, t)
		}
	}
	return out
}
