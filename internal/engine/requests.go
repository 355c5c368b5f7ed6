// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"github.com/sigil-dev/lyph/internal/graph"
)

type NodeRequest struct {
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	LocType  string `json:"loctype,omitempty" yaml:"loctype,omitempty" validate:"omitempty,loctype"`
}

// LocationRequest places a node inside a lyph. LocType defaults to interior.
type LocationRequest struct {
	Lyph    string `json:"lyph" validate:"required"`
	LocType string `json:"loctype,omitempty" validate:"omitempty,loctype"`
}

// LyphRequest creates a lyph. Type accepts the number or the name; empty
// endpoints get fresh nodes.
type LyphRequest struct {
	Name        string   `json:"name,omitempty" validate:"max=1024"`
	Type        string   `json:"type" validate:"required,lyphtype"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Template    string   `json:"template,omitempty"`
	Constraints []string `json:"constraints,omitempty" validate:"dive,required"`
	FMA         string   `json:"fma,omitempty"`
	Species     string   `json:"species,omitempty"`
	Pubmed      string   `json:"pubmed,omitempty"`
	Projection  string   `json:"projection,omitempty"`
}

func (r LyphRequest) spec() graph.LyphSpec {
	t, _ := graph.ParseLyphType(r.Type)
	return graph.LyphSpec{
		Name:        r.Name,
		Type:        t,
		From:        r.From,
		To:          r.To,
		Template:    r.Template,
		Constraints: r.Constraints,
		FMA:         r.FMA,
		Species:     r.Species,
		Pubmed:      r.Pubmed,
		Projection:  r.Projection,
	}
}

type LyphPatchRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=1024"`
	Type       *string `json:"type,omitempty" validate:"omitempty,lyphtype"`
	From       *string `json:"from,omitempty" validate:"omitempty,min=1"`
	To         *string `json:"to,omitempty" validate:"omitempty,min=1"`
	Template   *string `json:"template,omitempty"`
	FMA        *string `json:"fma,omitempty"`
	Species    *string `json:"species,omitempty"`
	Pubmed     *string `json:"pubmed,omitempty"`
	Projection *string `json:"projection,omitempty"`
}

func (r LyphPatchRequest) patch() graph.LyphPatch {
	p := graph.LyphPatch{
		Name:       r.Name,
		From:       r.From,
		To:         r.To,
		Template:   r.Template,
		FMA:        r.FMA,
		Species:    r.Species,
		Pubmed:     r.Pubmed,
		Projection: r.Projection,
	}
	if r.Type != nil {
		t, _ := graph.ParseLyphType(*r.Type)
		p.Type = &t
	}
	return p
}

type LyphplateRequest struct {
	Name    string   `json:"name" validate:"required,max=1024"`
	Type    string   `json:"type" validate:"required,tpltype"`
	Layers  []string `json:"layers,omitempty" validate:"dive,required"`
	Misc    []string `json:"misc,omitempty" validate:"dive,required"`
	OntTerm string   `json:"ont_term,omitempty"`
	Length  string   `json:"length,omitempty"`
}

func (r LyphplateRequest) spec() graph.LyphplateSpec {
	t, _ := graph.ParseTemplateType(r.Type)
	return graph.LyphplateSpec{
		Name:    r.Name,
		Type:    t,
		Layers:  r.Layers,
		Misc:    r.Misc,
		OntTerm: r.OntTerm,
		Length:  r.Length,
	}
}

type LyphplatePatchRequest struct {
	Name    *string   `json:"name,omitempty" validate:"omitempty,min=1,max=1024"`
	OntTerm *string   `json:"ont_term,omitempty"`
	Length  *string   `json:"length,omitempty"`
	Misc    *[]string `json:"misc,omitempty"`
	Layers  *[]string `json:"layers,omitempty"`
}

func (r LyphplatePatchRequest) patch() graph.LyphplatePatch {
	return graph.LyphplatePatch{Name: r.Name, OntTerm: r.OntTerm, Length: r.Length, Misc: r.Misc, Layers: r.Layers}
}

// LayerPositionRequest names a layer and a 1-based position inside a
// lyphplate. For removal, Position is the occurrence; zero means first.
type LayerPositionRequest struct {
	Layer    string `json:"layer" validate:"required"`
	Position int    `json:"position,omitempty" validate:"min=0"`
}

// LayerRequest creates a layer. A nil thickness is unspecified.
type LayerRequest struct {
	Name      string   `json:"name,omitempty" validate:"max=1024"`
	Materials []string `json:"materials,omitempty" validate:"dive,required"`
	Thickness *int     `json:"thickness,omitempty" validate:"omitempty,min=-1"`
}

func (r LayerRequest) spec() graph.LayerSpec {
	return graph.LayerSpec{Name: r.Name, Materials: r.Materials, Thickness: r.Thickness}
}

// LayerPatchRequest edits a layer. With Template set and Mutable false, the
// edit applies to a copy used by that template only.
type LayerPatchRequest struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,max=1024"`
	Materials *[]string `json:"materials,omitempty"`
	Thickness *int      `json:"thickness,omitempty" validate:"omitempty,min=-1"`
	Template  string    `json:"template,omitempty"`
	Mutable   bool      `json:"mutable,omitempty"`
}

func (r LayerPatchRequest) patch() (graph.LayerPatch, graph.EditLayerOptions) {
	return graph.LayerPatch{Name: r.Name, Materials: r.Materials, Thickness: r.Thickness},
		graph.EditLayerOptions{Template: r.Template, Mutable: r.Mutable}
}

type ViewRequest struct {
	Name  string           `json:"name,omitempty" validate:"max=1024"`
	Nodes []graph.ViewNode `json:"nodes,omitempty"`
	Rects []graph.ViewRect `json:"rects,omitempty"`
}

type ViewNodesRequest struct {
	Nodes []graph.ViewNode `json:"nodes" validate:"required,min=1"`
}

type IDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type AnnotateRequest struct {
	Lyphs  []string `json:"lyphs" validate:"required,min=1,dive,required"`
	Pred   string   `json:"pred" validate:"required"`
	Obj    string   `json:"obj" validate:"required"`
	Pubmed string   `json:"pubmed,omitempty"`
}

// UnannotateRequest removes annotations whose object is Obj, or all of them
// when Obj is "all".
type UnannotateRequest struct {
	Lyphs []string `json:"lyphs" validate:"required,min=1,dive,required"`
	Obj   string   `json:"obj" validate:"required"`
}

type DeleteTemplatesRequest struct {
	Lyphplates []string `json:"lyphplates,omitempty" validate:"required_without=Layers,dive,required"`
	Layers     []string `json:"layers,omitempty" validate:"required_without=Lyphplates,dive,required"`
	Recursive  bool     `json:"recursive,omitempty"`
}

// PathRequest searches for paths between node sets. MaxPaths zero uses the
// engine default.
type PathRequest struct {
	From           []string `json:"from" validate:"required,min=1,dive,required"`
	To             []string `json:"to" validate:"required,min=1,dive,required"`
	Template       string   `json:"template,omitempty"`
	AcceptUntyped  bool     `json:"accept_untyped,omitempty"`
	MaxPaths       int      `json:"max_paths,omitempty" validate:"min=0,max=4096"`
	Avoid          []string `json:"avoid,omitempty" validate:"dive,required"`
	IncludeReverse bool     `json:"include_reverse,omitempty"`
	IncludeNIF     bool     `json:"include_nif,omitempty"`
}

func (r PathRequest) query(defaultMax int) graph.PathQuery {
	q := graph.PathQuery{
		From:           r.From,
		To:             r.To,
		MaxPaths:       r.MaxPaths,
		Avoid:          r.Avoid,
		IncludeReverse: r.IncludeReverse,
		IncludeNIF:     r.IncludeNIF,
	}
	if q.MaxPaths == 0 {
		q.MaxPaths = defaultMax
	}
	if r.Template != "" {
		q.Filter = &graph.PathFilter{Template: r.Template, AcceptUntyped: r.AcceptUntyped}
	}
	return q
}
