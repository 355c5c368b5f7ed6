// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graph

import (
	"fmt"
	"slices"
	"strings"
	"time"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// LyphType classifies how material moves along a lyph.
type LyphType int

const (
	Advective LyphType = 1
	Diffusive LyphType = 2
	NIF       LyphType = 3
)

func (t LyphType) Valid() bool {
	return t >= Advective && t <= NIF
}

func (t LyphType) String() string {
	switch t {
	case Advective:
		return "advective"
	case Diffusive:
		return "diffusive"
	case NIF:
		return "nif"
	default:
		return fmt.Sprintf("LyphType(%d)", int(t))
	}
}

// ParseLyphType accepts either the numeric form ("1") or the name ("advective").
func ParseLyphType(s string) (LyphType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "advective":
		return Advective, nil
	case "2", "diffusive":
		return Diffusive, nil
	case "3", "nif":
		return NIF, nil
	}
	return 0, lypherr.New(lypherr.CodeGraphInputInvalid,
		fmt.Sprintf("unrecognized lyph type %q", s))
}

// LocType says how a node sits inside its housing lyph.
type LocType int

const (
	LocNone LocType = iota
	LocInterior
	LocBorder
)

func (t LocType) String() string {
	switch t {
	case LocInterior:
		return "interior"
	case LocBorder:
		return "border"
	default:
		return "none"
	}
}

func ParseLocType(s string) (LocType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LocNone, nil
	case "interior":
		return LocInterior, nil
	case "border":
		return LocBorder, nil
	}
	return LocNone, lypherr.New(lypherr.CodeGraphInputInvalid,
		fmt.Sprintf("unrecognized location type %q", s))
}

// TemplateType is the structural kind of a lyphplate.
type TemplateType string

const (
	TemplateBasic TemplateType = "basic"
	TemplateShell TemplateType = "shell"
	TemplateMix   TemplateType = "mix"
)

func (t TemplateType) Valid() bool {
	return t == TemplateBasic || t == TemplateShell || t == TemplateMix
}

// Layered reports whether templates of this type carry an ordered layer list.
func (t TemplateType) Layered() bool {
	return t == TemplateShell || t == TemplateMix
}

func ParseTemplateType(s string) (TemplateType, error) {
	t := TemplateType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", lypherr.New(lypherr.CodeGraphInputInvalid,
			fmt.Sprintf("unrecognized lyphplate type %q", s))
	}
	return t, nil
}

// State tracks an entity through the deletion protocol.
type State int

const (
	Live State = iota
	Doomed
	Removed
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Doomed:
		return "doomed"
	default:
		return "removed"
	}
}

// Annotation is a predicate/object pair attached to a lyph.
type Annotation struct {
	Pred   string `json:"pred" yaml:"pred"`
	Obj    string `json:"obj" yaml:"obj"`
	Pubmed string `json:"pubmed,omitempty" yaml:"pubmed,omitempty"`
}

// Lyph is a directed, identified edge between two nodes.
type Lyph struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Type        LyphType     `json:"type"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Template    string       `json:"template,omitempty"`
	Constraints []string     `json:"constraints,omitempty"`
	FMA         string       `json:"fma,omitempty"`
	Species     string       `json:"species,omitempty"`
	Pubmed      string       `json:"pubmed,omitempty"`
	Projection  string       `json:"projection,omitempty"`
	Modified    time.Time    `json:"modified"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

func (l Lyph) clone() Lyph {
	l.Constraints = slices.Clone(l.Constraints)
	l.Annotations = slices.Clone(l.Annotations)
	return l
}

// Exit is one adjacency record: the lyph and the node at its other end.
type Exit struct {
	Lyph string `json:"lyph"`
	Node string `json:"node"`
}

// Node is a graph vertex, optionally housed inside a lyph.
type Node struct {
	ID       string  `json:"id"`
	Location string  `json:"location,omitempty"`
	LocType  LocType `json:"loctype,omitempty"`
	Exits    []Exit  `json:"exits,omitempty"`
	Incoming []Exit  `json:"incoming,omitempty"`
}

func (n Node) clone() Node {
	n.Exits = slices.Clone(n.Exits)
	n.Incoming = slices.Clone(n.Incoming)
	return n
}

// Lyphplate is a reusable structural template. Shell and mix templates have
// at least one layer; basic templates have none.
type Lyphplate struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    TemplateType `json:"type"`
	Layers  []string     `json:"layers,omitempty"`
	Misc    []string     `json:"misc,omitempty"`
	OntTerm string       `json:"ont_term,omitempty"`
	Length  string       `json:"length,omitempty"`
}

func (t Lyphplate) clone() Lyphplate {
	t.Layers = slices.Clone(t.Layers)
	t.Misc = slices.Clone(t.Misc)
	return t
}

// UnspecifiedThickness marks a layer with no recorded thickness.
const UnspecifiedThickness = -1

// Layer is an ordered element of a shell or mix template.
type Layer struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Materials []string `json:"materials"`
	Thickness int      `json:"thickness"`
}

func (l Layer) clone() Layer {
	l.Materials = slices.Clone(l.Materials)
	if l.Materials == nil {
		l.Materials = []string{}
	}
	return l
}

type ViewNode struct {
	Node string  `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type ViewRect struct {
	Lyph   string  `json:"lyph"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// View is a saved diagram over a subset of nodes and lyphs.
type View struct {
	ID    string     `json:"id"`
	Name  string     `json:"name,omitempty"`
	Nodes []ViewNode `json:"nodes,omitempty"`
	Rects []ViewRect `json:"rects,omitempty"`
}

func (v View) clone() View {
	v.Nodes = slices.Clone(v.Nodes)
	v.Rects = slices.Clone(v.Rects)
	return v
}

// Stats counts live entities.
type Stats struct {
	Lyphs       int `json:"lyphs"`
	Nodes       int `json:"nodes"`
	Lyphplates  int `json:"lyphplates"`
	Layers      int `json:"layers"`
	Views       int `json:"views"`
	Annotations int `json:"annotations"`
}

type lyphEntry struct {
	Lyph
	state State
}

type nodeEntry struct {
	Node
	state State
}

type templateEntry struct {
	Lyphplate
	state State
}

type layerEntry struct {
	Layer
	state State
}
