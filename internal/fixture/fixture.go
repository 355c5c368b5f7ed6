// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package fixture seeds a graph from a YAML document. Entries may carry a
// local key; later entries refer to earlier ones by key, and any reference
// that is not a key is passed to the graph unchanged (an existing id, a
// name, or an ontology term).
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// Fixture is a parsed seed document. Sections are applied in field order.
type Fixture struct {
	Layers     []Layer     `yaml:"layers,omitempty"`
	Lyphplates []Lyphplate `yaml:"lyphplates,omitempty"`
	Nodes      []Node      `yaml:"nodes,omitempty"`
	Lyphs      []Lyph      `yaml:"lyphs,omitempty"`
	Locations  []Location  `yaml:"locations,omitempty"`
	Views      []View      `yaml:"views,omitempty"`
}

type Layer struct {
	Key       string   `yaml:"key,omitempty"`
	Name      string   `yaml:"name,omitempty"`
	Materials []string `yaml:"materials,omitempty"`
	Thickness *int     `yaml:"thickness,omitempty"`
}

type Lyphplate struct {
	Key     string             `yaml:"key,omitempty"`
	Name    string             `yaml:"name"`
	Type    graph.TemplateType `yaml:"type"`
	Layers  []string           `yaml:"layers,omitempty"`
	Misc    []string           `yaml:"misc,omitempty"`
	OntTerm string             `yaml:"ont_term,omitempty"`
	Length  string             `yaml:"length,omitempty"`
}

type Node struct {
	Key string `yaml:"key,omitempty"`
}

type Lyph struct {
	Key         string       `yaml:"key,omitempty"`
	Name        string       `yaml:"name,omitempty"`
	Type        string       `yaml:"type"`
	From        string       `yaml:"from,omitempty"`
	To          string       `yaml:"to,omitempty"`
	Template    string       `yaml:"template,omitempty"`
	Constraints []string     `yaml:"constraints,omitempty"`
	FMA         string       `yaml:"fma,omitempty"`
	Species     string       `yaml:"species,omitempty"`
	Pubmed      string       `yaml:"pubmed,omitempty"`
	Projection  string       `yaml:"projection,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
}

type Annotation struct {
	Pred   string `yaml:"pred"`
	Obj    string `yaml:"obj"`
	Pubmed string `yaml:"pubmed,omitempty"`
}

// Location houses a node inside a lyph.
type Location struct {
	Node    string `yaml:"node"`
	Lyph    string `yaml:"lyph"`
	LocType string `yaml:"loctype,omitempty"`
}

type View struct {
	Name  string     `yaml:"name,omitempty"`
	Nodes []ViewNode `yaml:"nodes,omitempty"`
	Rects []ViewRect `yaml:"rects,omitempty"`
}

type ViewNode struct {
	Node string  `yaml:"node"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

type ViewRect struct {
	Lyph   string  `yaml:"lyph"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Result maps every fixture key to the id the graph assigned it.
type Result struct {
	Keys    map[string]string
	Created int
}

// Parse decodes and validates a fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, lypherr.Errorf(lypherr.CodeFixtureInvalid, "fixture parse: %s", err)
	}

	if errs := f.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return nil, lypherr.New(lypherr.CodeFixtureInvalid, strings.Join(msgs, "; "),
			lypherr.Field("problems", len(errs)))
	}
	return &f, nil
}

func ParseFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lypherr.Wrap(err, lypherr.CodeFixtureInvalid, "reading fixture", lypherr.Field("path", path))
	}
	f, err := Parse(data)
	if err != nil {
		return nil, lypherr.With(err, lypherr.Field("path", path))
	}
	return f, nil
}

// Validate checks the document shape without touching a graph. It returns
// every problem found.
func (f *Fixture) Validate() []error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, lypherr.Errorf(lypherr.CodeFixtureInvalid, "fixture validation: "+format, args...))
	}

	keys := make(map[string]string)
	claim := func(section string, i int, key string) {
		if key == "" {
			return
		}
		if prev, ok := keys[key]; ok {
			bad("%s[%d]: key %q already used by %s", section, i, key, prev)
			return
		}
		keys[key] = fmt.Sprintf("%s[%d]", section, i)
	}

	for i, l := range f.Layers {
		claim("layers", i, l.Key)
		if l.Thickness != nil && *l.Thickness < graph.UnspecifiedThickness {
			bad("layers[%d]: thickness must be at least %d", i, graph.UnspecifiedThickness)
		}
	}
	for i, t := range f.Lyphplates {
		claim("lyphplates", i, t.Key)
		if strings.TrimSpace(t.Name) == "" {
			bad("lyphplates[%d]: name must not be empty", i)
		}
		if !t.Type.Valid() {
			bad("lyphplates[%d]: type must be one of [basic, shell, mix], got %q", i, t.Type)
		}
	}
	for i, n := range f.Nodes {
		claim("nodes", i, n.Key)
	}
	for i, l := range f.Lyphs {
		claim("lyphs", i, l.Key)
		if _, err := graph.ParseLyphType(l.Type); err != nil {
			bad("lyphs[%d]: %s", i, err)
		}
		for j, a := range l.Annotations {
			if a.Pred == "" || a.Obj == "" {
				bad("lyphs[%d].annotations[%d]: pred and obj are required", i, j)
			}
		}
	}
	for i, loc := range f.Locations {
		if loc.Node == "" || loc.Lyph == "" {
			bad("locations[%d]: node and lyph are required", i)
		}
		if _, err := graph.ParseLocType(loc.LocType); err != nil {
			bad("locations[%d]: %s", i, err)
		}
	}
	return errs
}

// Apply creates the fixture's entities in g. It stops at the first graph
// error; callers that need all-or-nothing run it through engine.Apply.
func (f *Fixture) Apply(g *graph.Graph) (Result, error) {
	res := Result{Keys: make(map[string]string)}
	ref := func(r string) string {
		if id, ok := res.Keys[r]; ok {
			return id
		}
		return r
	}
	refs := func(rs []string) []string {
		if rs == nil {
			return nil
		}
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = ref(r)
		}
		return out
	}
	record := func(key, id string) {
		res.Created++
		if key != "" {
			res.Keys[key] = id
		}
	}
	fail := func(err error, section string, i int) error {
		return lypherr.With(err, lypherr.Field("entry", fmt.Sprintf("%s[%d]", section, i)))
	}

	for i, l := range f.Layers {
		lyr, err := g.CreateLayer(graph.LayerSpec{Name: l.Name, Materials: refs(l.Materials), Thickness: l.Thickness})
		if err != nil {
			return res, fail(err, "layers", i)
		}
		record(l.Key, lyr.ID)
	}

	for i, t := range f.Lyphplates {
		tpl, err := g.CreateLyphplate(graph.LyphplateSpec{
			Name:    t.Name,
			Type:    t.Type,
			Layers:  refs(t.Layers),
			Misc:    refs(t.Misc),
			OntTerm: t.OntTerm,
			Length:  t.Length,
		})
		if err != nil {
			return res, fail(err, "lyphplates", i)
		}
		record(t.Key, tpl.ID)
	}

	for i, n := range f.Nodes {
		node, err := g.CreateNode(graph.NodeSpec{})
		if err != nil {
			return res, fail(err, "nodes", i)
		}
		record(n.Key, node.ID)
	}

	for i, l := range f.Lyphs {
		typ, _ := graph.ParseLyphType(l.Type)
		lyph, err := g.CreateLyph(graph.LyphSpec{
			Name:        l.Name,
			Type:        typ,
			From:        ref(l.From),
			To:          ref(l.To),
			Template:    ref(l.Template),
			Constraints: refs(l.Constraints),
			FMA:         l.FMA,
			Species:     l.Species,
			Pubmed:      l.Pubmed,
			Projection:  l.Projection,
		})
		if err != nil {
			return res, fail(err, "lyphs", i)
		}
		record(l.Key, lyph.ID)

		for _, a := range l.Annotations {
			if _, err := g.Annotate([]string{lyph.ID}, a.Pred, ref(a.Obj), a.Pubmed); err != nil {
				return res, fail(err, "lyphs", i)
			}
		}
	}

	for i, loc := range f.Locations {
		lt := graph.LocInterior
		if loc.LocType != "" {
			lt, _ = graph.ParseLocType(loc.LocType)
		}
		if _, err := g.SetNodeLocation(ref(loc.Node), ref(loc.Lyph), lt); err != nil {
			return res, fail(err, "locations", i)
		}
	}

	for i, v := range f.Views {
		spec := graph.ViewSpec{Name: v.Name}
		for _, n := range v.Nodes {
			spec.Nodes = append(spec.Nodes, graph.ViewNode{Node: ref(n.Node), X: n.X, Y: n.Y})
		}
		for _, r := range v.Rects {
			spec.Rects = append(spec.Rects, graph.ViewRect{Lyph: ref(r.Lyph), X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
		}
		if _, err := g.CreateView(spec); err != nil {
			return res, fail(err, "views", i)
		}
		res.Created++
	}

	return res, nil
}
