// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package codec

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

const (
	TemplateIRIBase = "http://open-physiology.org/lyphs/#"
	LayerIRIBase    = "http://open-physiology.org/lyph_layers/#"

	vocab   = "http://open-physiology.org/lyph#"
	rdfNS   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNS  = "http://www.w3.org/2000/01/rdf-schema#"
	rdfSeqN = rdfNS + "_"

	predLabel     = rdfsNS + "label"
	predType      = rdfNS + "type"
	predLyphType  = vocab + "lyph_type"
	predOntTerm   = vocab + "ont_term"
	predLength    = vocab + "length"
	predMisc      = vocab + "misc_material"
	predHasLayers = vocab + "has_layers"
	predMaterial  = vocab + "has_material"
	predThickness = vocab + "has_thickness"

	classSeq   = rdfNS + "Seq"
	classLayer = vocab + "Layer"
)

type TermKind int

const (
	IRI TermKind = iota
	Blank
	Literal
)

// Term is one position of a triple. Literal values are stored unescaped;
// language tags and datatypes are dropped on read.
type Term struct {
	Kind  TermKind
	Value string
}

func (t Term) String() string {
	switch t.Kind {
	case Blank:
		return "_:" + t.Value
	case Literal:
		return `"` + escapeLiteral(t.Value) + `"`
	default:
		return "<" + t.Value + ">"
	}
}

type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// String renders the triple as one N-Triples statement without the newline.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

func iri(v string) Term     { return Term{Kind: IRI, Value: v} }
func literal(v string) Term { return Term{Kind: Literal, Value: v} }
func blank(v string) Term   { return Term{Kind: Blank, Value: v} }

func TemplateIRI(id string) string { return TemplateIRIBase + id }
func LayerIRI(id string) string    { return LayerIRIBase + id }

// TemplateTriples describes lyphplates and layers as RDF. Layer lists use an
// rdf:Seq blank node per layered lyphplate.
func TemplateTriples(templates []graph.Lyphplate, layers []graph.Layer) []Triple {
	var out []Triple
	add := func(s, p, o Term) { out = append(out, Triple{s, p, o}) }

	bnodes := 0
	for _, t := range templates {
		subj := iri(TemplateIRI(t.ID))
		add(subj, iri(predLabel), literal(t.Name))
		add(subj, iri(predLyphType), literal(string(t.Type)))
		if t.OntTerm != "" {
			add(subj, iri(predOntTerm), literal(t.OntTerm))
		}
		if t.Length != "" {
			add(subj, iri(predLength), literal(t.Length))
		}
		for _, m := range t.Misc {
			add(subj, iri(predMisc), iri(TemplateIRI(m)))
		}
		if t.Type.Layered() && len(t.Layers) > 0 {
			bnodes++
			seq := blank("node" + strconv.Itoa(bnodes))
			add(subj, iri(predHasLayers), seq)
			add(seq, iri(predType), iri(classSeq))
			for i, lyr := range t.Layers {
				add(seq, iri(rdfSeqN+strconv.Itoa(i+1)), iri(LayerIRI(lyr)))
			}
		}
	}

	for _, l := range layers {
		subj := iri(LayerIRI(l.ID))
		add(subj, iri(predType), iri(classLayer))
		if l.Name != "" {
			add(subj, iri(predLabel), literal(l.Name))
		}
		for _, m := range l.Materials {
			add(subj, iri(predMaterial), iri(TemplateIRI(m)))
		}
		if l.Thickness != graph.UnspecifiedThickness {
			add(subj, iri(predThickness), literal(strconv.Itoa(l.Thickness)))
		}
	}

	return out
}

type seqMember struct {
	pos   int
	layer string
}

// TemplatesFromTriples rebuilds lyphplates and layers from triples in any
// order. Unknown predicates are ignored. A layer mentioned only as a list
// member comes back with no materials and unspecified thickness.
func TemplatesFromTriples(triples []Triple) ([]graph.Lyphplate, []graph.Layer, error) {
	var (
		templates   []graph.Lyphplate
		layers      []graph.Layer
		templateIdx = make(map[string]int)
		layerIdx    = make(map[string]int)
		seqOwner    = make(map[string]int)
		seqs        = make(map[string][]seqMember)
	)
	template := func(id string) *graph.Lyphplate {
		if i, ok := templateIdx[id]; ok {
			return &templates[i]
		}
		templateIdx[id] = len(templates)
		templates = append(templates, graph.Lyphplate{ID: id})
		return &templates[len(templates)-1]
	}
	layer := func(id string) *graph.Layer {
		if i, ok := layerIdx[id]; ok {
			return &layers[i]
		}
		layerIdx[id] = len(layers)
		layers = append(layers, graph.Layer{ID: id, Thickness: graph.UnspecifiedThickness})
		return &layers[len(layers)-1]
	}

	for _, tr := range triples {
		s, p, o := tr.Subject, tr.Predicate.Value, tr.Object
		tplID, isTemplate := shortID(s, TemplateIRIBase)
		lyrID, isLayer := shortID(s, LayerIRIBase)

		switch {
		case p == predLabel && isTemplate:
			template(tplID).Name = o.Value
		case p == predLabel && isLayer:
			layer(lyrID).Name = o.Value
		case p == predLyphType && isTemplate:
			template(tplID).Type = graph.TemplateType(strings.ToLower(o.Value))
		case p == predOntTerm && isTemplate:
			template(tplID).OntTerm = o.Value
		case p == predLength && isTemplate:
			template(tplID).Length = o.Value
		case p == predMisc && isTemplate:
			if m, ok := shortID(o, TemplateIRIBase); ok {
				t := template(tplID)
				t.Misc = append(t.Misc, m)
			}
		case p == predHasLayers && isTemplate && o.Kind == Blank:
			template(tplID)
			seqOwner[o.Value] = templateIdx[tplID]
		case p == predType && isLayer && o.Value == classLayer:
			layer(lyrID)
		case strings.HasPrefix(p, rdfSeqN) && s.Kind == Blank:
			pos, err := strconv.Atoi(strings.TrimPrefix(p, rdfSeqN))
			if err != nil || pos < 1 {
				return nil, nil, lypherr.Errorf(lypherr.CodeCodecParseInvalid, "bad sequence predicate %q", p)
			}
			m, ok := shortID(o, LayerIRIBase)
			if !ok {
				continue
			}
			layer(m)
			seqs[s.Value] = append(seqs[s.Value], seqMember{pos: pos, layer: m})
		case p == predMaterial && isLayer:
			if m, ok := shortID(o, TemplateIRIBase); ok {
				l := layer(lyrID)
				l.Materials = append(l.Materials, m)
			}
		case p == predThickness && isLayer:
			n, err := strconv.Atoi(o.Value)
			if err != nil {
				return nil, nil, lypherr.Errorf(lypherr.CodeCodecParseInvalid, "bad thickness %q for layer %s", o.Value, lyrID)
			}
			layer(lyrID).Thickness = n
		}
	}

	for bnode, owner := range seqOwner {
		members := seqs[bnode]
		slices.SortStableFunc(members, func(a, b seqMember) int { return cmp.Compare(a.pos, b.pos) })
		for _, m := range members {
			templates[owner].Layers = append(templates[owner].Layers, m.layer)
		}
	}

	return templates, layers, nil
}

func shortID(t Term, base string) (string, bool) {
	if t.Kind != IRI || !strings.HasPrefix(t.Value, base) {
		return "", false
	}
	id := strings.TrimPrefix(t.Value, base)
	return id, id != ""
}

// WriteTemplates writes lyphplates and layers as N-Triples.
func WriteTemplates(w io.Writer, templates []graph.Lyphplate, layers []graph.Layer) error {
	bw := bufio.NewWriter(w)
	for _, t := range TemplateTriples(templates, layers) {
		bw.WriteString(t.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadTemplates parses an N-Triples lyphplate file. Blank lines and
// comments are skipped.
func ReadTemplates(r io.Reader) ([]graph.Lyphplate, []graph.Layer, error) {
	var triples []Triple

	sc := newScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := ParseTriple(line)
		if err != nil {
			return nil, nil, parseErr(lineNo, "%v", err)
		}
		triples = append(triples, t)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	return TemplatesFromTriples(triples)
}

// ParseTriple parses a single N-Triples statement.
func ParseTriple(line string) (Triple, error) {
	var (
		t   Triple
		err error
	)
	rest := line

	if t.Subject, rest, err = nextTerm(rest); err != nil {
		return t, err
	}
	if t.Subject.Kind == Literal {
		return t, fmt.Errorf("literal subject")
	}
	if t.Predicate, rest, err = nextTerm(rest); err != nil {
		return t, err
	}
	if t.Predicate.Kind != IRI {
		return t, fmt.Errorf("predicate must be an IRI")
	}
	if t.Object, rest, err = nextTerm(rest); err != nil {
		return t, err
	}

	if strings.TrimSpace(rest) != "." {
		return t, fmt.Errorf("statement not terminated by '.'")
	}
	return t, nil
}

func nextTerm(s string) (Term, string, error) {
	s = strings.TrimLeft(s, " \t")
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return Term{}, "", fmt.Errorf("unterminated IRI")
		}
		return iri(s[1:end]), s[end+1:], nil

	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			end = len(s)
		}
		if end == 2 {
			return Term{}, "", fmt.Errorf("empty blank node label")
		}
		return blank(s[2:end]), s[end:], nil

	case strings.HasPrefix(s, `"`):
		value, rest, err := readLiteral(s[1:])
		if err != nil {
			return Term{}, "", err
		}
		switch {
		case strings.HasPrefix(rest, "^^<"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return Term{}, "", fmt.Errorf("unterminated datatype IRI")
			}
			rest = rest[end+1:]
		case strings.HasPrefix(rest, "@"):
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			rest = rest[end:]
		}
		return literal(value), rest, nil
	}

	return Term{}, "", fmt.Errorf("unexpected input %q", truncate(s, 16))
}

// readLiteral consumes an escaped literal body up to the closing quote.
func readLiteral(s string) (string, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			return b.String(), s[i+1:], nil
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("dangling escape")
			}
			i++
			switch s[i] {
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\':
				b.WriteByte(s[i])
			case 'u', 'U':
				width := 4
				if s[i] == 'U' {
					width = 8
				}
				if i+width >= len(s) {
					return "", "", fmt.Errorf("short unicode escape")
				}
				r, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
				if err != nil || !utf8.ValidRune(rune(r)) {
					return "", "", fmt.Errorf("bad unicode escape")
				}
				b.WriteRune(rune(r))
				i += width
			default:
				return "", "", fmt.Errorf("unknown escape \\%c", s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated literal")
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
