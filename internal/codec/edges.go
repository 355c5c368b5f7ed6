// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package codec

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sigil-dev/lyph/internal/graph"
)

// Edge lines look like
//
//	id \t type \t fma \t from \t to \t [key:value ]* name
//
// with "(nofma)" and "(noname)" standing in for empty values. Attribute
// values are URL path escaped. Node placements follow as
//
//	Loc \t node \t lyph \t interior|border
//
// and nodes that no lyph touches are listed as "Node \t id".
const (
	noFMA  = "(nofma)"
	noName = "(noname)"

	attrTemplate    = "template"
	attrLegacyLyph  = "lyph"
	attrConstraints = "constraints"
	attrSpecies     = "species"
	attrPubmed      = "pubmed"
	attrProjection  = "proj"
	attrModified    = "modified"
	attrName        = "name"
)

var edgeAttrs = map[string]bool{
	attrTemplate:    true,
	attrLegacyLyph:  true,
	attrConstraints: true,
	attrSpecies:     true,
	attrPubmed:      true,
	attrProjection:  true,
	attrModified:    true,
	attrName:        true,
}

// WriteEdges writes lyphs followed by node placement and isolated node lines.
func WriteEdges(w io.Writer, lyphs []graph.Lyph, nodes []graph.Node) error {
	bw := bufio.NewWriter(w)

	endpoints := make(map[string]bool, len(lyphs)*2)
	for _, l := range lyphs {
		endpoints[l.From] = true
		endpoints[l.To] = true

		fma := noFMA
		if l.FMA != "" {
			fma = url.PathEscape(l.FMA)
		}
		fmt.Fprintf(bw, "%s\t%d\t%s\t%s\t%s\t%s\n", l.ID, int(l.Type), fma, l.From, l.To, edgeTail(l))
	}

	for _, n := range nodes {
		if n.Location == "" && !endpoints[n.ID] {
			fmt.Fprintf(bw, "Node\t%s\n", n.ID)
		}
	}
	for _, n := range nodes {
		if n.Location == "" {
			continue
		}
		loc := n.LocType
		if loc == graph.LocNone {
			loc = graph.LocInterior
		}
		fmt.Fprintf(bw, "Loc\t%s\t%s\t%s\n", n.ID, n.Location, loc)
	}

	return bw.Flush()
}

func edgeTail(l graph.Lyph) string {
	var b strings.Builder
	attr := func(key, value string) {
		if value != "" {
			b.WriteString(key + ":" + url.PathEscape(value) + " ")
		}
	}

	attr(attrTemplate, l.Template)
	attr(attrConstraints, strings.Join(l.Constraints, ","))
	attr(attrSpecies, l.Species)
	attr(attrPubmed, l.Pubmed)
	attr(attrProjection, l.Projection)
	if !l.Modified.IsZero() {
		attr(attrModified, strconv.FormatInt(l.Modified.Unix(), 10))
	}

	switch {
	case l.Name == "":
		b.WriteString(noName)
	case plainName(l.Name):
		b.WriteString(l.Name)
	default:
		attr(attrName, l.Name)
		b.WriteString(noName)
	}
	return b.String()
}

// plainName reports whether name can be written as the bare line tail and
// read back unchanged.
func plainName(name string) bool {
	if name == noName || strings.ContainsAny(name, "\t\r\n") || name != strings.TrimSpace(name) {
		return false
	}
	first, _, _ := strings.Cut(name, " ")
	key, _, ok := strings.Cut(first, ":")
	return !ok || !edgeAttrs[key]
}

// ReadEdges parses an edge file. Every node mentioned anywhere is returned
// once, in order of first mention.
func ReadEdges(r io.Reader) ([]graph.Lyph, []graph.Node, error) {
	var (
		lyphs []graph.Lyph
		nodes []graph.Node
		seen  = make(map[string]int)
	)
	node := func(id string) *graph.Node {
		if i, ok := seen[id]; ok {
			return &nodes[i]
		}
		seen[id] = len(nodes)
		nodes = append(nodes, graph.Node{ID: id})
		return &nodes[len(nodes)-1]
	}

	sc := newScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 6)

		switch fields[0] {
		case "Node":
			if len(fields) != 2 || fields[1] == "" {
				return nil, nil, parseErr(lineNo, "malformed node line")
			}
			node(fields[1])
			continue
		case "Loc":
			if len(fields) != 4 || fields[1] == "" || fields[2] == "" {
				return nil, nil, parseErr(lineNo, "malformed location line")
			}
			loc, err := graph.ParseLocType(fields[3])
			if err != nil || loc == graph.LocNone {
				return nil, nil, parseErr(lineNo, "bad location type %q", fields[3])
			}
			n := node(fields[1])
			n.Location, n.LocType = fields[2], loc
			continue
		}

		if len(fields) != 6 {
			return nil, nil, parseErr(lineNo, "expected 6 tab separated fields, got %d", len(fields))
		}
		l, err := parseEdge(fields)
		if err != nil {
			return nil, nil, parseErr(lineNo, "%v", err)
		}
		node(l.From)
		node(l.To)
		lyphs = append(lyphs, l)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	return lyphs, nodes, nil
}

func parseEdge(fields []string) (graph.Lyph, error) {
	l := graph.Lyph{ID: fields[0], From: fields[3], To: fields[4]}
	if l.ID == "" || l.From == "" || l.To == "" {
		return l, fmt.Errorf("empty id or endpoint")
	}

	t, err := strconv.Atoi(fields[1])
	if err != nil || !graph.LyphType(t).Valid() {
		return l, fmt.Errorf("bad lyph type %q", fields[1])
	}
	l.Type = graph.LyphType(t)

	if fields[2] != noFMA {
		fma, err := url.PathUnescape(fields[2])
		if err != nil {
			return l, fmt.Errorf("bad fma %q", fields[2])
		}
		l.FMA = fma
	}

	rest := fields[5]
	for {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			break
		}
		key, raw, ok := strings.Cut(rest[:sp], ":")
		if !ok || !edgeAttrs[key] {
			break
		}
		value, err := url.PathUnescape(raw)
		if err != nil {
			return l, fmt.Errorf("bad %s value %q", key, raw)
		}
		if err := setEdgeAttr(&l, key, value); err != nil {
			return l, err
		}
		rest = rest[sp+1:]
	}
	if rest != noName && l.Name == "" {
		l.Name = rest
	}

	return l, nil
}

func setEdgeAttr(l *graph.Lyph, key, value string) error {
	switch key {
	case attrTemplate, attrLegacyLyph:
		l.Template = value
	case attrConstraints:
		for _, c := range strings.Split(value, ",") {
			if c != "" {
				l.Constraints = append(l.Constraints, c)
			}
		}
	case attrSpecies:
		l.Species = value
	case attrPubmed:
		l.Pubmed = value
	case attrProjection:
		l.Projection = value
	case attrModified:
		secs, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("bad modified time %q", value)
		}
		l.Modified = time.Unix(secs, 0).UTC()
	case attrName:
		l.Name = value
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return sc
}
