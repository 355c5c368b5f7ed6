// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package codec reads and writes the on-disk graph formats: the tab
// separated edge file, the N-Triples lyphplate file, the view file and the
// annotation file. A snapshot always maps to all four; a missing file decodes
// as an empty section.
package codec

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

const (
	EdgesFile       = "lyphs.dat"
	TemplatesFile   = "lyphplates.nt"
	ViewsFile       = "lyphviews.dat"
	AnnotationsFile = "lyph_annots.dat"
)

// FileNames lists every file a snapshot is written to, in write order.
var FileNames = []string{TemplatesFile, EdgesFile, ViewsFile, AnnotationsFile}

// Files maps a file name to its contents.
type Files map[string][]byte

// Names returns the file names in sorted order.
func (f Files) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Encode renders s into the four graph files.
func Encode(s *graph.Snapshot) (Files, error) {
	if s == nil {
		s = &graph.Snapshot{}
	}

	var templates, edges, views, annots bytes.Buffer
	if err := WriteTemplates(&templates, s.Lyphplates, s.Layers); err != nil {
		return nil, err
	}
	if err := WriteEdges(&edges, s.Lyphs, s.Nodes); err != nil {
		return nil, err
	}
	if err := WriteViews(&views, s.Views); err != nil {
		return nil, err
	}
	if err := WriteAnnotations(&annots, s.Lyphs); err != nil {
		return nil, err
	}

	return Files{
		TemplatesFile:   templates.Bytes(),
		EdgesFile:       edges.Bytes(),
		ViewsFile:       views.Bytes(),
		AnnotationsFile: annots.Bytes(),
	}, nil
}

// Decode parses the graph files back into a snapshot. The result is not
// checked for dangling references; graph.Restore repairs those.
func Decode(files Files) (*graph.Snapshot, error) {
	s := &graph.Snapshot{}

	if data, ok := files[TemplatesFile]; ok {
		templates, layers, err := ReadTemplates(bytes.NewReader(data))
		if err != nil {
			return nil, wrapFile(err, TemplatesFile)
		}
		s.Lyphplates, s.Layers = templates, layers
	}

	if data, ok := files[EdgesFile]; ok {
		lyphs, nodes, err := ReadEdges(bytes.NewReader(data))
		if err != nil {
			return nil, wrapFile(err, EdgesFile)
		}
		s.Lyphs, s.Nodes = lyphs, nodes
	}

	if data, ok := files[ViewsFile]; ok {
		views, err := ReadViews(bytes.NewReader(data))
		if err != nil {
			return nil, wrapFile(err, ViewsFile)
		}
		s.Views = views
	}

	if data, ok := files[AnnotationsFile]; ok {
		annots, err := ReadAnnotations(bytes.NewReader(data))
		if err != nil {
			return nil, wrapFile(err, AnnotationsFile)
		}
		for i := range s.Lyphs {
			s.Lyphs[i].Annotations = annots[s.Lyphs[i].ID]
		}
	}

	return s, nil
}

func wrapFile(err error, name string) error {
	return lypherr.With(err, lypherr.Field("file", name))
}

func parseErr(line int, format string, args ...any) error {
	return lypherr.New(lypherr.CodeCodecParseInvalid,
		fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)),
		lypherr.Field("line", line))
}
