// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTemplates_Format(t *testing.T) {
	templates := []graph.Lyphplate{
		{ID: "1", Name: "fat", Type: graph.TemplateBasic, OntTerm: "FMA_1"},
		{ID: "2", Name: "wall", Type: graph.TemplateShell, Layers: []string{"4"}, Misc: []string{"1"}},
	}
	layers := []graph.Layer{{ID: "4", Materials: []string{"1"}, Thickness: 3}}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteTemplates(&buf, templates, layers))

	want := []string{
		`<http://open-physiology.org/lyphs/#1> <http://www.w3.org/2000/01/rdf-schema#label> "fat" .`,
		`<http://open-physiology.org/lyphs/#1> <http://open-physiology.org/lyph#lyph_type> "basic" .`,
		`<http://open-physiology.org/lyphs/#1> <http://open-physiology.org/lyph#ont_term> "FMA_1" .`,
		`<http://open-physiology.org/lyphs/#2> <http://www.w3.org/2000/01/rdf-schema#label> "wall" .`,
		`<http://open-physiology.org/lyphs/#2> <http://open-physiology.org/lyph#lyph_type> "shell" .`,
		`<http://open-physiology.org/lyphs/#2> <http://open-physiology.org/lyph#misc_material> <http://open-physiology.org/lyphs/#1> .`,
		`<http://open-physiology.org/lyphs/#2> <http://open-physiology.org/lyph#has_layers> _:node1 .`,
		`_:node1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/1999/02/22-rdf-syntax-ns#Seq> .`,
		`_:node1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#_1> <http://open-physiology.org/lyph_layers/#4> .`,
		`<http://open-physiology.org/lyph_layers/#4> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://open-physiology.org/lyph#Layer> .`,
		`<http://open-physiology.org/lyph_layers/#4> <http://open-physiology.org/lyph#has_material> <http://open-physiology.org/lyphs/#1> .`,
		`<http://open-physiology.org/lyph_layers/#4> <http://open-physiology.org/lyph#has_thickness> "3" .`,
	}
	assert.Equal(t, strings.Join(want, "\n")+"\n", buf.String())

	gotT, gotL, err := codec.ReadTemplates(&buf)
	require.NoError(t, err)
	assert.Equal(t, templates, gotT)
	assert.Equal(t, layers, gotL)
}

func TestReadTemplates_LayerSequenceOrder(t *testing.T) {
	input := strings.Join([]string{
		`# comment`,
		`_:s <http://www.w3.org/1999/02/22-rdf-syntax-ns#_2> <http://open-physiology.org/lyph_layers/#b> .`,
		`<http://open-physiology.org/lyphs/#1> <http://www.w3.org/2000/01/rdf-schema#label> "wall"@en .`,
		``,
		`<http://open-physiology.org/lyphs/#1> <http://open-physiology.org/lyph#lyph_type> "SHELL" .`,
		`<http://open-physiology.org/lyphs/#1> <http://open-physiology.org/lyph#has_layers> _:s .`,
		`<http://open-physiology.org/lyphs/#1> <http://example.org/unknown> "ignored" .`,
		`_:s <http://www.w3.org/1999/02/22-rdf-syntax-ns#_1> <http://open-physiology.org/lyph_layers/#a> .`,
	}, "\n")

	templates, layers, err := codec.ReadTemplates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, graph.Lyphplate{ID: "1", Name: "wall", Type: graph.TemplateShell, Layers: []string{"a", "b"}}, templates[0])
	assert.Equal(t, []graph.Layer{
		{ID: "b", Thickness: graph.UnspecifiedThickness},
		{ID: "a", Thickness: graph.UnspecifiedThickness},
	}, layers)
}

func TestParseTriple(t *testing.T) {
	tr, err := codec.ParseTriple(`<http://a> <http://b> "say \"hi\"\né"^^<http://www.w3.org/2001/XMLSchema#string> .`)
	require.NoError(t, err)
	assert.Equal(t, codec.Term{Kind: codec.IRI, Value: "http://a"}, tr.Subject)
	assert.Equal(t, codec.Term{Kind: codec.Literal, Value: "say \"hi\"\né"}, tr.Object)

	lit := codec.Triple{
		Subject:   codec.Term{Kind: codec.Blank, Value: "x"},
		Predicate: codec.Term{Kind: codec.IRI, Value: "http://p"},
		Object:    codec.Term{Kind: codec.Literal, Value: "tab\there \\ \"q\""},
	}
	back, err := codec.ParseTriple(lit.String())
	require.NoError(t, err)
	assert.Equal(t, lit, back)

	for _, bad := range []string{
		`<http://a> <http://b> "open .`,
		`<http://a> <http://b> <http://c>`,
		`"lit" <http://b> <http://c> .`,
		`<http://a> _:p <http://c> .`,
		`<http://a <http://b> <http://c> .`,
		`<http://a> <http://b> "\q" .`,
	} {
		_, err := codec.ParseTriple(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadTemplates_Errors(t *testing.T) {
	_, _, err := codec.ReadTemplates(strings.NewReader("<http://a> <http://b> <http://c> .\nnot a triple\n"))
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeCodecParseInvalid))
	assert.Contains(t, err.Error(), "line 2")

	_, _, err = codec.ReadTemplates(strings.NewReader(
		`<http://open-physiology.org/lyph_layers/#1> <http://open-physiology.org/lyph#has_thickness> "thick" .`))
	assert.True(t, lypherr.HasCode(err, lypherr.CodeCodecParseInvalid))
}

func TestViews_RoundTrip(t *testing.T) {
	views := []graph.View{
		{ID: "1", Name: "heart \"overview\"", Nodes: []graph.ViewNode{{Node: "3", X: 0.25, Y: 100}}},
		{ID: "7", Rects: []graph.ViewRect{{Lyph: "2", X: 1, Y: 2, Width: 3.5, Height: 4}}},
	}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteViews(&buf, views))
	assert.True(t, strings.HasPrefix(buf.String(), "TopView 7\nView 1\nName \"heart \\\"overview\\\"\"\nNodes 1\nN 3 0.25 100\n"))

	got, err := codec.ReadViews(&buf)
	require.NoError(t, err)
	assert.Equal(t, views, got)
}

func TestReadViews_Errors(t *testing.T) {
	cases := map[string]string{
		"no header":      "View 1\nNodes 0\nRects 0\n",
		"count mismatch": "TopView 1\nView 1\nNodes 2\nN 1 0 0\nRects 0\n",
		"orphan line":    "TopView 1\nNodes 0\n",
		"bad coordinate": "TopView 1\nView 1\nNodes 1\nN 1 x 0\nRects 0\n",
		"unknown":        "TopView 1\nView 1\nShape circle\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.ReadViews(strings.NewReader(input))
			require.Error(t, err)
			assert.True(t, lypherr.HasCode(err, lypherr.CodeCodecParseInvalid))
		})
	}
}

func TestAnnotations_RoundTrip(t *testing.T) {
	lyphs := []graph.Lyph{
		{ID: "1", Annotations: []graph.Annotation{
			{Pred: "seeAlso", Obj: "http://example.org/x y"},
			{Pred: "cites", Obj: "paper", Pubmed: "12345"},
		}},
		{ID: "2"},
	}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteAnnotations(&buf, lyphs))
	assert.Equal(t,
		"Annot 1 seeAlso http:%2F%2Fexample.org%2Fx%20y none\n"+
			"Annot 1 cites paper 12345\n",
		buf.String())

	got, err := codec.ReadAnnotations(&buf)
	require.NoError(t, err)
	assert.Equal(t, map[string][]graph.Annotation{"1": lyphs[0].Annotations}, got)

	_, err = codec.ReadAnnotations(strings.NewReader("Annot 1 p\n"))
	assert.True(t, lypherr.HasCode(err, lypherr.CodeCodecParseInvalid))
}
