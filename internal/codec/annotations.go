// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package codec

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/sigil-dev/lyph/internal/graph"
)

// Annotation lines are "Annot <lyph> <pred> <obj> <pubmed>" with every field
// URL path escaped and "none" for a missing predicate or pubmed id.
const annotNone = "none"

func WriteAnnotations(w io.Writer, lyphs []graph.Lyph) error {
	bw := bufio.NewWriter(w)
	for _, l := range lyphs {
		for _, a := range l.Annotations {
			fmt.Fprintf(bw, "Annot %s %s %s %s\n",
				url.PathEscape(l.ID), orNone(a.Pred), url.PathEscape(a.Obj), orNone(a.Pubmed))
		}
	}
	return bw.Flush()
}

func orNone(s string) string {
	if s == "" {
		return annotNone
	}
	return url.PathEscape(s)
}

// ReadAnnotations returns annotations grouped by lyph id, in file order.
func ReadAnnotations(r io.Reader) (map[string][]graph.Annotation, error) {
	out := make(map[string][]graph.Annotation)

	sc := newScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f := strings.Fields(line)
		if len(f) != 5 || f[0] != "Annot" {
			return nil, parseErr(lineNo, "malformed annotation line")
		}

		var vals [4]string
		for i, raw := range f[1:] {
			v, err := url.PathUnescape(raw)
			if err != nil {
				return nil, parseErr(lineNo, "bad escape in %q", raw)
			}
			vals[i] = v
		}
		lyph, pred, obj, pubmed := vals[0], vals[1], vals[2], vals[3]
		if f[2] == annotNone {
			pred = ""
		}
		if f[4] == annotNone {
			pubmed = ""
		}
		if lyph == "" || obj == "" {
			return nil, parseErr(lineNo, "annotation without lyph or object")
		}

		out[lyph] = append(out[lyph], graph.Annotation{Pred: pred, Obj: obj, Pubmed: pubmed})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
