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

	"github.com/sigil-dev/lyph/internal/graph"
)

// The view file starts with "TopView <n>" where n is the highest view id,
// then for each view:
//
//	View <id>
//	Name "<quoted name>"
//	Nodes <count>
//	N <node> <x> <y>
//	Rects <count>
//	R <lyph> <x> <y> <width> <height>
//
// Name is omitted for unnamed views.

// WriteViews writes views in the order given.
func WriteViews(w io.Writer, views []graph.View) error {
	bw := bufio.NewWriter(w)

	top := 0
	for _, v := range views {
		if n, err := strconv.Atoi(v.ID); err == nil && n > top {
			top = n
		}
	}
	fmt.Fprintf(bw, "TopView %d\n", top)

	for _, v := range views {
		fmt.Fprintf(bw, "View %s\n", url.PathEscape(v.ID))
		if v.Name != "" {
			fmt.Fprintf(bw, "Name %s\n", strconv.Quote(v.Name))
		}
		fmt.Fprintf(bw, "Nodes %d\n", len(v.Nodes))
		for _, n := range v.Nodes {
			fmt.Fprintf(bw, "N %s %s %s\n", url.PathEscape(n.Node), ftoa(n.X), ftoa(n.Y))
		}
		fmt.Fprintf(bw, "Rects %d\n", len(v.Rects))
		for _, r := range v.Rects {
			fmt.Fprintf(bw, "R %s %s %s %s %s\n", url.PathEscape(r.Lyph), ftoa(r.X), ftoa(r.Y), ftoa(r.Width), ftoa(r.Height))
		}
	}

	return bw.Flush()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type viewReader struct {
	views     []graph.View
	cur       *graph.View
	wantNodes int
	wantRects int
	sawNodes  bool
	sawRects  bool
	lineNo    int
	startLine int
}

// ReadViews parses a view file. Declared node and rect counts must match the
// lines that follow them.
func ReadViews(r io.Reader) ([]graph.View, error) {
	vr := &viewReader{}
	sc := newScanner(r)

	first := true
	for sc.Scan() {
		vr.lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		keyword, rest, _ := strings.Cut(line, " ")

		if first {
			if keyword != "TopView" {
				return nil, parseErr(vr.lineNo, "missing TopView header")
			}
			first = false
			continue
		}

		if err := vr.line(keyword, rest); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := vr.finish(); err != nil {
		return nil, err
	}

	return vr.views, nil
}

func (vr *viewReader) line(keyword, rest string) error {
	if keyword == "View" {
		if err := vr.finish(); err != nil {
			return err
		}
		id, err := url.PathUnescape(strings.TrimSpace(rest))
		if err != nil || id == "" {
			return parseErr(vr.lineNo, "bad view id %q", rest)
		}
		vr.views = append(vr.views, graph.View{ID: id})
		vr.cur = &vr.views[len(vr.views)-1]
		vr.wantNodes, vr.wantRects = 0, 0
		vr.sawNodes, vr.sawRects = false, false
		vr.startLine = vr.lineNo
		return nil
	}

	if vr.cur == nil {
		return parseErr(vr.lineNo, "%s outside of a view", keyword)
	}

	switch keyword {
	case "Name":
		name, err := strconv.Unquote(rest)
		if err != nil {
			return parseErr(vr.lineNo, "bad view name %s", rest)
		}
		vr.cur.Name = name
	case "Nodes", "Rects":
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || n < 0 {
			return parseErr(vr.lineNo, "bad %s count %q", strings.ToLower(keyword), rest)
		}
		if keyword == "Nodes" {
			vr.wantNodes, vr.sawNodes = n, true
		} else {
			vr.wantRects, vr.sawRects = n, true
		}
	case "N":
		if !vr.sawNodes {
			return parseErr(vr.lineNo, "node line before Nodes count")
		}
		f, nums, err := vr.fields(rest, 2)
		if err != nil {
			return err
		}
		vr.cur.Nodes = append(vr.cur.Nodes, graph.ViewNode{Node: f, X: nums[0], Y: nums[1]})
	case "R":
		if !vr.sawRects {
			return parseErr(vr.lineNo, "rect line before Rects count")
		}
		f, nums, err := vr.fields(rest, 4)
		if err != nil {
			return err
		}
		vr.cur.Rects = append(vr.cur.Rects, graph.ViewRect{Lyph: f, X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]})
	default:
		return parseErr(vr.lineNo, "unknown keyword %q", keyword)
	}
	return nil
}

// fields splits "<id> <float>..." into the unescaped id and n numbers.
func (vr *viewReader) fields(rest string, n int) (string, []float64, error) {
	parts := strings.Fields(rest)
	if len(parts) != n+1 {
		return "", nil, parseErr(vr.lineNo, "expected %d fields, got %d", n+1, len(parts))
	}
	id, err := url.PathUnescape(parts[0])
	if err != nil || id == "" {
		return "", nil, parseErr(vr.lineNo, "bad id %q", parts[0])
	}
	nums := make([]float64, n)
	for i, p := range parts[1:] {
		if nums[i], err = strconv.ParseFloat(p, 64); err != nil {
			return "", nil, parseErr(vr.lineNo, "bad coordinate %q", p)
		}
	}
	return id, nums, nil
}

func (vr *viewReader) finish() error {
	if vr.cur == nil {
		return nil
	}
	if len(vr.cur.Nodes) != vr.wantNodes || len(vr.cur.Rects) != vr.wantRects {
		return parseErr(vr.startLine, "view %s declares %d nodes and %d rects but lists %d and %d",
			vr.cur.ID, vr.wantNodes, vr.wantRects, len(vr.cur.Nodes), len(vr.cur.Rects))
	}
	return nil
}
