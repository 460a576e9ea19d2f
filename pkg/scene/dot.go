package scene

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts the placement tree to Graphviz DOT format.
// Flagged placements are filled red and synthetic overlap highlights yellow.
func ToDOT(root *Placement) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if root == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	ids := make(map[*Placement]string)
	var edges []string
	_ = root.Walk(func(p *Placement, _ int) error {
		id := fmt.Sprintf("n%d", len(ids))
		ids[p] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(fmtAttrs(p), ", "))
		if parent := p.Parent(); parent != nil {
			if pid, ok := ids[parent]; ok {
				edges = append(edges, fmt.Sprintf("  %s -> %s;\n", pid, id))
			}
		}
		return nil
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(p *Placement) []string {
	label := p.Name
	if s, ok := p.Solid.(fmt.Stringer); ok {
		label += "\n" + s.String()
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case p.Synthetic:
		attrs = append(attrs, "fillcolor=yellow", "style=\"rounded,filled,dashed\"")
	case p.Vis.Flagged:
		attrs = append(attrs, "fillcolor=\"#ff8080\"")
	case p.IsRoot():
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
