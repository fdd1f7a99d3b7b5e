package graph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Titles maps section ids to node labels. Missing ids are labelled with
	// the id itself.
	Titles map[string]string
	// Broken adds a dashed node for every id that is linked but undefined.
	Broken bool
}

// DOT renders the graph in Graphviz DOT format. Edges carry their link
// count as a label when it is greater than one.
func DOT(g *Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph weave {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, id := range g.order {
		label := id
		if t := opts.Titles[id]; t != "" {
			label = t
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", id, label)
	}
	if opts.Broken {
		for _, id := range g.Broken() {
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,dashed\", color=red, fontcolor=red];\n", id, id)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := ""
		if e.Count > 1 {
			attrs = fmt.Sprintf(" [label=\"%d\"]", e.Count)
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", e.From, e.To, attrs)
	}
	if opts.Broken {
		for _, id := range g.Broken() {
			for _, src := range brokenSources(g, id) {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=red];\n", src, id)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// brokenSources lists the known sections linking to the undefined id, in
// occurrence order without repeats.
func brokenSources(g *Graph, id string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range g.Occurrences[id] {
		if _, ok := g.Nodes[l.SourceID]; !ok || seen[l.SourceID] {
			continue
		}
		seen[l.SourceID] = true
		out = append(out, l.SourceID)
	}
	return out
}

// RenderSVG lays out a DOT graph with Graphviz and returns the SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: init graphviz: %w", err)
	}
	defer gv.Close()

	gr, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("graph: parse dot: %w", err)
	}
	defer gr.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, gr, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("graph: render svg: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
