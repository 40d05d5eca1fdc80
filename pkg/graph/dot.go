package graph

import (
	"bytes"
	"fmt"
	"strings"
)

// DOT serializes the graph to Graphviz DOT format. Node statements come
// first in insertion order, then edge statements in insertion order, so
// identical graphs always produce byte-identical output. An empty graph
// renders as a syntactically valid empty digraph rather than an error,
// since "nothing to draw" is an expected outcome.
func (g *Graph) DOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	for _, id := range g.nodes {
		if attrs := g.attrs[id]; len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q [%s];\n", id, fmtAttrs(attrs))
		} else {
			fmt.Fprintf(&buf, "  %q;\n", id)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.edges {
		if e.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(attrs []Attr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = fmt.Sprintf("%s=%q", a.Key, a.Value)
	}
	return strings.Join(parts, ", ")
}
