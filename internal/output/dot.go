// # internal/output/dot.go
package output

import (
	"fmt"
	"strings"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
)

type DOTGenerator struct {
	graph *callgraph.Graph
}

func NewDOTGenerator(g *callgraph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders one cluster per file. Edges inside a cycle are red;
// approximate dispatch edges are dashed.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph callgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  overlap=false;\n\n")

	inCycle := make(map[registry.FunctionID]int)
	for i, comp := range d.graph.Cycles() {
		for _, id := range comp {
			inCycle[id] = i + 1
		}
	}

	byFile := make(map[string][]registry.FunctionID)
	var files []string
	for _, id := range d.graph.Nodes() {
		if _, ok := byFile[id.File]; !ok {
			files = append(files, id.File)
		}
		byFile[id.File] = append(byFile[id.File], id)
	}

	for i, file := range files {
		buf.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		buf.WriteString(fmt.Sprintf("    label=%s;\n", quote(file)))
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		for _, id := range byFile[file] {
			label := id.Path
			if id.Disambiguator > 0 {
				label = fmt.Sprintf("%s #%d", id.Path, id.Disambiguator)
			}
			if inCycle[id] > 0 {
				buf.WriteString(fmt.Sprintf("    %s [label=%s, fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n", quote(id.String()), quote(label)))
			} else {
				buf.WriteString(fmt.Sprintf("    %s [label=%s];\n", quote(id.String()), quote(label)))
			}
		}
		buf.WriteString("  }\n\n")
	}

	for _, e := range d.graph.Edges() {
		attrs := []string{}
		if c := inCycle[e.Caller]; c > 0 && c == inCycle[e.Callee] {
			attrs = append(attrs, "color=\"red\"", "penwidth=2.0")
		}
		if e.Approximate {
			attrs = append(attrs, "style=dashed")
		}
		if e.Count > 1 {
			attrs = append(attrs, fmt.Sprintf("label=\"%d\"", e.Count))
		}
		line := fmt.Sprintf("  %s -> %s", quote(e.Caller.String()), quote(e.Callee.String()))
		if len(attrs) > 0 {
			line += " [" + strings.Join(attrs, ", ") + "]"
		}
		buf.WriteString(line + ";\n")
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}
