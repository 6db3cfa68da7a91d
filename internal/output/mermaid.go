package output

import (
	"fmt"
	"strings"
	"unicode"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
)

type MermaidGenerator struct {
	graph *callgraph.Graph
}

func NewMermaidGenerator(g *callgraph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

// Generate renders a flowchart with one subgraph per file. Cycle members get
// the cycleNode class and cycle edges a red link style.
func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	nodes := m.graph.Nodes()
	names := make([]string, 0, len(nodes))
	for _, id := range nodes {
		names = append(names, id.String())
	}
	ids := makeMermaidIDs(names)

	inCycle := make(map[registry.FunctionID]int)
	for i, comp := range m.graph.Cycles() {
		for _, id := range comp {
			inCycle[id] = i + 1
		}
	}

	file := ""
	for _, id := range nodes {
		if id.File != file {
			if file != "" {
				b.WriteString("  end\n")
			}
			file = id.File
			b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", sanitizeMermaidID("file_"+file), escapeMermaidLabel(file)))
		}
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[id.String()], escapeMermaidLabel(id.Path)))
	}
	if file != "" {
		b.WriteString("  end\n")
	}

	var cycleNames []string
	for _, id := range nodes {
		if inCycle[id] > 0 {
			cycleNames = append(cycleNames, ids[id.String()])
		}
	}
	if len(cycleNames) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString("  class " + strings.Join(cycleNames, ",") + " cycleNode;\n")
	}

	var cycleLinks, approxLinks []int
	for i, e := range m.graph.Edges() {
		arrow := "-->"
		if e.Approximate {
			arrow = "-.->"
			approxLinks = append(approxLinks, i)
		}
		if c := inCycle[e.Caller]; c > 0 && c == inCycle[e.Callee] {
			cycleLinks = append(cycleLinks, i)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ids[e.Caller.String()], arrow, ids[e.Callee.String()]))
	}
	if len(cycleLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinks)))
	}
	if len(approxLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#808080;\n", joinInts(approxLinks)))
	}
	return b.String(), nil
}

func sanitizeMermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
