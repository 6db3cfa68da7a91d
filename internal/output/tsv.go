// # internal/output/tsv.go
package output

import (
	"fmt"
	"strings"

	"debtgraph/internal/engine/callgraph"
)

type TSVGenerator struct {
	graph *callgraph.Graph
}

func NewTSVGenerator(g *callgraph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Caller\tCallee\tCallerFile\tLine\tCount\tApproximate\n")
	for _, e := range t.graph.Edges() {
		def, _ := t.graph.Definition(e.Caller)
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%t\n",
			e.Caller.Path, e.Callee.String(), e.Caller.File, def.Location.Line, e.Count, e.Approximate))
	}
	return buf.String(), nil
}
