package output

import (
	"fmt"
	"io"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/resolver"
)

// Export writes g in one of the machine formats: json, yaml, dot, mermaid or tsv.
func Export(w io.Writer, format, root string, g *callgraph.Graph, stats *resolver.Stats) error {
	switch format {
	case "json":
		return WriteJSON(w, NewDocument(root, g, stats))
	case "yaml":
		return WriteYAML(w, NewDocument(root, g, stats))
	}

	var (
		out string
		err error
	)
	switch format {
	case "dot":
		out, err = NewDOTGenerator(g).Generate()
	case "mermaid":
		out, err = NewMermaidGenerator(g).Generate()
	case "tsv":
		out, err = NewTSVGenerator(g).Generate()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
