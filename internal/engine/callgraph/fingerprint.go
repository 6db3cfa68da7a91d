package callgraph

import (
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the node and edge sets in sorted order. Two graphs built
// from the same input always have the same fingerprint, whatever the worker
// count or chunk size.
func (g *Graph) Fingerprint() uint64 {
	h := xxh3.New()
	for _, id := range g.nodes {
		_, _ = io.WriteString(h, id.String())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	for _, e := range g.Edges() {
		_, _ = fmt.Fprintf(h, "%s>%s:%d:%t\x00", e.Caller, e.Callee, e.Count, e.Approximate)
	}
	return h.Sum64()
}
