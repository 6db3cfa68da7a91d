// # internal/engine/callgraph/edge.go
package callgraph

import "debtgraph/internal/engine/registry"

// Edge is a directed caller -> callee pair between registered functions.
type Edge struct {
	Caller registry.FunctionID
	Callee registry.FunctionID
}

// EdgeInfo carries the multiplicity of an edge and whether any contributing
// call site was added by over-approximated trait dispatch.
type EdgeInfo struct {
	Count       int
	Approximate bool
}

func (e EdgeInfo) merge(o EdgeInfo) EdgeInfo {
	if e.Count == 0 {
		return o
	}
	return EdgeInfo{
		Count:       e.Count + o.Count,
		Approximate: e.Approximate && o.Approximate,
	}
}

// Fragment is the edge set produced by one resolver chunk. It is owned by a
// single goroutine until handed to a Merger.
type Fragment struct {
	edges map[Edge]EdgeInfo
}

func NewFragment() *Fragment {
	return &Fragment{edges: make(map[Edge]EdgeInfo)}
}

// Add records one resolved call site.
func (f *Fragment) Add(caller, callee registry.FunctionID, approximate bool) {
	e := Edge{Caller: caller, Callee: callee}
	f.edges[e] = f.edges[e].merge(EdgeInfo{Count: 1, Approximate: approximate})
}

// Len is the number of distinct edges.
func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	return len(f.edges)
}

// Calls is the number of call sites folded into the fragment.
func (f *Fragment) Calls() int {
	if f == nil {
		return 0
	}
	total := 0
	for _, info := range f.edges {
		total += info.Count
	}
	return total
}
