// # internal/engine/callgraph/merge.go
package callgraph

import (
	"sort"

	"debtgraph/internal/engine/registry"
)

// Merger folds resolver fragments into one edge set. Folding is a union with
// summed counts, so the result does not depend on fragment order. A Merger is
// not safe for concurrent use; fragments are produced in parallel and folded
// by a single goroutine.
type Merger struct {
	reg      *registry.Registry
	edges    map[Edge]EdgeInfo
	dangling int
	frozen   bool
}

func NewMerger(reg *registry.Registry) *Merger {
	return &Merger{reg: reg, edges: make(map[Edge]EdgeInfo)}
}

// Fold adds every edge of f. Edges naming an unregistered function are
// rejected and counted as dangling.
func (m *Merger) Fold(f *Fragment) {
	if m.frozen {
		panic("callgraph: Fold after Freeze")
	}
	if f == nil {
		return
	}
	for e, info := range f.edges {
		if !m.reg.Contains(e.Caller) || !m.reg.Contains(e.Callee) {
			m.dangling += info.Count
			continue
		}
		m.edges[e] = m.edges[e].merge(info)
	}
}

// Freeze builds the immutable Graph. The Merger cannot be used afterwards.
func (m *Merger) Freeze() *Graph {
	if m.frozen {
		panic("callgraph: Freeze called twice")
	}
	m.frozen = true

	ids := m.reg.IDs()
	g := &Graph{
		reg:      m.reg,
		nodes:    ids,
		index:    make(map[registry.FunctionID]int, len(ids)),
		out:      make([][]int, len(ids)),
		in:       make([][]int, len(ids)),
		info:     make(map[[2]int]EdgeInfo, len(m.edges)),
		dangling: m.dangling,
	}
	for i, id := range ids {
		g.index[id] = i
	}
	for e, info := range m.edges {
		from, to := g.index[e.Caller], g.index[e.Callee]
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
		g.info[[2]int{from, to}] = info
	}
	for i := range ids {
		sort.Ints(g.out[i])
		sort.Ints(g.in[i])
	}
	m.edges = nil
	return g
}

// Merge folds fragments into a frozen Graph over every function in reg.
func Merge(reg *registry.Registry, fragments ...*Fragment) *Graph {
	m := NewMerger(reg)
	for _, f := range fragments {
		m.Fold(f)
	}
	return m.Freeze()
}
