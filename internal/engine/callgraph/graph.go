// # internal/engine/callgraph/graph.go
package callgraph

import (
	"debtgraph/internal/engine/registry"
)

// Graph is the frozen call graph. Every registered function is a node, even
// when it has no edges. All queries are read-only and safe for concurrent use.
type Graph struct {
	reg      *registry.Registry
	nodes    []registry.FunctionID
	index    map[registry.FunctionID]int
	out      [][]int
	in       [][]int
	info     map[[2]int]EdgeInfo
	dangling int
}

// WeightedEdge is an edge together with its info, as returned by Edges.
type WeightedEdge struct {
	Edge
	EdgeInfo
}

func (g *Graph) Registry() *registry.Registry {
	return g.reg
}

// Nodes returns every function in sorted order.
func (g *Graph) Nodes() []registry.FunctionID {
	return append([]registry.FunctionID(nil), g.nodes...)
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	return len(g.info)
}

// DanglingEdges counts call sites whose endpoints were not registered when
// the fragments were merged.
func (g *Graph) DanglingEdges() int {
	return g.dangling
}

func (g *Graph) Has(id registry.FunctionID) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) Definition(id registry.FunctionID) (registry.Definition, bool) {
	return g.reg.Lookup(id)
}

// Edge reports the info of caller -> callee, if present.
func (g *Graph) Edge(caller, callee registry.FunctionID) (EdgeInfo, bool) {
	from, ok := g.index[caller]
	if !ok {
		return EdgeInfo{}, false
	}
	to, ok := g.index[callee]
	if !ok {
		return EdgeInfo{}, false
	}
	info, ok := g.info[[2]int{from, to}]
	return info, ok
}

// Edges lists every edge ordered by caller, then callee.
func (g *Graph) Edges() []WeightedEdge {
	out := make([]WeightedEdge, 0, len(g.info))
	for from, targets := range g.out {
		for _, to := range targets {
			out = append(out, WeightedEdge{
				Edge:     Edge{Caller: g.nodes[from], Callee: g.nodes[to]},
				EdgeInfo: g.info[[2]int{from, to}],
			})
		}
	}
	return out
}

// Callees returns the functions id calls directly, sorted. Unknown ids have
// no callees.
func (g *Graph) Callees(id registry.FunctionID) []registry.FunctionID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.ids(g.out[i])
}

// Callers returns the functions that call id directly, sorted.
func (g *Graph) Callers(id registry.FunctionID) []registry.FunctionID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.ids(g.in[i])
}

func (g *Graph) FanIn(id registry.FunctionID) int {
	if i, ok := g.index[id]; ok {
		return len(g.in[i])
	}
	return 0
}

func (g *Graph) FanOut(id registry.FunctionID) int {
	if i, ok := g.index[id]; ok {
		return len(g.out[i])
	}
	return 0
}

func (g *Graph) ids(idx []int) []registry.FunctionID {
	out := make([]registry.FunctionID, len(idx))
	for k, i := range idx {
		out[k] = g.nodes[i]
	}
	return out
}

func (g *Graph) hasSelfLoop(i int) bool {
	_, ok := g.info[[2]int{i, i}]
	return ok
}

// EntryPoints returns functions detected as program entry points.
func (g *Graph) EntryPoints() []registry.FunctionID {
	return g.filter(func(d registry.Definition) bool { return d.IsEntryPoint })
}

// TestFunctions returns functions detected as tests.
func (g *Graph) TestFunctions() []registry.FunctionID {
	return g.filter(func(d registry.Definition) bool { return d.IsTest })
}

func (g *Graph) filter(keep func(registry.Definition) bool) []registry.FunctionID {
	var out []registry.FunctionID
	for _, id := range g.nodes {
		if def, ok := g.reg.Lookup(id); ok && keep(def) {
			out = append(out, id)
		}
	}
	return out
}
