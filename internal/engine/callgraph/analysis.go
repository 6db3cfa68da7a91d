// # internal/engine/callgraph/analysis.go
package callgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"debtgraph/internal/engine/registry"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// CycleError reports the cycle that blocks a topological order. Cycle lists
// the functions along one loop, starting at the smallest member; the last
// element calls the first.
type CycleError struct {
	Cycle []registry.FunctionID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = id.String()
	}
	return fmt.Sprintf("call graph has a cycle: %s", strings.Join(parts, " -> "))
}

// directed converts the graph for gonum. Node IDs are indexes into g.nodes.
// Self-loops are left out because simple graphs reject them; callers check
// hasSelfLoop separately.
func (g *Graph) directed() *simple.DirectedGraph {
	d := simple.NewDirectedGraph()
	for i := range g.nodes {
		d.AddNode(simple.Node(int64(i)))
	}
	for from, targets := range g.out {
		for _, to := range targets {
			if from == to {
				continue
			}
			d.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
		}
	}
	return d
}

func sortNodes(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// StronglyConnectedComponents partitions every function into its SCC. Each
// component is sorted, and components are ordered by their first member.
func (g *Graph) StronglyConnectedComponents() [][]registry.FunctionID {
	comps := topo.TarjanSCC(g.directed())
	out := make([][]registry.FunctionID, 0, len(comps))
	for _, comp := range comps {
		out = append(out, g.component(comp))
	}
	sortComponents(out)
	return out
}

// Cycles returns the components that contain a loop: every SCC with more than
// one member plus every self-recursive function.
func (g *Graph) Cycles() [][]registry.FunctionID {
	var out [][]registry.FunctionID
	for _, comp := range topo.TarjanSCC(g.directed()) {
		if len(comp) == 1 && !g.hasSelfLoop(int(comp[0].ID())) {
			continue
		}
		out = append(out, g.component(comp))
	}
	sortComponents(out)
	return out
}

func (g *Graph) component(nodes []graph.Node) []registry.FunctionID {
	sortNodes(nodes)
	ids := make([]registry.FunctionID, len(nodes))
	for i, n := range nodes {
		ids[i] = g.nodes[n.ID()]
	}
	return ids
}

func sortComponents(comps [][]registry.FunctionID) {
	sort.Slice(comps, func(i, j int) bool { return registry.Less(comps[i][0], comps[j][0]) })
}

// TopologicalSort orders functions so that every caller precedes its callees.
// Ties are broken by ID order, so the result is deterministic. A graph with a
// cycle, including a self-recursive function, returns a *CycleError.
func (g *Graph) TopologicalSort() ([]registry.FunctionID, error) {
	sorted, err := topo.SortStabilized(g.directed(), sortNodes)
	if err != nil {
		var unorderable topo.Unorderable
		if !errors.As(err, &unorderable) || len(unorderable) == 0 {
			return nil, err
		}
		comps := make([][]registry.FunctionID, 0, len(unorderable))
		for _, comp := range unorderable {
			comps = append(comps, g.component(comp))
		}
		sortComponents(comps)
		return nil, &CycleError{Cycle: g.cyclePath(comps[0])}
	}

	for i := range g.nodes {
		if g.hasSelfLoop(i) {
			return nil, &CycleError{Cycle: []registry.FunctionID{g.nodes[i]}}
		}
	}

	order := make([]registry.FunctionID, len(sorted))
	for i, n := range sorted {
		order[i] = g.nodes[n.ID()]
	}
	return order, nil
}

// cyclePath finds one loop through the first member of an SCC, walking
// callees in sorted order and staying inside the component.
func (g *Graph) cyclePath(comp []registry.FunctionID) []registry.FunctionID {
	members := make(map[int]bool, len(comp))
	for _, id := range comp {
		members[g.index[id]] = true
	}
	start := g.index[comp[0]]

	prev := map[int]int{start: -1}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.out[cur] {
			if !members[next] {
				continue
			}
			if next == start {
				var path []registry.FunctionID
				for n := cur; n != -1; n = prev[n] {
					path = append(path, g.nodes[n])
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return comp
}

// TransitiveCallees returns every function reachable from id within maxDepth
// calls (unbounded when maxDepth <= 0), sorted, excluding id itself.
func (g *Graph) TransitiveCallees(id registry.FunctionID, maxDepth int) []registry.FunctionID {
	return g.reach(id, maxDepth, g.out)
}

// TransitiveCallers returns every function that reaches id within maxDepth
// calls, sorted, excluding id itself.
func (g *Graph) TransitiveCallers(id registry.FunctionID, maxDepth int) []registry.FunctionID {
	return g.reach(id, maxDepth, g.in)
}

func (g *Graph) reach(id registry.FunctionID, maxDepth int, adj [][]int) []registry.FunctionID {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := map[int]bool{start: true}
	frontier := []int{start}
	var found []int
	for depth := 0; len(frontier) > 0 && (maxDepth <= 0 || depth < maxDepth); depth++ {
		var next []int
		for _, cur := range frontier {
			for _, n := range adj[cur] {
				if seen[n] {
					continue
				}
				seen[n] = true
				found = append(found, n)
				next = append(next, n)
			}
		}
		frontier = next
	}
	sort.Ints(found)
	return g.ids(found)
}

// Reachable marks every function reachable from roots, roots included.
func (g *Graph) Reachable(roots []registry.FunctionID) map[registry.FunctionID]bool {
	seen := make(map[int]bool, len(roots))
	var queue []int
	for _, id := range roots {
		if i, ok := g.index[id]; ok && !seen[i] {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.out[cur] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	out := make(map[registry.FunctionID]bool, len(seen))
	for i := range seen {
		out[g.nodes[i]] = true
	}
	return out
}

// DeadCandidates lists private, non-test, non-entry functions that no other
// function calls. Trait implementation methods are excluded because they are
// reached through dispatch the graph may not see.
func (g *Graph) DeadCandidates() []registry.FunctionID {
	var out []registry.FunctionID
	for i, id := range g.nodes {
		def, ok := g.reg.Lookup(id)
		if !ok || def.IsEntryPoint || def.IsTest || def.Trait != "" {
			continue
		}
		if def.Visibility == registry.VisibilityPublic {
			continue
		}
		if g.externalCallers(i) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// externalCallers counts callers other than the function itself.
func (g *Graph) externalCallers(i int) int {
	n := len(g.in[i])
	if g.hasSelfLoop(i) {
		n--
	}
	return n
}
