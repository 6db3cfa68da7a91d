package callgraph

import (
	"errors"
	"testing"

	"debtgraph/internal/engine/registry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFile = "src/lib.rs"

type defOption func(*registry.Definition)

func entry(d *registry.Definition) { d.IsEntryPoint = true }
func public(d *registry.Definition) { d.Visibility = registry.VisibilityPublic }

func buildRegistry(t *testing.T, defs map[string][]defOption) (*registry.Registry, map[string]registry.FunctionID) {
	t.Helper()
	b := registry.NewBuilder()
	ids := make(map[string]registry.FunctionID, len(defs))
	line := 1
	for path, opts := range defs {
		def := registry.Definition{
			ID:         registry.FunctionID{File: testFile, Path: path},
			Name:       path,
			Kind:       registry.KindFunction,
			Location:   registry.Location{File: testFile, Line: line},
			Visibility: registry.VisibilityPrivate,
		}
		for _, opt := range opts {
			opt(&def)
		}
		ids[path] = b.Register(def)
		line += 10
	}
	return b.Seal(), ids
}

func plain(names ...string) map[string][]defOption {
	out := make(map[string][]defOption, len(names))
	for _, n := range names {
		out[n] = nil
	}
	return out
}

func fragment(ids map[string]registry.FunctionID, approximate bool, pairs ...string) *Fragment {
	f := NewFragment()
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Add(ids[pairs[i]], ids[pairs[i+1]], approximate)
	}
	return f
}

func TestMergeIsOrderIndependent(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c"))
	f1 := fragment(ids, false, "a", "b")
	f2 := fragment(ids, false, "a", "b", "a", "b", "b", "c")
	f3 := fragment(ids, true, "b", "c", "c", "a")

	g1 := Merge(reg, f1, f2, f3)
	g2 := Merge(reg, f3, f2, f1)

	if diff := cmp.Diff(g1.Edges(), g2.Edges()); diff != "" {
		t.Fatalf("edge sets differ by merge order (-first +second):\n%s", diff)
	}
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())

	ab, ok := g1.Edge(ids["a"], ids["b"])
	require.True(t, ok)
	assert.Equal(t, EdgeInfo{Count: 3}, ab)

	bc, _ := g1.Edge(ids["b"], ids["c"])
	assert.Equal(t, EdgeInfo{Count: 2, Approximate: false}, bc, "an exact site makes the edge exact")

	ca, _ := g1.Edge(ids["c"], ids["a"])
	assert.Equal(t, EdgeInfo{Count: 1, Approximate: true}, ca)
}

func TestMergeRejectsUnregisteredEndpoints(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a"))
	f := NewFragment()
	f.Add(ids["a"], registry.FunctionID{File: "src/other.rs", Path: "ghost"}, false)

	g := Merge(reg, f)
	assert.Zero(t, g.EdgeCount())
	assert.Equal(t, 1, g.DanglingEdges())
	assert.Equal(t, 1, g.NodeCount())
}

func TestFragmentCountsCallSites(t *testing.T) {
	_, ids := buildRegistry(t, plain("a", "b", "c"))
	f := fragment(ids, false, "a", "b", "a", "b", "b", "c")
	assert.Equal(t, 3, f.Calls())

	var missing *Fragment
	assert.Zero(t, missing.Calls())
}

func TestMergerPanicsAfterFreeze(t *testing.T) {
	reg, _ := buildRegistry(t, plain("a"))
	m := NewMerger(reg)
	m.Freeze()
	assert.Panics(t, func() { m.Fold(NewFragment()) })
	assert.Panics(t, func() { m.Freeze() })
}

func TestCallersAndCallees(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c", "lonely"))
	g := Merge(reg, fragment(ids, false, "c", "b", "a", "b", "a", "c"))

	assert.Equal(t, []registry.FunctionID{ids["b"], ids["c"]}, g.Callees(ids["a"]))
	assert.Equal(t, []registry.FunctionID{ids["a"], ids["c"]}, g.Callers(ids["b"]))
	assert.Empty(t, g.Callers(ids["lonely"]))
	assert.Empty(t, g.Callees(ids["lonely"]))
	assert.True(t, g.Has(ids["lonely"]), "functions without edges are still nodes")

	unknown := registry.FunctionID{File: "x.rs", Path: "nope"}
	assert.Nil(t, g.Callers(unknown))
	assert.Nil(t, g.Callees(unknown))
	assert.Equal(t, 2, g.FanOut(ids["a"]))
	assert.Equal(t, 2, g.FanIn(ids["b"]))
}

func TestStronglyConnectedComponents(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c", "d", "e"))
	g := Merge(reg, fragment(ids, false,
		"a", "b", "b", "c", "c", "a",
		"d", "a",
		"e", "e",
	))

	sccs := g.StronglyConnectedComponents()
	assert.Equal(t, [][]registry.FunctionID{
		{ids["a"], ids["b"], ids["c"]},
		{ids["d"]},
		{ids["e"]},
	}, sccs)

	assert.Equal(t, [][]registry.FunctionID{
		{ids["a"], ids["b"], ids["c"]},
		{ids["e"]},
	}, g.Cycles())
}

func TestTopologicalSortOrdersCallersFirst(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c", "d", "solo"))
	g := Merge(reg, fragment(ids, false, "a", "b", "a", "c", "b", "d", "c", "d"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 5)

	pos := make(map[registry.FunctionID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, pos[e.Caller], pos[e.Callee], "%s must precede %s", e.Caller, e.Callee)
	}

	again, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, order, again)
}

func TestTopologicalSortReportsCycle(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c", "d"))
	g := Merge(reg, fragment(ids, false, "d", "a", "a", "b", "b", "c", "c", "a"))

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr), "got %v", err)
	assert.Equal(t, []registry.FunctionID{ids["a"], ids["b"], ids["c"]}, cycleErr.Cycle)
	assert.Contains(t, err.Error(), "src/lib.rs:a -> src/lib.rs:b")
}

func TestTopologicalSortReportsSelfRecursion(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "fact"))
	g := Merge(reg, fragment(ids, false, "a", "fact", "fact", "fact"))

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []registry.FunctionID{ids["fact"]}, cycleErr.Cycle)
}

func TestTransitiveQueries(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b", "c", "d"))
	g := Merge(reg, fragment(ids, false, "a", "b", "b", "c", "c", "d", "d", "b"))

	assert.Equal(t, []registry.FunctionID{ids["b"], ids["c"], ids["d"]}, g.TransitiveCallees(ids["a"], 0))
	assert.Equal(t, []registry.FunctionID{ids["b"]}, g.TransitiveCallees(ids["a"], 1))
	assert.Equal(t, []registry.FunctionID{ids["a"], ids["b"], ids["c"]}, g.TransitiveCallers(ids["d"], 0))
	assert.Equal(t, []registry.FunctionID{ids["c"]}, g.TransitiveCallers(ids["d"], 1))

	reach := g.Reachable([]registry.FunctionID{ids["c"]})
	assert.True(t, reach[ids["b"]])
	assert.False(t, reach[ids["a"]])
}

func TestDeadCandidates(t *testing.T) {
	reg, ids := buildRegistry(t, map[string][]defOption{
		"main":    {entry},
		"used":    nil,
		"unused":  nil,
		"api":     {public},
		"recurse": nil,
	})
	g := Merge(reg, fragment(ids, false, "main", "used", "recurse", "recurse"))

	assert.Equal(t, []registry.FunctionID{ids["recurse"], ids["unused"]}, g.DeadCandidates())
}

func TestEntryPointsAndTestFunctions(t *testing.T) {
	test := func(d *registry.Definition) { d.IsTest = true }
	reg, ids := buildRegistry(t, map[string][]defOption{
		"main":   {entry},
		"serve":  {entry, public},
		"checks": {test},
		"helper": nil,
	})
	g := Merge(reg)

	assert.Equal(t, []registry.FunctionID{ids["main"], ids["serve"]}, g.EntryPoints())
	assert.Equal(t, []registry.FunctionID{ids["checks"]}, g.TestFunctions())
}

func TestValidateReport(t *testing.T) {
	reg, ids := buildRegistry(t, map[string][]defOption{
		"main":    {entry},
		"helper":  nil,
		"orphan":  nil,
		"unreach": nil,
		"rec":     nil,
	})
	g := Merge(reg, fragment(ids, false, "main", "helper", "unreach", "helper", "rec", "rec"))

	report := g.Validate(ValidationOptions{})
	assert.Equal(t, ValidationStats{
		TotalFunctions: 5,
		EntryPoints:    1,
		Leaves:         1,
		Unreachable:    1,
		Isolated:       1,
		Recursive:      1,
	}, report.Stats)
	assert.Equal(t, []Issue{
		{Kind: IssueIsolated, Function: ids["orphan"]},
		{Kind: IssueUnreachable, Function: ids["unreach"]},
	}, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, []registry.FunctionID{ids["rec"]}, report.Recursive)
	assert.Equal(t, 99, report.HealthScore)

	strict := g.Validate(ValidationOptions{MaxCallers: 1, Whitelist: []string{"orphan", "unreach"}})
	require.Len(t, strict.Warnings, 1)
	assert.Equal(t, WarningTooManyCallers, strict.Warnings[0].Kind)
	assert.Equal(t, 98, strict.HealthScore)
}

func TestValidatePenalizesDanglingAndDuplicates(t *testing.T) {
	b := registry.NewBuilder()
	main := b.Register(registry.Definition{
		ID: registry.FunctionID{File: testFile, Path: "main"}, Name: "main",
		Location: registry.Location{File: testFile, Line: 1}, IsEntryPoint: true,
	})
	open := registry.FunctionID{File: testFile, Path: "open"}
	first := b.Register(registry.Definition{ID: open, Name: "open", Location: registry.Location{File: testFile, Line: 3}})
	second := b.Register(registry.Definition{ID: open, Name: "open", Location: registry.Location{File: testFile, Line: 5}})
	reg := b.Seal()

	f := NewFragment()
	f.Add(main, first, false)
	f.Add(main, second, false)
	f.Add(main, registry.FunctionID{File: "gone.rs", Path: "x"}, false)
	report := Merge(reg, f).Validate(ValidationOptions{})

	assert.Equal(t, []Issue{
		{Kind: IssueDangling, Count: 1},
		{Kind: IssueDuplicate, Function: second, Count: 2},
	}, report.Issues)
	assert.Equal(t, 85, report.HealthScore)
}

func TestHealthScoreFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0, healthScore(ValidationReport{Issues: []Issue{{Kind: IssueDangling, Count: 20}}}))
	assert.Equal(t, 100, healthScore(ValidationReport{}))
}

func TestFingerprintTracksEdges(t *testing.T) {
	reg, ids := buildRegistry(t, plain("a", "b"))
	empty := Merge(reg)
	linked := Merge(reg, fragment(ids, false, "a", "b"))
	twice := Merge(reg, fragment(ids, false, "a", "b", "a", "b"))

	assert.NotEqual(t, empty.Fingerprint(), linked.Fingerprint())
	assert.NotEqual(t, linked.Fingerprint(), twice.Fingerprint())
	assert.Equal(t, linked.Fingerprint(), Merge(reg, fragment(ids, false, "a", "b")).Fingerprint())
}
