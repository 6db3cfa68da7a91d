package dispatch

import (
	"context"
	"sort"
	"testing"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/parser"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/engine/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapes = `
trait Shape {
    fn area(&self) -> f64;
    fn describe(&self) -> String {
        self.area();
        String::new()
    }
}
struct Circle;
struct Square;
impl Shape for Circle {
    fn area(&self) -> f64 { 1.0 }
}
impl Shape for Square {
    fn area(&self) -> f64 { 2.0 }
    fn describe(&self) -> String { String::new() }
}
fn show(s: &dyn Shape) {
    s.area();
    s.describe();
}
fn concrete(c: Circle) {
    c.describe();
}
fn ufcs(c: &Circle) {
    Shape::area(c);
}
fn untyped() {
    let v = make();
    v.area();
    v.clone();
    v.frobnicate();
}
`

type fixture struct {
	reg   *registry.Registry
	idx   *Index
	calls []registry.UnresolvedCall
}

func buildFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	p := parser.NewParser(parser.Options{Workers: 1})
	rb := registry.NewBuilder()
	tb := NewBuilder()
	var calls []registry.UnresolvedCall
	for _, name := range names {
		f, err := p.ParseSource(name, []byte(files[name]))
		require.NoError(t, err)
		t.Cleanup(f.Close)
		facts := parser.Collect(f, parser.CollectOptions{MacroArgs: true, FunctionReferences: true})
		rb.AddFile(facts)
		tb.AddFile(facts)
		calls = append(calls, facts.Calls...)
	}
	return fixture{reg: rb.Seal(), idx: tb.Seal(), calls: calls}
}

func (f fixture) call(t *testing.T, callerPath, callee string) registry.UnresolvedCall {
	t.Helper()
	for _, c := range f.calls {
		if c.Caller.Path == callerPath && c.Callee == callee {
			return c
		}
	}
	t.Fatalf("no call %s -> %s", callerPath, callee)
	return registry.UnresolvedCall{}
}

func targetPaths(targets []Target) []string {
	out := make([]string, 0, len(targets))
	for _, tg := range targets {
		out = append(out, tg.ID.Path)
	}
	return out
}

func TestIndexCollectsTraitsAndImpls(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})

	assert.True(t, f.idx.IsTrait("Shape"))
	assert.False(t, f.idx.IsTrait("Circle"))
	require.Len(t, f.idx.Impls("Shape"), 2)
	assert.Equal(t, "Circle", f.idx.Impls("Shape")[0].Type)
	assert.Equal(t, "Square", f.idx.Impls("Shape")[1].Type)
	assert.Len(t, f.idx.ImplsFor("Circle"), 1)
	assert.Equal(t, []string{"Shape"}, f.idx.DeclaringTraits("area"))

	id, ok := f.idx.Default("Shape", "describe")
	require.True(t, ok)
	assert.Equal(t, "Shape::describe", id.Path)
	_, ok = f.idx.Default("Shape", "area")
	assert.False(t, ok)
}

func TestBuilderMisusePanics(t *testing.T) {
	b := NewBuilder()
	b.Seal()
	assert.Panics(t, func() { b.AddFile(&registry.FileFacts{}) })
	assert.Panics(t, func() { b.Seal() })
}

func TestKnownTypeFallsBackToDefaultBody(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})
	d := New(f.idx, PolicyUnder)

	targets, _ := d.Resolve(f.call(t, "concrete", "describe"))
	require.Len(t, targets, 1)
	assert.Equal(t, "Shape::describe", targets[0].ID.Path)
	assert.False(t, targets[0].Approximate)
}

func TestUnderPolicySkipsUnknownReceivers(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})
	d := New(f.idx, PolicyUnder)

	for _, c := range []registry.UnresolvedCall{
		f.call(t, "show", "area"),
		f.call(t, "Shape::describe", "area"),
		f.call(t, "ufcs", "Shape::area"),
		f.call(t, "untyped", "area"),
	} {
		targets, reason := d.Resolve(c)
		assert.Empty(t, targets, c.Callee)
		assert.Equal(t, resolver.DropPolicy, reason, "%s -> %s", c.Caller.Path, c.Callee)
	}
}

func TestOverPolicyLinksEveryImplementation(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})
	d := New(f.idx, PolicyOver)

	targets, _ := d.Resolve(f.call(t, "show", "area"))
	assert.Equal(t, []string{"Circle::area", "Square::area"}, targetPaths(targets))
	for _, tg := range targets {
		assert.True(t, tg.Approximate)
	}

	// Circle relies on the default body, Square overrides it.
	targets, _ = d.Resolve(f.call(t, "show", "describe"))
	assert.Equal(t, []string{"Square::describe", "Shape::describe"}, targetPaths(targets))

	targets, _ = d.Resolve(f.call(t, "ufcs", "Shape::area"))
	assert.Equal(t, []string{"Circle::area", "Square::area"}, targetPaths(targets))

	targets, _ = d.Resolve(f.call(t, "untyped", "area"))
	assert.Equal(t, []string{"Circle::area", "Square::area"}, targetPaths(targets))
}

func TestUnknownMethodsAreDropped(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})
	d := New(f.idx, PolicyOver)

	_, reason := d.Resolve(f.call(t, "untyped", "clone"))
	assert.Equal(t, resolver.DropStdMethod, reason)
	_, reason = d.Resolve(f.call(t, "untyped", "frobnicate"))
	assert.Equal(t, resolver.DropNoCandidate, reason)
}

func TestMethodDeclaredByTwoTraitsIsAmbiguous(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": `
trait Runner { fn run(&self); }
trait Job { fn run(&self); }
fn go_() {
    let v = make();
    v.run();
}
`})
	d := New(f.idx, PolicyOver)
	_, reason := d.Resolve(f.call(t, "go_", "run"))
	assert.Equal(t, resolver.DropAmbiguous, reason)
}

func TestNarrowUsesQualifiedTypePath(t *testing.T) {
	ids := []registry.FunctionID{
		{File: "src/ui.rs", Path: "ui::Widget::draw"},
		{File: "src/term.rs", Path: "term::Widget::draw"},
	}
	assert.Equal(t, ids[1:], narrow(ids, "term::Widget"))
	assert.Equal(t, ids, narrow(ids, "Widget"))
	assert.Equal(t, ids, narrow(ids, "other::Widget"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyUnder, p)

	p, err = ParsePolicy(" OVER ")
	require.NoError(t, err)
	assert.Equal(t, PolicyOver, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)

	assert.Equal(t, PolicyOver, New(NewBuilder().Seal(), p).Policy())
}

func TestPassAfterResolver(t *testing.T) {
	f := buildFixture(t, map[string]string{"src/lib.rs": shapes})
	r := resolver.New(f.reg, resolver.Options{})

	chunks, err := r.ResolveAll(context.Background(), f.calls, 2, 2)
	require.NoError(t, err)
	var deferred []registry.UnresolvedCall
	fragments := make([]*callgraph.Fragment, 0, len(chunks))
	for _, c := range chunks {
		deferred = append(deferred, c.Deferred...)
		fragments = append(fragments, c.Fragment)
	}

	passed, err := New(f.idx, PolicyOver).Pass(context.Background(), deferred, 1, 4)
	require.NoError(t, err)
	total := resolver.NewStats()
	for _, c := range passed {
		total.Add(c.Stats)
		fragments = append(fragments, c.Fragment)
	}
	assert.Positive(t, total.Hits[resolver.StrategyTrait])

	g := callgraph.Merge(f.reg, fragments...)
	concrete := registry.FunctionID{File: "src/lib.rs", Path: "concrete"}
	describe := registry.FunctionID{File: "src/lib.rs", Path: "Shape::describe"}
	info, ok := g.Edge(concrete, describe)
	require.True(t, ok)
	assert.False(t, info.Approximate)

	show := registry.FunctionID{File: "src/lib.rs", Path: "show"}
	circleArea := registry.FunctionID{File: "src/lib.rs", Path: "Circle::area"}
	info, ok = g.Edge(show, circleArea)
	require.True(t, ok)
	assert.True(t, info.Approximate)
}

func TestPassHandlesEmptyInput(t *testing.T) {
	d := New(NewBuilder().Seal(), PolicyUnder)
	out, err := d.Pass(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
