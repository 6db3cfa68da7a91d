package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"debtgraph/internal/core/config"
	"debtgraph/internal/core/errors"
	"debtgraph/internal/core/ports"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/engine/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func newTestApp(t *testing.T, root string, mutate func(*config.Config), opts ...Option) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Analysis.Root = root
	cfg.Analysis.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	a, err := New(cfg, opts...)
	require.NoError(t, err)
	return a
}

func id(file, path string) registry.FunctionID {
	return registry.FunctionID{File: file, Path: path}
}

var crossFileProject = map[string]string{
	"src/a.rs": "use b::bar;\nfn foo() { bar(); }\n",
	"src/b.rs": "pub fn bar() {}\n",
	"src/lib.rs": `
fn outer() { fn inner() {} inner(); }

struct Foo;
struct Bar;
impl Foo {
    fn new() -> Self { Foo }
    fn m(&self) { Self::new(); }
}
impl Bar {
    fn new() -> Self { Bar }
}

fn uses_external() { serde_json::to_string(&1); }
`,
}

func TestBuildResolvesAcrossFilesAndScopes(t *testing.T) {
	root := writeProject(t, crossFileProject)
	a := newTestApp(t, root, nil)
	res, err := a.Build(context.Background())
	require.NoError(t, err)
	g := res.Graph

	assert.Equal(t, 3, res.Files)
	assert.Empty(t, res.Failures)

	// Imported function across files.
	_, ok := g.Edge(id("src/a.rs", "a::foo"), id("src/b.rs", "b::bar"))
	assert.True(t, ok, "foo -> bar")

	// Nested function is its own node.
	assert.True(t, g.Has(id("src/lib.rs", "outer")))
	assert.True(t, g.Has(id("src/lib.rs", "outer::inner")))
	_, ok = g.Edge(id("src/lib.rs", "outer"), id("src/lib.rs", "outer::inner"))
	assert.True(t, ok, "outer -> outer::inner")

	// Self:: binds to the enclosing impl.
	m := id("src/lib.rs", "Foo::m")
	_, ok = g.Edge(m, id("src/lib.rs", "Foo::new"))
	assert.True(t, ok, "Foo::m -> Foo::new")
	_, ok = g.Edge(m, id("src/lib.rs", "Bar::new"))
	assert.False(t, ok, "Foo::m must not reach Bar::new")

	// External call leaves no edge and is counted.
	assert.Empty(t, g.Callees(id("src/lib.rs", "uses_external")))
	assert.Positive(t, res.Stats.DroppedTotal())
	assert.Zero(t, g.DanglingEdges())

	for _, phase := range []string{"parse", "collect", "register", "resolve", "dispatch", "merge"} {
		assert.Contains(t, res.Phases, phase)
	}
	assert.Same(t, res, a.Last())
}

func TestBuildIsDeterministicAcrossWorkerCounts(t *testing.T) {
	root := writeProject(t, crossFileProject)

	serial, err := newTestApp(t, root, func(c *config.Config) {
		c.Analysis.Workers = 1
		c.Resolver.ChunkSize = 1
	}).Build(context.Background())
	require.NoError(t, err)

	parallel, err := newTestApp(t, root, func(c *config.Config) {
		c.Analysis.Workers = 8
		c.Resolver.ChunkSize = 3
	}).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial.Graph.Fingerprint(), parallel.Graph.Fingerprint())
	assert.Equal(t, serial.Graph.Edges(), parallel.Graph.Edges())
	assert.Equal(t, serial.Stats.Resolved(), parallel.Stats.Resolved())
}

func TestBuildIsIndependentOfFileOrder(t *testing.T) {
	root := writeProject(t, crossFileProject)
	a := newTestApp(t, root, nil)
	paths, err := a.Discover(a.Root())
	require.NoError(t, err)
	require.Len(t, paths, 3)

	reversed := make([]string, len(paths))
	for i, p := range paths {
		reversed[len(paths)-1-i] = p
	}
	rotated := append(append([]string{}, paths[1:]...), paths[0])

	forward, err := a.BuildFiles(context.Background(), a.Root(), paths)
	require.NoError(t, err)
	for _, order := range [][]string{reversed, rotated} {
		other, err := a.BuildFiles(context.Background(), a.Root(), order)
		require.NoError(t, err)
		assert.Equal(t, forward.Graph.Edges(), other.Graph.Edges())
		assert.Equal(t, forward.Graph.Fingerprint(), other.Graph.Fingerprint())
	}
}

func TestBuildUnderPolicyIgnoresSameFileImplementation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/lib.rs": `
trait Shape { fn area(&self) -> f64; }
struct Circle;
impl Shape for Circle { fn area(&self) -> f64 { 1.0 } }
fn total(shapes: Vec<Box<dyn Shape>>) { for s in shapes.iter() { s.area(); } }
`,
		"src/square.rs": "use crate::Shape;\npub struct Square;\nimpl Shape for Square { fn area(&self) -> f64 { 2.0 } }\n",
	})
	total := id("src/lib.rs", "total")

	under, err := newTestApp(t, root, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, under.Graph.Callees(total))
	assert.Zero(t, under.Stats.Hits[resolver.StrategySameFile])

	over, err := newTestApp(t, root, func(c *config.Config) {
		c.Resolver.DispatchPolicy = config.PolicyOver
	}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.FunctionID{
		id("src/lib.rs", "Circle::area"),
		id("src/square.rs", "square::Square::area"),
	}, over.Graph.Callees(total))
}

func TestBuildDispatchPolicy(t *testing.T) {
	root := writeProject(t, map[string]string{"src/lib.rs": `
trait Shape { fn area(&self) -> f64; }
struct Circle;
struct Square;
impl Shape for Circle { fn area(&self) -> f64 { 1.0 } }
impl Shape for Square { fn area(&self) -> f64 { 2.0 } }
fn total(s: &dyn Shape) -> f64 { s.area() }
`})
	total := id("src/lib.rs", "total")

	under, err := newTestApp(t, root, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, under.Graph.Callees(total))

	over, err := newTestApp(t, root, func(c *config.Config) {
		c.Resolver.DispatchPolicy = config.PolicyOver
	}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.FunctionID{
		id("src/lib.rs", "Circle::area"),
		id("src/lib.rs", "Square::area"),
	}, over.Graph.Callees(total))
	info, ok := over.Graph.Edge(total, id("src/lib.rs", "Circle::area"))
	require.True(t, ok)
	assert.True(t, info.Approximate)

	assert.Equal(t, "under", string(under.Policy))
	assert.Zero(t, under.Dispatched)
	assert.Equal(t, "over", string(over.Policy))
	assert.Equal(t, 2, over.Dispatched)
}

func TestBuildFrameworkEntryPointsAreNotDead(t *testing.T) {
	root := writeProject(t, map[string]string{"src/lib.rs": `
#[get("/")]
fn index() {}

#[no_mangle]
extern "C" fn ffi_entry() {}

#[bench]
fn bench_parse(b: &mut Bencher) {}

#[tokio::main]
async fn serve() {}

fn forgotten() {}
`})
	res, err := newTestApp(t, root, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.FunctionID{id("src/lib.rs", "forgotten")}, res.Graph.DeadCandidates())
	assert.Len(t, res.Graph.EntryPoints(), 3)
	assert.Equal(t, []registry.FunctionID{id("src/lib.rs", "bench_parse")}, res.Graph.TestFunctions())
}

func TestBuildFatalErrors(t *testing.T) {
	a := newTestApp(t, t.TempDir(), nil)

	_, err := a.BuildFiles(context.Background(), a.Root(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	missing := newTestApp(t, filepath.Join(t.TempDir(), "missing"), nil)
	_, err = missing.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	assert.Nil(t, missing.Last())
}

func TestNewRejectsBadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Resolver.DispatchPolicy = "maybe"
	_, err := New(cfg)
	require.Error(t, err)

	_, err = New(nil)
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := writeProject(t, crossFileProject)
	a := newTestApp(t, root, nil)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first, err := a.Build(context.Background())
	require.NoError(t, err)
	firstID, err := a.SaveSnapshot(context.Background(), first, dbPath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.rs"), []byte("pub fn bar() { baz(); }\npub fn baz() {}\n"), 0o644))
	second, err := a.Build(context.Background())
	require.NoError(t, err)
	secondID, err := a.SaveSnapshot(context.Background(), second, dbPath)
	require.NoError(t, err)

	trend, err := a.History(dbPath, time.Time{})
	require.NoError(t, err)
	require.Len(t, trend.Points, 2)

	diff, err := a.DiffRuns(dbPath, firstID, secondID)
	require.NoError(t, err)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "src/b.rs:b::bar", diff.Added[0].Caller)
	assert.Equal(t, "src/b.rs:b::baz", diff.Added[0].Callee)
	assert.Empty(t, diff.Removed)

	_, err = a.DiffRuns(dbPath, firstID, "no-such-run")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSnapshotRequiresPath(t *testing.T) {
	a := newTestApp(t, t.TempDir(), nil)
	_, err := a.History(" ", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

type fakeWatcher struct {
	onChange func([]string)
	closed   bool
}

func (f *fakeWatcher) Watch(paths []string) error {
	go f.onChange(paths)
	return nil
}

func (f *fakeWatcher) Close() error {
	f.closed = true
	return nil
}

func TestWatchRebuildsOnChange(t *testing.T) {
	root := writeProject(t, crossFileProject)
	fake := &fakeWatcher{}
	a := newTestApp(t, root, nil, WithWatcherFactory(
		func(_ time.Duration, _, _ []string, onChange func([]string)) (ports.ChangeWatcher, error) {
			fake.onChange = onChange
			return fake, nil
		}))

	ctx, cancel := context.WithCancel(context.Background())
	builds := make(chan *Result, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(res *Result, err error) {
			assert.NoError(t, err)
			builds <- res
		})
	}()

	select {
	case res := <-builds:
		require.NotNil(t, res)
		assert.Positive(t, res.Graph.EdgeCount())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}
	cancel()
	require.NoError(t, <-done)
	assert.True(t, fake.closed)
}
