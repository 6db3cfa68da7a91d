package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"debtgraph/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/a.rs":   "use b::bar;\nfn foo() { bar(); }\nfn ping() { pong(); }\nfn pong() { ping(); }\n",
		"src/b.rs":   "pub fn bar() { baz(); }\nfn baz() {}\n",
		"src/lib.rs": "fn unused() {}\nfn run() {}\nfn run2() { run(); }\n",
	}
	for name, src := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestBuildPrintsSummary(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "build", "--root", root, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "debtgraph")
	assert.Contains(t, out, "functions")
	assert.Contains(t, out, "dispatch policy")
}

func TestCalleesAndCallers(t *testing.T) {
	root := writeProject(t)

	out, err := run(t, "callees", "a::foo", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "src/b.rs:b::bar")

	out, err = run(t, "callees", "a::foo", "--depth", "0", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "transitive callees")
	assert.Contains(t, out, "src/b.rs:b::baz")

	out, err = run(t, "callers", "src/b.rs:b::bar", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "src/a.rs:a::foo")
}

func TestUnknownFunctionIsNotFound(t *testing.T) {
	root := writeProject(t)
	_, err := run(t, "callers", "nothing_here", "--root", root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err.Error())
}

func TestTopoReportsCycle(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "topo", "--root", root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict), err.Error())
	assert.Contains(t, out, "a::ping")
}

func TestSCCCyclesOnly(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "scc", "--cycles", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "cycles (1)")
	assert.Contains(t, out, "a::pong")
}

func TestDeadListsUncalledPrivateFunctions(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "dead", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "src/lib.rs:unused")
	assert.NotContains(t, out, "src/lib.rs:run\n")
}

func TestExportFormats(t *testing.T) {
	root := writeProject(t)

	out, err := run(t, "export", "--format", "dot", "--root", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph callgraph"), out)

	path := filepath.Join(t.TempDir(), "graph.json")
	_, err = run(t, "export", "-f", "json", "-o", path, "--root", root)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"edges"`)

	_, err = run(t, "export", "--format", "xml", "--root", root)
	assert.Error(t, err)
}

func TestValidateMinScore(t *testing.T) {
	root := writeProject(t)
	out, err := run(t, "validate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "validation")

	_, err = run(t, "validate", "--min-score", "101", "--root", root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestBadPolicyFailsBeforeBuilding(t *testing.T) {
	root := writeProject(t)
	_, err := run(t, "build", "--policy", "sideways", "--root", root)
	require.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "build", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSnapshotHistoryAndDiff(t *testing.T) {
	root := writeProject(t)
	db := filepath.Join(t.TempDir(), "snapshots.db")

	_, err := run(t, "build", "--root", root, "--snapshot", db)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.rs"), []byte("pub fn bar() {}\nfn baz() {}\n"), 0o644))
	_, err = run(t, "build", "--root", root, "--snapshot", db)
	require.NoError(t, err)

	out, err := run(t, "history", "--root", root, "--snapshot", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2 scans")

	_, err = run(t, "diff", "no-such-run", "other", "--root", root, "--snapshot", db)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSaveWithoutSnapshotPath(t *testing.T) {
	root := writeProject(t)
	_, err := run(t, "build", "--save", "--root", root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
