package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"debtgraph/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("fn x() {}\n"), 0o644))
	}
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"src/main.rs",
		"src/net/client.rs",
		"src/a.rs",
		"src/README.md",
		"target/debug/build.rs",
		"src/bindings.gen.rs",
	)

	files, err := Discover(root, Options{
		Extensions:   []string{".rs"},
		ExcludeDirs:  []string{"target"},
		ExcludeFiles: []string{"*.gen.rs"},
	})
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "src", "a.rs"),
		filepath.Join(root, "src", "main.rs"),
		filepath.Join(root, "src", "net", "client.rs"),
	}
	assert.Equal(t, want, files)
}

func TestDiscoverDefaultsToRustSources(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "lib.rs", "lib.go")

	files, err := Discover(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "lib.rs")}, files)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestDiscoverRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "lib.rs")

	_, err := Discover(filepath.Join(root, "lib.rs"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestDiscoverRejectsBadGlob(t *testing.T) {
	_, err := Discover(t.TempDir(), Options{ExcludeDirs: []string{"[oops"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
