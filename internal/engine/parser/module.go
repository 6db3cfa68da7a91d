package parser

import (
	"path"
	"path/filepath"
	"strings"
)

// ModulePath maps a root-relative file path to the Rust module path it
// defines. src/lib.rs and src/main.rs are the crate root, src/net/mod.rs is
// `net`, src/net/http.rs is `net::http`. Files outside src/ use their
// directory path (tests/api.rs is `tests::api`).
func ModulePath(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), path.Ext(rel))
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" {
		return ""
	}
	parts := strings.Split(rel, "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] == "src" {
			parts = parts[i+1:]
			break
		}
	}

	switch parts[len(parts)-1] {
	case "lib", "main", "mod":
		parts = parts[:len(parts)-1]
	}

	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "-", "_")
	}
	return strings.Join(parts, "::")
}

// relPath returns p relative to root with forward slashes, or p itself when
// it is not under root.
func relPath(root, p string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(p)
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
