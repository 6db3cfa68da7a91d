package parser

import (
	"path/filepath"
	"strings"
	"sync"

	"debtgraph/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

const LanguageRust = "rust"

var (
	rustOnce sync.Once
	rustLang *sitter.Language
)

// RustLanguage returns the process-wide Rust grammar.
func RustLanguage() *sitter.Language {
	rustOnce.Do(func() {
		rustLang = sitter.NewLanguage(tree_sitter_rust.Language())
	})
	return rustLang
}

// LanguageForPath maps a file extension to a supported grammar name.
func LanguageForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".rs" {
		return LanguageRust, nil
	}
	return "", errors.AddContext(errors.Newf(errors.CodeNotSupported, "no grammar for extension %q", ext), errors.CtxPath, path)
}
