package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SourceFile is one parsed file. The tree is shared read-only by every later
// phase and released once with Close.
type SourceFile struct {
	Path     string
	Rel      string
	Module   string
	Language string
	Source   []byte
	Hash     uint64
	Tree     *sitter.Tree
	// Partial is set when the tree contains ERROR or MISSING nodes.
	Partial bool
}

func (f *SourceFile) Root() *sitter.Node {
	if f == nil || f.Tree == nil {
		return nil
	}
	return f.Tree.RootNode()
}

func (f *SourceFile) Close() {
	if f != nil && f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

type Failure struct {
	Path string
	Err  error
}

type ParseResult struct {
	Files    []*SourceFile
	Failures []Failure
}

// Close releases every tree in the result.
func (r *ParseResult) Close() {
	if r == nil {
		return
	}
	for _, f := range r.Files {
		f.Close()
	}
}
