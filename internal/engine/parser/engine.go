package parser

import (
	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true if the handler has walked the children itself and the walker
// should not descend.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state/helpers used by all extractors.
type ExtractionContext struct {
	Source []byte
	File   string
	engine *ExtractorEngine
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) NewContext(file string, source []byte) *ExtractionContext {
	return &ExtractionContext{Source: source, File: file, engine: e}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok {
		if handler(ctx, node) {
			return
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

// WalkChildren dispatches every child of node, leaving node itself alone.
func (c *ExtractionContext) WalkChildren(node *sitter.Node) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		c.engine.Walk(c, node.Child(i))
	}
}

func (c *ExtractionContext) Walk(node *sitter.Node) {
	c.engine.Walk(c, node)
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Field(node *sitter.Node, name string) string {
	if node == nil {
		return ""
	}
	return c.Text(node.ChildByFieldName(name))
}

func (c *ExtractionContext) Location(node *sitter.Node) registry.Location {
	return registry.Location{
		File:    c.File,
		Line:    int(node.StartPosition().Row) + 1,
		Column:  int(node.StartPosition().Column) + 1,
		EndLine: int(node.EndPosition().Row) + 1,
	}
}

func (c *ExtractionContext) ChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}
