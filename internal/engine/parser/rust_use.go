package parser

import (
	"strings"

	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (c *rustCollector) handleUse(ctx *ExtractionContext, node *sitter.Node) bool {
	c.bindUse(ctx, node.ChildByFieldName("argument"), "")
	return true
}

// bindUse walks a use tree and binds every imported name to its normalized
// path in the current import block.
func (c *rustCollector) bindUse(ctx *ExtractionContext, node *sitter.Node, prefix string) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "scoped_identifier", "crate", "self", "super", "metavariable":
		path := joinUsePath(prefix, ctx.Text(node))
		name := lastSegment(path)
		if name == "self" {
			// `use a::b::{self}` binds `b`.
			path = strings.TrimSuffix(path, "::self")
			name = lastSegment(path)
		}
		c.imports.Bind(name, c.normalizeUsePath(path))
	case "use_as_clause":
		path := joinUsePath(prefix, ctx.Field(node, "path"))
		alias := ctx.Field(node, "alias")
		if alias == "_" || alias == "" {
			return
		}
		c.imports.Bind(alias, c.normalizeUsePath(path))
	case "scoped_use_list":
		next := joinUsePath(prefix, ctx.Field(node, "path"))
		c.bindUse(ctx, node.ChildByFieldName("list"), next)
	case "use_list":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			c.bindUse(ctx, node.NamedChild(i), prefix)
		}
	case "use_wildcard":
		text := strings.TrimSuffix(strings.TrimSpace(ctx.Text(node)), "*")
		text = strings.TrimSuffix(text, "::")
		c.imports.AddGlob(c.normalizeUsePath(joinUsePath(prefix, text)))
	}
}

// normalizeUsePath rewrites crate-, self- and super-relative paths to paths
// from the crate root, matching how FunctionID paths are built.
func (c *rustCollector) normalizeUsePath(path string) string {
	return NormalizePath(path, c.scopes.ModulePath())
}

// NormalizePath resolves the leading `crate::`, `self::`, `super::` and `::`
// segments of path relative to module. Other paths are returned unchanged.
func NormalizePath(path, module string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "crate":
		return ""
	case strings.HasPrefix(path, "crate::"):
		return strings.TrimPrefix(path, "crate::")
	case strings.HasPrefix(path, "::"):
		return strings.TrimPrefix(path, "::")
	case path == "self":
		return module
	case strings.HasPrefix(path, "self::"):
		return registry.JoinPath(module, strings.TrimPrefix(path, "self::"))
	case path == "super" || strings.HasPrefix(path, "super::"):
		base := module
		rest := path
		for rest == "super" || strings.HasPrefix(rest, "super::") {
			base = parentPath(base)
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, "super"), "::")
		}
		return registry.JoinPath(base, rest)
	}
	return path
}

func parentPath(path string) string {
	if idx := strings.LastIndex(path, registry.PathSep); idx >= 0 {
		return path[:idx]
	}
	return ""
}

func joinUsePath(prefix, rest string) string {
	rest = strings.TrimSpace(rest)
	switch {
	case prefix == "":
		return rest
	case rest == "":
		return prefix
	}
	return prefix + registry.PathSep + rest
}
