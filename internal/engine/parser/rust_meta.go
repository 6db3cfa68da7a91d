package parser

import (
	"strings"

	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func visibilityOf(ctx *ExtractionContext, node *sitter.Node) registry.Visibility {
	mod := ctx.ChildOfKind(node, "visibility_modifier")
	if mod == nil {
		return registry.VisibilityPrivate
	}
	text := strings.ReplaceAll(ctx.Text(mod), " ", "")
	switch {
	case text == "pub":
		return registry.VisibilityPublic
	case text == "pub(crate)":
		return registry.VisibilityCrate
	case strings.HasPrefix(text, "pub("):
		return registry.VisibilityScoped
	}
	return registry.VisibilityPrivate
}

// hasAttribute checks the outer attributes attached to node. Comments between
// the attributes and the item are skipped.
func hasAttribute(ctx *ExtractionContext, node *sitter.Node, match func(string) bool) bool {
	for sib := node.PrevNamedSibling(); sib != nil; sib = sib.PrevNamedSibling() {
		switch sib.Kind() {
		case "attribute_item":
			text := strings.TrimSpace(ctx.Text(sib))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "#["), "]")
			if match(strings.TrimSpace(text)) {
				return true
			}
		case "line_comment", "block_comment":
		default:
			return false
		}
	}
	return false
}

// attributeName strips the arguments from an attribute body, leaving its path:
// `get("/")` is "get", `unsafe(no_mangle)` is "no_mangle".
func attributeName(attr string) string {
	attr = strings.TrimSpace(attr)
	if inner, ok := strings.CutPrefix(attr, "unsafe("); ok {
		attr = strings.TrimSuffix(inner, ")")
	}
	if idx := strings.IndexAny(attr, "(= "); idx >= 0 {
		attr = attr[:idx]
	}
	return strings.TrimSpace(attr)
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, registry.PathSep); idx >= 0 {
		return path[idx+len(registry.PathSep):]
	}
	return path
}

var testAttributes = map[string]bool{
	"test":              true,
	"bench":             true,
	"async_test":        true,
	"wasm_bindgen_test": true,
	"proptest":          true,
	"quickcheck":        true,
	"rstest":            true,
	"serial_test":       true,
	"serial":            true,
}

func isTestAttribute(attr string) bool {
	name := attributeName(attr)
	if strings.HasPrefix(name, "test_case") {
		return true
	}
	return testAttributes[name] || testAttributes[lastSegment(name)]
}

func isCfgTestAttribute(attr string) bool {
	return strings.ReplaceAll(attr, " ", "") == "cfg(test)"
}

// Request handler attributes of actix-web, rocket, axum and friends.
var routeAttributes = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
	"head": true, "options": true, "route": true, "handler": true,
}

// Attributes whose item is called by the linker or the compiler.
var exportAttributes = map[string]bool{
	"no_mangle":            true,
	"export_name":          true,
	"proc_macro":           true,
	"proc_macro_derive":    true,
	"proc_macro_attribute": true,
}

// isEntryAttribute matches route handlers, exported symbols, proc macros and
// async runtime mains such as tokio::main.
func isEntryAttribute(attr string) bool {
	name := attributeName(attr)
	if exportAttributes[name] {
		return true
	}
	last := lastSegment(name)
	if last == "main" && last != name {
		return true
	}
	return routeAttributes[last]
}

// isVisitorMethod follows the visitor naming used by syn, rustc and most AST
// crates, whose traversal is driven by a framework rather than direct calls.
func isVisitorMethod(name string) bool {
	return name == "visit" || name == "walk" ||
		strings.HasPrefix(name, "visit_") || strings.HasPrefix(name, "walk_") || strings.HasPrefix(name, "traverse_")
}

// isEntryPoint flags functions that are reached from outside the analysed
// code. extern reports an explicit ABI on the signature.
func isEntryPoint(ctx *ExtractionContext, node *sitter.Node, name string, kind registry.Kind, extern bool) bool {
	switch {
	case name == "main" && kind == registry.KindFunction:
		return true
	case extern:
		return true
	case strings.HasPrefix(name, "handle_") || strings.HasPrefix(name, "run_"):
		return true
	case isVisitorMethod(name):
		return true
	}
	return hasAttribute(ctx, node, isEntryAttribute)
}

// complexityOf counts decision points and the deepest nesting of control flow
// in a function body. Nested fn items are measured on their own.
func complexityOf(body *sitter.Node) (branches, depth int) {
	var walk func(n *sitter.Node, level int)
	walk = func(n *sitter.Node, level int) {
		next := level
		switch n.Kind() {
		case "function_item":
			return
		case "if_expression", "while_expression", "loop_expression", "for_expression", "match_expression":
			next = level + 1
			if next > depth {
				depth = next
			}
			if n.Kind() != "match_expression" && n.Kind() != "loop_expression" {
				branches++
			}
		case "match_arm":
			branches++
		case "try_expression":
			branches++
		case "binary_expression":
			if op := n.ChildByFieldName("operator"); op != nil {
				if k := op.Kind(); k == "&&" || k == "||" {
					branches++
				}
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i), next)
		}
	}
	walk(body, 0)
	return branches, depth
}
