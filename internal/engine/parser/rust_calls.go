package parser

import (
	"strings"

	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// expressionMacros take ordinary expressions as arguments, so calls written
// inside them are real calls.
var expressionMacros = map[string]bool{
	"println": true, "print": true, "eprintln": true, "eprint": true,
	"format": true, "write": true, "writeln": true, "panic": true,
	"assert": true, "assert_eq": true, "assert_ne": true,
	"debug_assert": true, "debug_assert_eq": true, "debug_assert_ne": true,
	"vec": true, "dbg": true, "format_args": true,
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

func (c *rustCollector) handleCall(ctx *ExtractionContext, node *sitter.Node) bool {
	c.emitFromCallee(ctx, node.ChildByFieldName("function"), node)
	if c.opts.FunctionReferences {
		c.emitReferences(ctx, node.ChildByFieldName("arguments"))
	}
	// Arguments and receiver chains hold further calls.
	return false
}

func (c *rustCollector) emitFromCallee(ctx *ExtractionContext, fn, site *sitter.Node) {
	if fn == nil {
		return
	}
	switch fn.Kind() {
	case "identifier":
		name := ctx.Text(fn)
		if isTypeLike(name) || c.isLocal(name) {
			// Tuple-struct/variant constructors and closure variables.
			return
		}
		c.emit(ctx, site, registry.CallPath, name, nil)
	case "scoped_identifier":
		c.emitPath(ctx, site, ctx.Text(fn), registry.CallPath)
	case "generic_function":
		inner := fn.ChildByFieldName("function")
		if inner != nil && inner.Kind() == "field_expression" {
			c.emitMethod(ctx, site, inner, ctx.Text(fn.ChildByFieldName("type_arguments")))
			return
		}
		c.emitPath(ctx, site, ctx.Text(fn), registry.CallPath)
	case "field_expression":
		c.emitMethod(ctx, site, fn, "")
	default:
		// Closure fields, indexing, parenthesized callees: not statically nameable.
		c.facts.Indirect++
	}
}

func (c *rustCollector) emitMethod(ctx *ExtractionContext, site, field *sitter.Node, typeArgs string) {
	method := ctx.Field(field, "field")
	if method == "" {
		c.facts.Indirect++
		return
	}
	recv := c.receiverType(ctx, field.ChildByFieldName("value"))
	c.emit(ctx, site, registry.CallMethod, method+typeArgsSuffix(typeArgs), recv)
}

func typeArgsSuffix(args string) string {
	if args == "" {
		return ""
	}
	return "::" + args
}

// emitPath records a path call, rewriting `Self::` and generic-parameter
// prefixes using the enclosing impl, trait and generics.
func (c *rustCollector) emitPath(ctx *ExtractionContext, site *sitter.Node, text string, kind registry.CallKind) {
	text = strings.TrimSpace(text)
	if isTypeLike(lastSegment(registry.StripGenerics(text))) {
		// `Shape::Circle(r)` builds an enum variant.
		return
	}

	head, rest, qualified := strings.Cut(text, registry.PathSep)
	if qualified {
		baseHead := registry.StripGenerics(head)
		if baseHead == "Self" {
			self := c.selfType()
			switch {
			case self == nil:
			case self.Trait != "":
				c.emit(ctx, site, kind, text, &registry.TypeRef{Expr: "Self", Trait: self.Trait})
				return
			default:
				c.emit(ctx, site, kind, self.Name+registry.PathSep+rest, nil)
				return
			}
		}
		if bound, ok := c.lookupGeneric(baseHead, nil); ok {
			c.emit(ctx, site, kind, text, &registry.TypeRef{Expr: baseHead, Trait: bound})
			return
		}
	}
	c.emit(ctx, site, kind, text, nil)
}

// emitReferences records bare function names passed as arguments.
func (c *rustCollector) emitReferences(ctx *ExtractionContext, args *sitter.Node) {
	if args == nil {
		return
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		switch arg.Kind() {
		case "identifier":
			name := ctx.Text(arg)
			if isTypeLike(name) || c.isLocal(name) || isConstantName(name) {
				continue
			}
			c.emit(ctx, arg, registry.CallReference, name, nil)
		case "scoped_identifier":
			text := ctx.Text(arg)
			if isTypeLike(lastSegment(text)) || isConstantName(lastSegment(text)) {
				continue
			}
			c.emitPath(ctx, arg, text, registry.CallReference)
		}
	}
}

func isConstantName(name string) bool {
	return name != "" && strings.ToUpper(name) == name
}

func (c *rustCollector) handleMacro(ctx *ExtractionContext, node *sitter.Node) bool {
	if !c.opts.MacroArgs {
		return true
	}
	if !expressionMacros[lastSegment(ctx.Field(node, "macro"))] {
		return true
	}
	c.scanTokenTree(ctx, ctx.ChildOfKind(node, "token_tree"))
	return true
}

// scanTokenTree finds `path(` and `recv.method(` shapes in unparsed macro
// input. Nested token trees are scanned recursively.
func (c *rustCollector) scanTokenTree(ctx *ExtractionContext, tree *sitter.Node) {
	if tree == nil {
		return
	}
	kids := make([]*sitter.Node, 0, tree.ChildCount())
	for i := uint(0); i < tree.ChildCount(); i++ {
		kids = append(kids, tree.Child(i))
	}

	for i, kid := range kids {
		if kid.Kind() != "token_tree" {
			continue
		}
		c.scanTokenTree(ctx, kid)
		if i == 0 || !strings.HasPrefix(ctx.Text(kid), "(") || kids[i-1].Kind() != "identifier" {
			continue
		}

		j := i - 1
		segments := []string{ctx.Text(kids[j])}
		for j >= 2 && kids[j-1].Kind() == "::" && isPathToken(kids[j-2].Kind()) {
			segments = append([]string{ctx.Text(kids[j-2])}, segments...)
			j -= 2
		}

		if j >= 2 && kids[j-1].Kind() == "." && len(segments) == 1 {
			recvNode := kids[j-2]
			var recv *registry.TypeRef
			switch recvNode.Kind() {
			case "self":
				recv = c.selfType()
			case "identifier":
				recv = c.localType(ctx.Text(recvNode))
			default:
				continue
			}
			out := &registry.TypeRef{Expr: ctx.Text(recvNode)}
			if recv != nil {
				out.Name, out.Qualified, out.Trait = recv.Name, recv.Qualified, recv.Trait
			}
			c.emit(ctx, kids[i-1], registry.CallMethod, segments[0], out)
			continue
		}
		if j >= 1 && (kids[j-1].Kind() == "." || kids[j-1].Kind() == "!") {
			continue
		}

		if len(segments) == 1 {
			name := segments[0]
			if isTypeLike(name) || c.isLocal(name) {
				continue
			}
			c.emit(ctx, kids[i-1], registry.CallMacroArg, name, nil)
			continue
		}
		c.emitPath(ctx, kids[i-1], strings.Join(segments, registry.PathSep), registry.CallMacroArg)
	}
}

func isPathToken(kind string) bool {
	switch kind {
	case "identifier", "self", "super", "crate":
		return true
	}
	return false
}

// emit records a call site for the active function. Calls outside any body
// (const and static initializers) have no caller and are only counted.
func (c *rustCollector) emit(ctx *ExtractionContext, site *sitter.Node, kind registry.CallKind, callee string, recv *registry.TypeRef) {
	fn := c.activeFn()
	if fn == nil {
		c.facts.Orphans++
		return
	}
	c.facts.Calls = append(c.facts.Calls, registry.UnresolvedCall{
		Caller:   fn.id,
		Callee:   callee,
		Kind:     kind,
		Location: ctx.Location(site),
		Scope:    c.scopes.Path(),
		Module:   c.scopes.ModulePath(),
		Imports:  c.imports,
		Receiver: recv,
	})
}
