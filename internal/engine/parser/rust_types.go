package parser

import (
	"strings"
	"unicode"

	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// markerTraits never decide which method body runs, so they are skipped when
// picking the bound that describes a generic parameter.
var markerTraits = map[string]bool{
	"Send": true, "Sync": true, "Sized": true, "Copy": true, "Clone": true,
	"Debug": true, "Default": true, "Unpin": true, "Eq": true, "PartialEq": true,
	"Ord": true, "PartialOrd": true, "Hash": true,
}

// wrapperTypes are smart pointers whose method calls reach the wrapped type.
var wrapperTypes = map[string]bool{
	"Box": true, "Rc": true, "Arc": true, "RefCell": true, "Cell": true,
	"Mutex": true, "RwLock": true, "Cow": true, "Pin": true,
}

// simpleTypeName reduces a type expression to its bare name:
// `&mut crate::shapes::Circle<T>` becomes `Circle`.
func simpleTypeName(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, "&*")
	text = strings.TrimPrefix(text, "mut ")
	text = strings.TrimPrefix(text, "dyn ")
	text = strings.TrimPrefix(text, "impl ")
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "<"); idx >= 0 {
		text = text[:idx]
	}
	if idx := strings.LastIndex(text, "::"); idx >= 0 {
		text = text[idx+2:]
	}
	return strings.TrimSpace(text)
}

func isTypeLike(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func genericArity(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < params.NamedChildCount(); i++ {
		switch params.NamedChild(i).Kind() {
		case "lifetime", "lifetime_parameter", "line_comment", "block_comment", "attribute_item":
		default:
			count++
		}
	}
	return count
}

// collectGenerics records each type parameter with its first non-marker trait
// bound (empty when unbounded).
func collectGenerics(ctx *ExtractionContext, params *sitter.Node, into map[string]string) {
	if params == nil {
		return
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		child := params.NamedChild(i)
		switch child.Kind() {
		case "type_identifier":
			into[ctx.Text(child)] = ""
		case "constrained_type_parameter":
			into[ctx.Field(child, "left")] = firstBound(ctx, child.ChildByFieldName("bounds"))
		case "type_parameter", "optional_type_parameter":
			name := ctx.Field(child, "name")
			if name == "" {
				name = ctx.Text(ctx.ChildOfKind(child, "type_identifier"))
			}
			if name != "" {
				into[name] = firstBound(ctx, child.ChildByFieldName("bounds"))
			}
		}
	}
}

func collectWhereBounds(ctx *ExtractionContext, node *sitter.Node, into map[string]string) {
	where := ctx.ChildOfKind(node, "where_clause")
	if where == nil {
		return
	}
	for i := uint(0); i < where.NamedChildCount(); i++ {
		pred := where.NamedChild(i)
		if pred.Kind() != "where_predicate" {
			continue
		}
		left := ctx.Field(pred, "left")
		if bound := firstBound(ctx, pred.ChildByFieldName("bounds")); bound != "" {
			if existing := into[left]; existing == "" {
				into[left] = bound
			}
		}
	}
}

func firstBound(ctx *ExtractionContext, bounds *sitter.Node) string {
	if bounds == nil {
		return ""
	}
	for i := uint(0); i < bounds.NamedChildCount(); i++ {
		child := bounds.NamedChild(i)
		switch child.Kind() {
		case "lifetime", "removed_trait_bound":
			continue
		}
		name := simpleTypeName(ctx.Text(child))
		if name == "" || markerTraits[name] {
			continue
		}
		return name
	}
	return ""
}

func hasSelfParameter(params *sitter.Node) bool {
	if params == nil {
		return false
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		if params.NamedChild(i).Kind() == "self_parameter" {
			return true
		}
	}
	return false
}

func (c *rustCollector) bindParameters(ctx *ExtractionContext, params *sitter.Node, frame *fnFrame) {
	if params == nil {
		return
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		param := params.NamedChild(i)
		if param.Kind() != "parameter" {
			continue
		}
		names := patternIdentifiers(ctx, param.ChildByFieldName("pattern"))
		ref := c.typeRefFromType(ctx, param.ChildByFieldName("type"), frame)
		for _, name := range names {
			if len(names) == 1 {
				frame.locals[name] = ref
			} else {
				frame.locals[name] = nil
			}
		}
	}
}

// typeRefFromType turns a written type into receiver information. Generic
// parameters and dyn/impl types yield a trait-only TypeRef.
func (c *rustCollector) typeRefFromType(ctx *ExtractionContext, typ *sitter.Node, frame *fnFrame) *registry.TypeRef {
	if typ == nil {
		return nil
	}
	switch typ.Kind() {
	case "reference_type", "pointer_type":
		return c.typeRefFromType(ctx, typ.ChildByFieldName("type"), frame)
	case "dynamic_type", "abstract_type":
		trait := ctx.Field(typ, "trait")
		if trait == "" {
			trait = ctx.Text(typ)
		}
		if name := simpleTypeName(trait); name != "" {
			return &registry.TypeRef{Trait: name}
		}
		return nil
	case "generic_type":
		base := simpleTypeName(ctx.Field(typ, "type"))
		if wrapperTypes[base] {
			if args := typ.ChildByFieldName("type_arguments"); args != nil && args.NamedChildCount() > 0 {
				return c.typeRefFromType(ctx, args.NamedChild(0), frame)
			}
		}
		if base == "" {
			return nil
		}
		return &registry.TypeRef{Name: ctx.Field(typ, "type")}
	case "type_identifier":
		name := ctx.Text(typ)
		if name == "Self" {
			return c.selfType()
		}
		if bound, ok := c.lookupGeneric(name, frame); ok {
			if bound == "" {
				return nil
			}
			return &registry.TypeRef{Trait: bound}
		}
		return &registry.TypeRef{Name: name}
	case "scoped_type_identifier":
		return &registry.TypeRef{Name: ctx.Text(typ)}
	}
	return nil
}

func (c *rustCollector) lookupGeneric(name string, frame *fnFrame) (string, bool) {
	if frame != nil {
		if bound, ok := frame.generics[name]; ok {
			return bound, true
		}
	}
	for i := len(c.fns) - 1; i >= 0; i-- {
		if bound, ok := c.fns[i].generics[name]; ok {
			return bound, true
		}
	}
	for i := len(c.owners) - 1; i >= 0; i-- {
		if bound, ok := c.owners[i].generics[name]; ok {
			return bound, true
		}
	}
	return "", false
}

// selfType describes `self`/`Self` inside the innermost impl or trait block.
func (c *rustCollector) selfType() *registry.TypeRef {
	owner := c.enclosingOwner()
	if owner == nil {
		return nil
	}
	if owner.kind == registry.ScopeTrait {
		return &registry.TypeRef{Trait: owner.name}
	}
	return &registry.TypeRef{Name: owner.path, Qualified: true}
}

// typeOfValue infers the type of an initializer from constructor shapes:
// `Foo::new(..)`, `Foo { .. }`, `Self::build(..)` and references to them.
func (c *rustCollector) typeOfValue(ctx *ExtractionContext, value *sitter.Node) *registry.TypeRef {
	if value == nil {
		return nil
	}
	switch value.Kind() {
	case "reference_expression", "parenthesized_expression", "try_expression":
		if inner := value.ChildByFieldName("value"); inner != nil {
			return c.typeOfValue(ctx, inner)
		}
		if value.NamedChildCount() > 0 {
			return c.typeOfValue(ctx, value.NamedChild(0))
		}
	case "struct_expression":
		name := ctx.Field(value, "name")
		if name == "Self" {
			return c.selfType()
		}
		if name = registry.StripGenerics(name); name != "" {
			return &registry.TypeRef{Name: name}
		}
	case "call_expression":
		fn := value.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		if fn.Kind() == "generic_function" {
			fn = fn.ChildByFieldName("function")
		}
		if fn == nil || fn.Kind() != "scoped_identifier" {
			return nil
		}
		path := ctx.Field(fn, "path")
		if path == "Self" {
			return c.selfType()
		}
		if isTypeLike(simpleTypeName(path)) {
			return &registry.TypeRef{Name: registry.StripGenerics(path)}
		}
	case "identifier":
		return c.localType(ctx.Text(value))
	case "self":
		return c.selfType()
	}
	return nil
}

// receiverType describes the receiver of a method call expression.
func (c *rustCollector) receiverType(ctx *ExtractionContext, value *sitter.Node) *registry.TypeRef {
	if value == nil {
		return nil
	}
	var ref *registry.TypeRef
	switch value.Kind() {
	case "self":
		ref = c.selfType()
	case "identifier":
		ref = c.localType(ctx.Text(value))
	default:
		ref = c.typeOfValue(ctx, value)
	}
	out := &registry.TypeRef{Expr: ctx.Text(value)}
	if ref != nil {
		out.Name, out.Qualified, out.Trait = ref.Name, ref.Qualified, ref.Trait
	}
	return out
}

func (c *rustCollector) localType(name string) *registry.TypeRef {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if ref, ok := c.fns[i].locals[name]; ok {
			return ref
		}
	}
	return nil
}

func (c *rustCollector) isLocal(name string) bool {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if _, ok := c.fns[i].locals[name]; ok {
			return true
		}
	}
	return false
}

// patternIdentifiers returns the variable names bound by a pattern.
func patternIdentifiers(ctx *ExtractionContext, pattern *sitter.Node) []string {
	if pattern == nil {
		return nil
	}
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "identifier":
			names = append(names, ctx.Text(n))
			return
		case "type_identifier", "scoped_identifier", "scoped_type_identifier", "field_identifier":
			// Struct/enum names inside patterns are not bindings.
			return
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(pattern)
	return names
}
