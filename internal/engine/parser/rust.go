// # internal/engine/parser/rust.go
package parser

import (
	"fmt"
	"strings"

	"debtgraph/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CollectOptions toggles the optional call-site sources of the Rust collector.
type CollectOptions struct {
	// MacroArgs recovers calls written inside expression macros such as
	// println!, format! and assert_eq!.
	MacroArgs bool
	// FunctionReferences records functions passed as values (iter.map(parse)).
	FunctionReferences bool
}

// rustCollector performs the registration pass over one Rust file: it keeps
// a scope stack in step with the tree, turns every fn with a body into a
// Definition and every call expression inside a body into an UnresolvedCall.
type rustCollector struct {
	file  *SourceFile
	opts  CollectOptions
	facts *registry.FileFacts

	scopes   *registry.ScopeStack
	imports  *registry.Imports
	fns      []*fnFrame
	owners   []*ownerFrame
	seen     map[string]int
	closures int
	testMods int
}

type fnFrame struct {
	id       registry.FunctionID
	locals   map[string]*registry.TypeRef
	generics map[string]string
}

// ownerFrame is an open impl or trait block.
type ownerFrame struct {
	kind     registry.ScopeKind
	name     string
	path     string
	trait    string
	generics map[string]string
	impl     *registry.TraitImpl
	decl     *registry.TraitDecl
}

// Collect runs the registration pass over one parsed file. It only reads the
// tree, so files can be collected in parallel.
func Collect(file *SourceFile, opts CollectOptions) *registry.FileFacts {
	c := &rustCollector{
		file:    file,
		opts:    opts,
		facts:   &registry.FileFacts{File: file.Rel, Module: file.Module},
		scopes:  registry.NewScopeStack(file.Module),
		imports: registry.NewImports(nil),
		seen:    make(map[string]int),
	}

	engine := NewExtractorEngine(map[string]NodeHandler{
		"mod_item":                c.handleMod,
		"impl_item":               c.handleImpl,
		"trait_item":              c.handleTrait,
		"function_item":           c.handleFunction,
		"function_signature_item": c.handleSignature,
		"closure_expression":      c.handleClosure,
		"use_declaration":         c.handleUse,
		"let_declaration":         c.handleLet,
		"call_expression":         c.handleCall,
		"macro_invocation":        c.handleMacro,
	})
	ctx := engine.NewContext(file.Rel, file.Source)
	engine.Walk(ctx, file.Root())
	return c.facts
}

func (c *rustCollector) handleMod(ctx *ExtractionContext, node *sitter.Node) bool {
	body := node.ChildByFieldName("body")
	if body == nil {
		// `mod name;` points at another file, which is registered on its own.
		return true
	}
	name := ctx.Field(node, "name")
	isTest := hasAttribute(ctx, node, isCfgTestAttribute)

	c.scopes.Push(registry.ScopeModule, name)
	outer := c.imports
	c.imports = registry.NewImports(outer)
	if isTest {
		c.testMods++
	}

	ctx.WalkChildren(body)

	if isTest {
		c.testMods--
	}
	c.imports = outer
	c.scopes.Pop()
	return true
}

func (c *rustCollector) handleImpl(ctx *ExtractionContext, node *sitter.Node) bool {
	typeName := simpleTypeName(ctx.Field(node, "type"))
	if typeName == "" {
		return false
	}
	traitName := simpleTypeName(ctx.Field(node, "trait"))

	generics := map[string]string{}
	collectGenerics(ctx, node.ChildByFieldName("type_parameters"), generics)
	collectWhereBounds(ctx, node, generics)

	c.scopes.Push(registry.ScopeType, typeName)
	owner := &ownerFrame{
		kind:     registry.ScopeType,
		name:     typeName,
		path:     c.scopes.Path(),
		trait:    traitName,
		generics: generics,
	}
	if traitName != "" {
		owner.impl = &registry.TraitImpl{
			File:    c.file.Rel,
			Trait:   traitName,
			Type:    typeName,
			Methods: make(map[string]registry.FunctionID),
		}
	}
	c.owners = append(c.owners, owner)

	ctx.WalkChildren(node.ChildByFieldName("body"))

	c.owners = c.owners[:len(c.owners)-1]
	c.scopes.Pop()
	if owner.impl != nil {
		c.facts.Impls = append(c.facts.Impls, *owner.impl)
	}
	return true
}

func (c *rustCollector) handleTrait(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Field(node, "name")
	if name == "" {
		return false
	}
	generics := map[string]string{}
	collectGenerics(ctx, node.ChildByFieldName("type_parameters"), generics)

	c.scopes.Push(registry.ScopeTrait, name)
	owner := &ownerFrame{
		kind:     registry.ScopeTrait,
		name:     name,
		path:     c.scopes.Path(),
		trait:    name,
		generics: generics,
		decl: &registry.TraitDecl{
			File:     c.file.Rel,
			Name:     name,
			Path:     c.scopes.Path(),
			Defaults: make(map[string]registry.FunctionID),
		},
	}
	c.owners = append(c.owners, owner)

	ctx.WalkChildren(node.ChildByFieldName("body"))

	c.owners = c.owners[:len(c.owners)-1]
	c.scopes.Pop()
	c.facts.Traits = append(c.facts.Traits, *owner.decl)
	return true
}

// handleSignature records trait methods declared without a body. They are not
// definitions, but dispatch needs to know the trait names them.
func (c *rustCollector) handleSignature(ctx *ExtractionContext, node *sitter.Node) bool {
	if owner := c.directOwner(); owner != nil && owner.decl != nil {
		owner.decl.Methods = appendUnique(owner.decl.Methods, ctx.Field(node, "name"))
	}
	return true
}

func (c *rustCollector) handleFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Field(node, "name")
	body := node.ChildByFieldName("body")
	if name == "" || body == nil {
		return false
	}

	owner := c.directOwner()
	params := node.ChildByFieldName("parameters")
	kind := c.definitionKind(owner, params)

	segments := c.scopes.Segments()
	id := registry.NewFunctionID(c.file.Rel, segments, name)
	key := id.Path
	id.Disambiguator = c.seen[key]
	c.seen[key]++

	def := registry.Definition{
		ID:           id,
		Name:         name,
		Kind:         kind,
		Location:     ctx.Location(node),
		Visibility:   visibilityOf(ctx, node),
		GenericArity: genericArity(node.ChildByFieldName("type_parameters")),
		LOC:          int(node.EndPosition().Row-node.StartPosition().Row) + 1,
	}
	extern := false
	if mods := ctx.ChildOfKind(node, "function_modifiers"); mods != nil {
		text := ctx.Text(mods)
		extern = ctx.ChildOfKind(mods, "extern_modifier") != nil
		def.Async = strings.Contains(text, "async")
		def.Const = strings.Contains(text, "const")
		def.Unsafe = strings.Contains(text, "unsafe")
	}
	def.BranchCount, def.NestingDepth = complexityOf(body)
	if owner != nil {
		def.ImplType = owner.name
		def.Trait = owner.trait
		if owner.trait != "" {
			def.Visibility = registry.VisibilityPublic
		}
		if owner.impl != nil {
			if _, exists := owner.impl.Methods[name]; !exists {
				owner.impl.Methods[name] = id
			}
		}
		if owner.decl != nil {
			owner.decl.Methods = appendUnique(owner.decl.Methods, name)
			if _, exists := owner.decl.Defaults[name]; !exists {
				owner.decl.Defaults[name] = id
			}
		}
	}
	def.IsTest = c.isTest(ctx, node, name)
	def.IsEntryPoint = isEntryPoint(ctx, node, name, kind, extern)
	c.facts.Definitions = append(c.facts.Definitions, def)

	generics := map[string]string{}
	collectGenerics(ctx, node.ChildByFieldName("type_parameters"), generics)
	collectWhereBounds(ctx, node, generics)
	frame := &fnFrame{id: id, locals: make(map[string]*registry.TypeRef), generics: generics}
	c.bindParameters(ctx, params, frame)

	c.scopes.Push(registry.ScopeFunction, name)
	c.fns = append(c.fns, frame)
	outer := c.imports
	c.imports = registry.NewImports(outer)

	ctx.WalkChildren(body)

	c.imports = outer
	c.fns = c.fns[:len(c.fns)-1]
	c.scopes.Pop()
	return true
}

func (c *rustCollector) handleClosure(ctx *ExtractionContext, node *sitter.Node) bool {
	name := fmt.Sprintf("{closure#%d}", c.closures)
	c.closures++

	if fn := c.activeFn(); fn != nil {
		for _, ident := range patternIdentifiers(ctx, node.ChildByFieldName("parameters")) {
			fn.locals[ident] = nil
		}
	}

	c.scopes.Push(registry.ScopeClosure, name)
	ctx.Walk(node.ChildByFieldName("body"))
	c.scopes.Pop()
	return true
}

func (c *rustCollector) handleLet(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := c.activeFn()
	if fn == nil {
		return false
	}
	names := patternIdentifiers(ctx, node.ChildByFieldName("pattern"))
	var ref *registry.TypeRef
	if typ := node.ChildByFieldName("type"); typ != nil {
		ref = c.typeRefFromType(ctx, typ, fn)
	} else {
		ref = c.typeOfValue(ctx, node.ChildByFieldName("value"))
	}
	for _, name := range names {
		if len(names) == 1 {
			fn.locals[name] = ref
		} else {
			fn.locals[name] = nil
		}
	}
	// Calls inside the initializer are still collected by the default walk.
	return false
}

func (c *rustCollector) definitionKind(owner *ownerFrame, params *sitter.Node) registry.Kind {
	if top, ok := c.scopes.Top(); ok && (top.Kind == registry.ScopeFunction || top.Kind == registry.ScopeClosure) {
		return registry.KindNested
	}
	if owner == nil {
		return registry.KindFunction
	}
	if owner.kind == registry.ScopeTrait {
		return registry.KindTraitDefault
	}
	if hasSelfParameter(params) {
		return registry.KindMethod
	}
	return registry.KindAssociated
}

// directOwner returns the impl/trait frame when it is the innermost scope.
func (c *rustCollector) directOwner() *ownerFrame {
	top, ok := c.scopes.Top()
	if !ok || len(c.owners) == 0 {
		return nil
	}
	if top.Kind != registry.ScopeType && top.Kind != registry.ScopeTrait {
		return nil
	}
	return c.owners[len(c.owners)-1]
}

// enclosingOwner returns the innermost impl/trait frame, however deeply nested.
func (c *rustCollector) enclosingOwner() *ownerFrame {
	if len(c.owners) == 0 {
		return nil
	}
	return c.owners[len(c.owners)-1]
}

func (c *rustCollector) activeFn() *fnFrame {
	if len(c.fns) == 0 {
		return nil
	}
	return c.fns[len(c.fns)-1]
}

func (c *rustCollector) isTest(ctx *ExtractionContext, node *sitter.Node, name string) bool {
	if c.testMods > 0 || strings.HasPrefix(name, "test_") {
		return true
	}
	if hasAttribute(ctx, node, isTestAttribute) {
		return true
	}
	rel := "/" + c.file.Rel
	return strings.Contains(rel, "/tests/") || strings.Contains(rel, "/benches/")
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
