// # internal/engine/dispatch/index.go
package dispatch

import (
	"sort"

	"debtgraph/internal/engine/registry"
)

// Builder collects trait declarations and impl blocks during registration.
// Like the function registry it offers no lookups until sealed.
type Builder struct {
	impls  []registry.TraitImpl
	traits []registry.TraitDecl
	sealed bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) AddFile(facts *registry.FileFacts) {
	if b.sealed {
		panic("dispatch: AddFile called after Seal")
	}
	b.impls = append(b.impls, facts.Impls...)
	b.traits = append(b.traits, facts.Traits...)
}

// Seal indexes everything added so far. The builder must not be used afterwards.
func (b *Builder) Seal() *Index {
	if b.sealed {
		panic("dispatch: Seal called twice")
	}
	b.sealed = true

	idx := &Index{
		byTrait:   make(map[string][]registry.TraitImpl),
		byType:    make(map[string][]registry.TraitImpl),
		decls:     make(map[string][]registry.TraitDecl),
		declaring: make(map[string][]string),
	}
	sort.SliceStable(b.impls, func(i, j int) bool {
		a, c := b.impls[i], b.impls[j]
		if a.Trait != c.Trait {
			return a.Trait < c.Trait
		}
		if a.Type != c.Type {
			return a.Type < c.Type
		}
		return a.File < c.File
	})
	for _, impl := range b.impls {
		idx.byTrait[impl.Trait] = append(idx.byTrait[impl.Trait], impl)
		idx.byType[impl.Type] = append(idx.byType[impl.Type], impl)
	}

	sort.SliceStable(b.traits, func(i, j int) bool {
		if b.traits[i].Name != b.traits[j].Name {
			return b.traits[i].Name < b.traits[j].Name
		}
		return b.traits[i].File < b.traits[j].File
	})
	for _, decl := range b.traits {
		idx.decls[decl.Name] = append(idx.decls[decl.Name], decl)
		for _, m := range decl.Methods {
			if !contains(idx.declaring[m], decl.Name) {
				idx.declaring[m] = append(idx.declaring[m], decl.Name)
			}
		}
	}
	for m := range idx.declaring {
		sort.Strings(idx.declaring[m])
	}

	b.impls, b.traits = nil, nil
	return idx
}

// Index answers which impls and default bodies a trait method call can reach.
// It is read-only and safe for concurrent use.
type Index struct {
	byTrait   map[string][]registry.TraitImpl
	byType    map[string][]registry.TraitImpl
	decls     map[string][]registry.TraitDecl
	declaring map[string][]string
}

// Impls returns the impl blocks of trait, ordered by type name.
func (x *Index) Impls(trait string) []registry.TraitImpl {
	return x.byTrait[trait]
}

// ImplsFor returns the trait impl blocks of the type with simple name typeName.
func (x *Index) ImplsFor(typeName string) []registry.TraitImpl {
	return x.byType[typeName]
}

func (x *Index) IsTrait(name string) bool {
	return len(x.decls[name]) > 0
}

// DeclaringTraits lists the user traits that declare method.
func (x *Index) DeclaringTraits(method string) []string {
	return x.declaring[method]
}

// Default returns the default body of trait::method when exactly one
// declaration of trait provides one.
func (x *Index) Default(trait, method string) (registry.FunctionID, bool) {
	var found []registry.FunctionID
	for _, decl := range x.decls[trait] {
		if id, ok := decl.Defaults[method]; ok {
			found = append(found, id)
		}
	}
	if len(found) != 1 {
		return registry.FunctionID{}, false
	}
	return found[0], true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
