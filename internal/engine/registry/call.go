package registry

import "debtgraph/internal/shared/util"

type CallKind string

const (
	CallPath      CallKind = "path"
	CallMethod    CallKind = "method"
	CallMacroArg  CallKind = "macro_arg"
	CallReference CallKind = "reference"
)

// TypeRef describes what is statically known about a method receiver.
// Name is set when the concrete type is known; Qualified marks Name as a full
// scope path (self receivers) rather than source text. Trait is set when only a
// trait bound is known (generic parameter, dyn Trait, impl Trait).
type TypeRef struct {
	Expr      string
	Name      string
	Qualified bool
	Trait     string
}

func (t *TypeRef) Concrete() bool {
	return t != nil && t.Name != ""
}

// UnresolvedCall is one call site recorded during registration. It is never
// modified after the collector emits it.
type UnresolvedCall struct {
	Caller   FunctionID
	Callee   string
	Kind     CallKind
	Location Location
	// Scope is the lexical scope path at the call site; Module the module part of it.
	Scope    string
	Module   string
	Imports  *Imports
	Receiver *TypeRef
}

// Imports holds the use-declaration bindings of one lexical block. Lookups
// walk outward through parents. Bindings are only added while the owning file
// is being traversed.
type Imports struct {
	parent   *Imports
	bindings map[string]string
	globs    []string
}

func NewImports(parent *Imports) *Imports {
	return &Imports{parent: parent}
}

func (i *Imports) Bind(name, path string) {
	if i.bindings == nil {
		i.bindings = make(map[string]string)
	}
	i.bindings[name] = path
}

func (i *Imports) AddGlob(prefix string) {
	i.globs = append(i.globs, prefix)
}

func (i *Imports) Lookup(name string) (string, bool) {
	for cur := i; cur != nil; cur = cur.parent {
		if path, ok := cur.bindings[name]; ok {
			return path, true
		}
	}
	return "", false
}

// Globs returns glob-import prefixes, innermost block first.
func (i *Imports) Globs() []string {
	var out []string
	for cur := i; cur != nil; cur = cur.parent {
		out = append(out, cur.globs...)
	}
	return out
}

// Names lists every bound name visible from this block, sorted.
func (i *Imports) Names() []string {
	seen := make(map[string]bool)
	for cur := i; cur != nil; cur = cur.parent {
		for name := range cur.bindings {
			seen[name] = true
		}
	}
	return util.SortedKeys(seen)
}
