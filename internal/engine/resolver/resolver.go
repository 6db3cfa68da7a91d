// # internal/engine/resolver/resolver.go
package resolver

import (
	"strings"

	"debtgraph/internal/engine/parser"
	"debtgraph/internal/engine/registry"
)

// Outcome is what the chain decided for one call.
type Outcome int

const (
	Resolved Outcome = iota
	Deferred
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Deferred:
		return "deferred"
	default:
		return "dropped"
	}
}

type Result struct {
	Outcome  Outcome
	Target   registry.FunctionID
	Strategy Strategy
	Reason   DropReason
}

type Options struct {
	// MethodNameFallback binds a method call with an unknown receiver to the
	// only method of that name in the registry.
	MethodNameFallback bool
}

// Resolver runs the strategy chain against a sealed registry. It holds no
// mutable state, so one Resolver serves every worker.
type Resolver struct {
	reg  *registry.Registry
	opts Options
	drop *DropLog
}

func New(reg *registry.Registry, opts Options) *Resolver {
	return &Resolver{reg: reg, opts: opts}
}

// WithDropLog attaches a diagnostics log for dropped calls.
func (r *Resolver) WithDropLog(l *DropLog) *Resolver {
	r.drop = l
	return r
}

func (r *Resolver) Registry() *registry.Registry {
	return r.reg
}

type step struct {
	strategy Strategy
	find     func(registry.UnresolvedCall) []registry.FunctionID
}

// Resolve tries each strategy in order; the first one that yields exactly one
// candidate wins. Calls that only dispatch can settle are deferred.
func (r *Resolver) Resolve(call registry.UnresolvedCall) Result {
	steps := []step{
		{StrategyExact, r.exact},
		{StrategySameFile, r.sameFile},
		{StrategyImport, r.viaImports},
	}

	ambiguous := false
	if id, s, ok := r.runSteps(steps, call, &ambiguous); ok {
		return Result{Outcome: Resolved, Target: id, Strategy: s}
	}
	if stripped, changed := stripCall(call); changed {
		if id, _, ok := r.runSteps(steps, stripped, &ambiguous); ok {
			return Result{Outcome: Resolved, Target: id, Strategy: StrategyGeneric}
		}
	}

	if call.Kind == registry.CallMethod && !call.Receiver.Concrete() && IsStdMethod(call.Callee) {
		return Result{Outcome: Dropped, Reason: DropStdMethod}
	}
	if deferrable(call) {
		return Result{Outcome: Deferred, Strategy: StrategyTrait}
	}
	if ambiguous {
		return Result{Outcome: Dropped, Reason: DropAmbiguous}
	}
	return Result{Outcome: Dropped, Reason: DropNoCandidate}
}

func (r *Resolver) runSteps(steps []step, call registry.UnresolvedCall, ambiguous *bool) (registry.FunctionID, Strategy, bool) {
	for _, s := range steps {
		ids := s.find(call)
		switch len(ids) {
		case 0:
		case 1:
			return ids[0], s.strategy, true
		default:
			*ambiguous = true
		}
	}
	return registry.FunctionID{}, "", false
}

// exact matches qualified callee text, or Receiver::method for a known
// receiver, against full scope paths.
func (r *Resolver) exact(call registry.UnresolvedCall) []registry.FunctionID {
	if call.Kind == registry.CallMethod {
		if !call.Receiver.Concrete() {
			return nil
		}
		return r.preferInherent(r.reg.ByPath(call.Receiver.Name + registry.PathSep + call.Callee))
	}
	if !strings.Contains(call.Callee, registry.PathSep) {
		// Bare names go through lexical lookup so inner items shadow outer ones.
		return nil
	}
	return r.preferInherent(r.reg.ByPath(call.Callee))
}

// sameFile handles unqualified names: lexically visible functions first, then
// other functions of the caller's file, then a globally unique name when no
// import claims it.
func (r *Resolver) sameFile(call registry.UnresolvedCall) []registry.FunctionID {
	name := call.Callee
	if strings.Contains(name, registry.PathSep) {
		return nil
	}
	if call.Kind == registry.CallMethod {
		if call.Receiver.Concrete() || (call.Receiver != nil && call.Receiver.Trait != "") {
			return nil
		}
		return r.methodsNamed(call, name)
	}

	candidates := r.filter(r.reg.ByName(name), func(d registry.Definition) bool { return d.Free() })
	if len(candidates) == 0 {
		return nil
	}
	if visible := r.lexical(call, candidates); len(visible) > 0 {
		return visible
	}
	if _, bound := call.Imports.Lookup(name); bound {
		return nil
	}
	if local := inFile(candidates, call.Caller.File); len(local) > 0 {
		return local
	}
	return candidates
}

// lexical keeps the same-file candidates whose parent scope encloses the call
// site, and of those only the innermost.
func (r *Resolver) lexical(call registry.UnresolvedCall, candidates []registry.FunctionID) []registry.FunctionID {
	var best []registry.FunctionID
	depth := -1
	for _, id := range candidates {
		if id.File != call.Caller.File {
			continue
		}
		parent := id.Parent()
		if !visibleFrom(parent, call.Scope) {
			continue
		}
		d := len(registry.SplitPath(parent))
		switch {
		case d > depth:
			best, depth = []registry.FunctionID{id}, d
		case d == depth:
			best = append(best, id)
		}
	}
	return best
}

func (r *Resolver) methodsNamed(call registry.UnresolvedCall, name string) []registry.FunctionID {
	if IsStdMethod(name) {
		return nil
	}
	// Trait methods are left to the dispatch pass so the dispatch policy
	// decides them.
	methods := r.filter(r.reg.ByName(name), func(d registry.Definition) bool {
		return d.Kind == registry.KindMethod && d.Trait == ""
	})
	if local := inFile(methods, call.Caller.File); len(local) > 0 {
		return local
	}
	if r.opts.MethodNameFallback {
		return methods
	}
	return nil
}

// viaImports rewrites the callee with the caller's use bindings and module
// position and retries the exact match. The first rewrite that names any
// registered path decides.
func (r *Resolver) viaImports(call registry.UnresolvedCall) []registry.FunctionID {
	text := call.Callee
	if call.Kind == registry.CallMethod {
		if !call.Receiver.Concrete() || call.Receiver.Qualified {
			return nil
		}
		text = call.Receiver.Name + registry.PathSep + call.Callee
	}
	for _, path := range candidatePaths(call, text) {
		if ids := r.reg.ByPath(path); len(ids) > 0 {
			return r.preferInherent(ids)
		}
	}
	return nil
}

// candidatePaths lists full paths text may refer to, most specific first.
func candidatePaths(call registry.UnresolvedCall, text string) []string {
	var out []string
	seen := map[string]bool{text: true}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	head, rest, _ := strings.Cut(text, registry.PathSep)
	switch head {
	case "crate", "self", "super", "":
		add(parser.NormalizePath(text, call.Module))
		return out
	}

	// Items declared inside function bodies are named relative to the
	// enclosing scope, innermost first.
	for _, scope := range lexicalScopes(call.Scope, call.Module) {
		add(registry.JoinPath(scope, text))
	}
	if bound, ok := call.Imports.Lookup(head); ok {
		full := registry.JoinPath(bound, rest)
		add(full)
		for _, m := range ancestors(call.Module) {
			add(registry.JoinPath(m, full))
		}
	}
	for _, glob := range call.Imports.Globs() {
		add(registry.JoinPath(glob, text))
	}
	for _, m := range ancestors(call.Module) {
		add(registry.JoinPath(m, text))
	}
	return out
}

// lexicalScopes lists the prefixes of scope that lie below module, longest
// first.
func lexicalScopes(scope, module string) []string {
	if module != "" && !strings.HasPrefix(scope, module+registry.PathSep) {
		return nil
	}
	var out []string
	for len(scope) > len(module) {
		out = append(out, scope)
		idx := strings.LastIndex(scope, registry.PathSep)
		if idx < 0 {
			break
		}
		scope = scope[:idx]
	}
	return out
}

// preferInherent picks the inherent method when a type has both an inherent
// and a trait method of the same name, as the language does.
func (r *Resolver) preferInherent(ids []registry.FunctionID) []registry.FunctionID {
	if len(ids) < 2 {
		return ids
	}
	inherent := r.filter(ids, func(d registry.Definition) bool { return d.Trait == "" })
	if len(inherent) == 1 {
		return inherent
	}
	return ids
}

func (r *Resolver) filter(ids []registry.FunctionID, keep func(registry.Definition) bool) []registry.FunctionID {
	var out []registry.FunctionID
	for _, id := range ids {
		if def, ok := r.reg.Lookup(id); ok && keep(def) {
			out = append(out, id)
		}
	}
	return out
}

func inFile(ids []registry.FunctionID, file string) []registry.FunctionID {
	var out []registry.FunctionID
	for _, id := range ids {
		if id.File == file {
			out = append(out, id)
		}
	}
	return out
}

// stripCall removes generic argument lists from the callee and the receiver
// type. The original call is left untouched.
func stripCall(call registry.UnresolvedCall) (registry.UnresolvedCall, bool) {
	out := call
	out.Callee = registry.StripGenerics(call.Callee)
	changed := out.Callee != call.Callee
	if call.Receiver != nil && strings.Contains(call.Receiver.Name, "<") {
		recv := *call.Receiver
		recv.Name = registry.StripGenerics(recv.Name)
		out.Receiver = &recv
		changed = true
	}
	return out, changed
}

// deferrable reports calls whose target depends on trait dispatch: method
// calls, calls through a receiver bound, and Type::method paths that may name
// a trait method.
func deferrable(call registry.UnresolvedCall) bool {
	if call.Kind == registry.CallMethod || call.Receiver != nil {
		return true
	}
	segments := registry.SplitPath(registry.StripGenerics(call.Callee))
	return len(segments) >= 2 && isTypeLike(segments[len(segments)-2])
}
