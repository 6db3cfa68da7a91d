// # internal/engine/dispatch/dispatch.go
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/engine/resolver"
	"debtgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Policy decides what a trait call with an unknown receiver type becomes.
type Policy string

const (
	// PolicyUnder skips the call; the graph may miss edges.
	PolicyUnder Policy = "under"
	// PolicyOver links the call to every implementation; the graph may hold
	// edges that never execute, all flagged approximate.
	PolicyOver Policy = "over"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyUnder:
		return PolicyUnder, nil
	case PolicyOver:
		return PolicyOver, nil
	default:
		return "", fmt.Errorf("unknown dispatch policy %q", s)
	}
}

// Target is one function a dispatched call may reach.
type Target struct {
	ID          registry.FunctionID
	Approximate bool
}

// Dispatcher settles the calls the resolver deferred, using the trait index.
type Dispatcher struct {
	idx    *Index
	policy Policy
	drop   *resolver.DropLog
}

func New(idx *Index, policy Policy) *Dispatcher {
	if policy == "" {
		policy = PolicyUnder
	}
	return &Dispatcher{idx: idx, policy: policy}
}

func (d *Dispatcher) WithDropLog(l *resolver.DropLog) *Dispatcher {
	d.drop = l
	return d
}

func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// site is what a call says about its target: the method name and whatever is
// known about the type and trait it is called on.
type site struct {
	method    string
	typeName  string
	qualifier string
	trait     string
}

func describe(idx *Index, call registry.UnresolvedCall) (site, bool) {
	var s site
	stripped := registry.StripGenerics(call.Callee)
	if call.Kind == registry.CallMethod {
		s.method = stripped
	} else {
		segs := registry.SplitPath(stripped)
		if len(segs) < 2 {
			return s, false
		}
		s.method = segs[len(segs)-1]
		head := segs[len(segs)-2]
		if call.Receiver == nil {
			if idx.IsTrait(head) {
				s.trait = head
			} else {
				s.typeName = head
				s.qualifier = registry.JoinPath(segs[:len(segs)-1]...)
			}
		}
	}
	if recv := call.Receiver; recv != nil {
		s.trait = recv.Trait
		if recv.Name != "" {
			name := registry.StripGenerics(recv.Name)
			s.typeName = lastSegment(name)
			s.qualifier = name
		}
	}
	return s, s.method != ""
}

// Resolve returns the targets of one deferred call, or the reason it has none.
func (d *Dispatcher) Resolve(call registry.UnresolvedCall) ([]Target, resolver.DropReason) {
	s, ok := describe(d.idx, call)
	if !ok {
		return nil, resolver.DropNoCandidate
	}
	if s.typeName != "" {
		return d.forType(s)
	}

	if s.trait == "" {
		if resolver.IsStdMethod(s.method) {
			return nil, resolver.DropStdMethod
		}
		traits := d.idx.DeclaringTraits(s.method)
		switch len(traits) {
		case 0:
			return nil, resolver.DropNoCandidate
		case 1:
			s.trait = traits[0]
		default:
			return nil, resolver.DropAmbiguous
		}
	}
	if d.policy == PolicyUnder {
		return nil, resolver.DropPolicy
	}
	return d.allImpls(s)
}

// forType maps a call on a known type to that type's implementation, or to
// the trait's default body when the impl does not override the method.
func (d *Dispatcher) forType(s site) ([]Target, resolver.DropReason) {
	var impls []registry.TraitImpl
	for _, impl := range d.idx.ImplsFor(s.typeName) {
		if s.trait == "" || impl.Trait == s.trait {
			impls = append(impls, impl)
		}
	}

	var direct []registry.FunctionID
	for _, impl := range impls {
		if id, ok := impl.Methods[s.method]; ok {
			direct = append(direct, id)
		}
	}
	direct = narrow(direct, s.qualifier)
	switch len(direct) {
	case 1:
		return []Target{{ID: direct[0]}}, ""
	case 0:
	default:
		return nil, resolver.DropAmbiguous
	}

	var defaults []registry.FunctionID
	for _, impl := range impls {
		if id, ok := d.idx.Default(impl.Trait, s.method); ok && !containsID(defaults, id) {
			defaults = append(defaults, id)
		}
	}
	if len(defaults) == 0 && s.trait != "" {
		if id, ok := d.idx.Default(s.trait, s.method); ok {
			defaults = append(defaults, id)
		}
	}
	switch len(defaults) {
	case 0:
		return nil, resolver.DropNoCandidate
	case 1:
		return []Target{{ID: defaults[0]}}, ""
	default:
		return nil, resolver.DropAmbiguous
	}
}

// allImpls links the call to every implementation of the trait method and to
// the default body when some impl relies on it.
func (d *Dispatcher) allImpls(s site) ([]Target, resolver.DropReason) {
	impls := d.idx.Impls(s.trait)
	var out []Target
	usesDefault := len(impls) == 0
	for _, impl := range impls {
		if id, ok := impl.Methods[s.method]; ok {
			out = append(out, Target{ID: id, Approximate: true})
		} else {
			usesDefault = true
		}
	}
	if usesDefault {
		if id, ok := d.idx.Default(s.trait, s.method); ok {
			out = append(out, Target{ID: id, Approximate: true})
		}
	}
	if len(out) == 0 {
		return nil, resolver.DropNoCandidate
	}
	return out, ""
}

// narrow keeps the impl methods whose type path matches the qualifier when
// several types share a simple name.
func narrow(ids []registry.FunctionID, qualifier string) []registry.FunctionID {
	if len(ids) < 2 || !strings.Contains(qualifier, registry.PathSep) {
		return ids
	}
	var out []registry.FunctionID
	for _, id := range ids {
		parent := id.Parent()
		if parent == qualifier || strings.HasSuffix(parent, registry.PathSep+qualifier) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return ids
	}
	return out
}

// PassChunk dispatches calls sequentially into a fresh fragment.
func (d *Dispatcher) PassChunk(calls []registry.UnresolvedCall) resolver.ChunkResult {
	res := resolver.ChunkResult{Fragment: callgraph.NewFragment(), Stats: resolver.NewStats()}
	for _, call := range calls {
		targets, reason := d.Resolve(call)
		if len(targets) == 0 {
			res.Stats.Drop(reason)
			d.drop.Log(call, reason)
			continue
		}
		for _, t := range targets {
			res.Fragment.Add(call.Caller, t.ID, t.Approximate)
		}
		res.Stats.Hit(resolver.StrategyTrait)
	}
	return res
}

// Pass runs dispatch over the deferred calls on a bounded worker pool. The
// stats it returns carry hits and drops only; the calls were already counted
// by the resolver.
func (d *Dispatcher) Pass(ctx context.Context, calls []registry.UnresolvedCall, chunkSize, workers int) ([]resolver.ChunkResult, error) {
	if chunkSize <= 0 {
		chunkSize = resolver.DefaultChunkSize
	}
	if workers <= 0 {
		workers = 1
	}
	ctx, span := observability.Tracer.Start(ctx, "dispatch.Pass",
		trace.WithAttributes(attribute.Int("calls", len(calls)), attribute.String("policy", string(d.policy))))
	defer span.End()

	n := (len(calls) + chunkSize - 1) / chunkSize
	results := make([]resolver.ChunkResult, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			end := min((i+1)*chunkSize, len(calls))
			results[i] = d.PassChunk(calls[i*chunkSize : end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, registry.PathSep); idx >= 0 {
		return path[idx+len(registry.PathSep):]
	}
	return path
}

func containsID(ids []registry.FunctionID, id registry.FunctionID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
