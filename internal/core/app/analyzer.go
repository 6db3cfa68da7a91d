package app

import (
	"context"
	"time"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/dispatch"
	"debtgraph/internal/engine/parser"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/engine/resolver"
	"debtgraph/internal/shared/observability"
	"debtgraph/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result is one completed build: the frozen graph plus what it took to get there.
type Result struct {
	Root      string
	Graph     *callgraph.Graph
	Stats     resolver.Stats
	Files     int
	Failures  []parser.Failure
	CallSites int
	// Policy is the dispatch policy the build ran with; Dispatched counts the
	// call sites it turned into edges.
	Policy     dispatch.Policy
	Dispatched int
	// Orphans are calls outside any function body, Indirect calls through
	// closures, fields or indexing. Neither can become an edge.
	Orphans  int
	Indirect int
	Phases   map[string]time.Duration
	Duration time.Duration
}

// Build discovers the configured root and builds its call graph.
func (a *App) Build(ctx context.Context) (*Result, error) {
	root := a.Root()
	files, err := a.Discover(root)
	if err != nil {
		return nil, err
	}
	return a.BuildFiles(ctx, root, files)
}

// BuildFiles runs the whole pipeline over an explicit file list: parse and
// collect in parallel, fold the facts into a sealed registry, resolve chunks
// in parallel, dispatch deferred trait calls and fold every fragment into the
// frozen graph.
func (a *App) BuildFiles(ctx context.Context, root string, paths []string) (*Result, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "app.BuildFiles",
		trace.WithAttributes(attribute.String("root", root), attribute.Int("paths", len(paths))))
	defer span.End()

	start := time.Now()
	res := &Result{Root: root, Phases: make(map[string]time.Duration)}
	workers := a.Config.Analysis.Workers
	chunkSize := a.Config.Resolver.ChunkSize

	var parsed *parser.ParseResult
	err := a.phase(res, "parse", func() error {
		var err error
		parsed, err = a.parser.ParseFiles(ctx, root, paths)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer parsed.Close()
	res.Files = len(parsed.Files)
	res.Failures = parsed.Failures

	var facts []*registry.FileFacts
	_ = a.phase(res, "collect", func() error {
		facts = parser.CollectAll(ctx, parsed.Files, workers, parser.CollectOptions{
			MacroArgs:          a.Config.Resolver.MacroArgs,
			FunctionReferences: a.Config.Resolver.FunctionReferences,
		})
		return nil
	})

	var (
		reg   *registry.Registry
		idx   *dispatch.Index
		calls []registry.UnresolvedCall
	)
	_ = a.phase(res, "register", func() error {
		rb := registry.NewBuilder()
		tb := dispatch.NewBuilder()
		for _, f := range facts {
			rb.AddFile(f)
			tb.AddFile(f)
			calls = append(calls, f.Calls...)
			res.Orphans += f.Orphans
			res.Indirect += f.Indirect
		}
		reg, idx = rb.Seal(), tb.Seal()
		return nil
	})
	res.CallSites = len(calls)
	observability.FunctionsRegistered.Set(float64(reg.Len()))
	observability.CallSitesCollected.Add(float64(len(calls)))
	a.logger.Info("registration complete",
		"files", res.Files,
		"functions", reg.Len(),
		"call_sites", len(calls),
		"parse_failures", len(res.Failures),
	)

	fragments := make([]*callgraph.Fragment, 0)
	res.Stats = resolver.NewStats()
	var deferred []registry.UnresolvedCall
	err = a.phase(res, "resolve", func() error {
		r := resolver.New(reg, resolver.Options{MethodNameFallback: a.Config.Resolver.MethodNameFallback}).WithDropLog(a.dropLog)
		chunks, err := r.ResolveAll(ctx, calls, chunkSize, workers)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			fragments = append(fragments, c.Fragment)
			deferred = append(deferred, c.Deferred...)
			res.Stats.Add(c.Stats)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = a.phase(res, "dispatch", func() error {
		d := dispatch.New(idx, a.policy).WithDropLog(a.dropLog)
		chunks, err := d.Pass(ctx, deferred, chunkSize, workers)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			fragments = append(fragments, c.Fragment)
			res.Dispatched += c.Fragment.Calls()
			res.Stats.Add(c.Stats)
		}
		res.Policy = d.Policy()
		a.logger.Debug("dispatch pass complete",
			"policy", string(res.Policy),
			"deferred", len(deferred),
			"dispatched", res.Dispatched,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = a.phase(res, "merge", func() error {
		m := callgraph.NewMerger(reg)
		for _, f := range fragments {
			m.Fold(f)
		}
		res.Graph = m.Freeze()
		return nil
	})

	for _, s := range resolver.Strategies {
		if n := res.Stats.Hits[s]; n > 0 {
			observability.ResolutionsTotal.WithLabelValues(string(s)).Add(float64(n))
		}
	}
	observability.GraphNodes.Set(float64(res.Graph.NodeCount()))
	observability.GraphEdges.Set(float64(res.Graph.EdgeCount()))

	res.Duration = time.Since(start)
	a.logSummary(res)
	if suppressed := a.dropLog.Suppressed(); suppressed > 0 {
		a.logger.Debug("dropped call log throttled", "suppressed", suppressed)
	}
	a.last = res
	return res, nil
}

func (a *App) phase(res *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Phases[name] = elapsed
	observability.PhaseDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	return err
}

func (a *App) logSummary(res *Result) {
	attrs := []any{
		"nodes", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"resolved", res.Stats.Resolved(),
		"deferred", res.Stats.Deferred,
		"dropped", res.Stats.DroppedTotal(),
		"success_rate", res.Stats.SuccessRate(),
		"policy", string(a.policy),
		"duration", res.Duration,
		"heap_mb", util.HeapAllocMB(),
	}
	for _, s := range resolver.Strategies {
		attrs = append(attrs, "hits_"+string(s), res.Stats.Hits[s])
	}
	for _, reason := range res.Stats.Reasons() {
		attrs = append(attrs, "dropped_"+string(reason), res.Stats.Dropped[reason])
	}
	a.logger.Info("call graph built", attrs...)
}
