package resolver

import (
	"context"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultChunkSize = 256

// ChunkResult is everything one worker produced: its own edge fragment, the
// calls it handed to dispatch and its counters.
type ChunkResult struct {
	Fragment *callgraph.Fragment
	Deferred []registry.UnresolvedCall
	Stats    Stats
}

// ResolveChunk resolves calls sequentially into a fresh fragment.
func (r *Resolver) ResolveChunk(calls []registry.UnresolvedCall) ChunkResult {
	res := ChunkResult{Fragment: callgraph.NewFragment(), Stats: NewStats()}
	for _, call := range calls {
		res.Stats.Calls++
		out := r.Resolve(call)
		switch out.Outcome {
		case Resolved:
			res.Fragment.Add(call.Caller, out.Target, false)
			res.Stats.Hit(out.Strategy)
		case Deferred:
			res.Deferred = append(res.Deferred, call)
			res.Stats.Deferred++
		default:
			res.Stats.Drop(out.Reason)
			r.drop.Log(call, out.Reason)
		}
	}
	return res
}

// ResolveAll splits calls into chunks of chunkSize and resolves them on a
// bounded worker pool. Results keep chunk order, so folding them is
// deterministic even though the merge would not depend on it.
func (r *Resolver) ResolveAll(ctx context.Context, calls []registry.UnresolvedCall, chunkSize, workers int) ([]ChunkResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = 1
	}
	chunks := partition(calls, chunkSize)

	ctx, span := observability.Tracer.Start(ctx, "resolver.ResolveAll",
		trace.WithAttributes(attribute.Int("calls", len(calls)), attribute.Int("chunks", len(chunks))))
	defer span.End()

	results := make([]ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.ResolveChunk(chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func partition(calls []registry.UnresolvedCall, size int) [][]registry.UnresolvedCall {
	chunks := make([][]registry.UnresolvedCall, 0, (len(calls)+size-1)/size)
	for start := 0; start < len(calls); start += size {
		end := start + size
		if end > len(calls) {
			end = len(calls)
		}
		chunks = append(chunks, calls[start:end])
	}
	return chunks
}
