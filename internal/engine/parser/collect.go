package parser

import (
	"context"

	"debtgraph/internal/engine/registry"
	"debtgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// CollectAll runs the registration pass over every file on a bounded worker
// pool. Each worker only reads its own tree and returns its own facts; the
// result slice keeps the order of files.
func CollectAll(ctx context.Context, files []*SourceFile, workers int, opts CollectOptions) []*registry.FileFacts {
	_, span := observability.Tracer.Start(ctx, "parser.CollectAll",
		trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	if workers <= 0 {
		workers = 1
	}
	out := make([]*registry.FileFacts, len(files))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			out[i] = Collect(f, opts)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
