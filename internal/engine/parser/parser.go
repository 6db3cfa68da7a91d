// # internal/engine/parser/parser.go
package parser

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"debtgraph/internal/core/errors"
	"debtgraph/internal/shared/observability"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers int
	// StrictSyntax excludes files whose tree contains syntax errors instead of
	// analysing the recoverable part.
	StrictSyntax bool
	// MaxFailures aborts the run when more files than this fail; 0 disables it.
	MaxFailures int
}

type Parser struct {
	pool *ParserPool
	opts Options
}

func NewParser(opts Options) *Parser {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Parser{pool: NewParserPool(RustLanguage()), opts: opts}
}

// ParseFiles reads and parses every path exactly once. Duplicate paths are
// parsed once. Files that cannot be read or parsed are logged and left out of
// the result; only an empty input or an exceeded failure threshold is fatal.
// Files come back in input order.
func (p *Parser) ParseFiles(ctx context.Context, root string, paths []string) (*ParseResult, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.CodeValidationError, "no source files to analyze")
	}

	unique := dedupPaths(paths)
	_, span := observability.Tracer.Start(ctx, "parser.ParseFiles",
		trace.WithAttributes(attribute.Int("files", len(unique)), attribute.Int("workers", p.opts.Workers)))
	defer span.End()

	files := make([]*SourceFile, len(unique))
	errs := make([]error, len(unique))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for i, path := range unique {
		i, path := i, path
		g.Go(func() error {
			files[i], errs[i] = p.parseOne(root, path)
			return nil
		})
	}
	_ = g.Wait()

	result := &ParseResult{Files: make([]*SourceFile, 0, len(unique))}
	for i, path := range unique {
		if errs[i] != nil {
			slog.Warn("failed to parse file", "path", path, "error", errs[i])
			observability.ParseFailuresTotal.Inc()
			result.Failures = append(result.Failures, Failure{Path: path, Err: errs[i]})
			continue
		}
		if files[i].Partial {
			slog.Debug("file parsed with syntax errors", "path", files[i].Rel)
		}
		result.Files = append(result.Files, files[i])
	}
	span.SetAttributes(attribute.Int("failures", len(result.Failures)))

	if p.opts.MaxFailures > 0 && len(result.Failures) > p.opts.MaxFailures {
		result.Close()
		err := errors.Newf(errors.CodeParse, "%d files failed to parse (limit %d)", len(result.Failures), p.opts.MaxFailures)
		return nil, errors.AddContext(err, errors.CtxCount, len(result.Failures))
	}
	return result, nil
}

func (p *Parser) parseOne(root, path string) (*SourceFile, error) {
	start := time.Now()
	language, err := LanguageForPath(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParse, "read failed"), errors.CtxPath, path)
	}

	file, err := p.ParseSource(relPath(root, path), content)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	file.Path = path
	observability.ParsingDuration.WithLabelValues(language).Observe(time.Since(start).Seconds())
	return file, nil
}

// ParseSource parses in-memory content as the file at rel (root-relative).
func (p *Parser) ParseSource(rel string, content []byte) (*SourceFile, error) {
	tree := p.pool.Parse(content)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "parser returned no tree")
	}
	partial := tree.RootNode().HasError()
	if partial && p.opts.StrictSyntax {
		tree.Close()
		return nil, errors.New(errors.CodeParse, "syntax errors")
	}
	return &SourceFile{
		Path:     rel,
		Rel:      rel,
		Module:   ModulePath(rel),
		Language: LanguageRust,
		Source:   content,
		Hash:     xxh3.Hash(content),
		Tree:     tree,
		Partial:  partial,
	}, nil
}

func dedupPaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
