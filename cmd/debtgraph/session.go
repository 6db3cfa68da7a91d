package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"debtgraph/internal/core/app"
	"debtgraph/internal/core/config"
	"debtgraph/internal/core/errors"
	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/shared/observability"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "debtgraph.toml"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	root        string
	verbose     bool
	policy      string
	workers     int
	snapshot    string
	metricsAddr string
}

// session is the per-invocation state built in PersistentPreRunE.
type session struct {
	flags    globalFlags
	cfg      *config.Config
	app      *app.App
	logger   *slog.Logger
	out      io.Writer
	shutdown []func(context.Context) error
}

func (s *session) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if s.flags.verbose {
		level = slog.LevelDebug
	}
	s.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(s.logger)
	s.out = cmd.OutOrStdout()

	cfg, err := loadConfig(s.flags.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg, s.flags)
	if cfg, err = config.Finalize(cfg); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "invalid configuration")
	}
	s.cfg = cfg

	shutdownTracing, err := observability.InitTracing(cmd.Context(), cfg.Diagnostics.TraceEndpoint, cfg.Diagnostics.TraceInsecure)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "init tracing")
	}
	s.shutdown = append(s.shutdown, shutdownTracing)
	if addr := strings.TrimSpace(cfg.Diagnostics.MetricsAddr); addr != "" {
		srv := observability.NewMetricsServer(addr)
		srv.Start()
		s.shutdown = append(s.shutdown, srv.Shutdown)
	}

	s.app, err = app.New(cfg, app.WithLogger(s.logger))
	return err
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		if err := s.shutdown[i](ctx); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}
	s.shutdown = nil
}

// build runs one full build and fails on a fatal pipeline error.
func (s *session) build(ctx context.Context) (*app.Result, error) {
	res, err := s.app.Build(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Failures {
		s.logger.Warn("parse failure", "path", f.Path, "error", f.Err)
	}
	return res, nil
}

// loadConfig reads path, falls back to ./debtgraph.toml when it exists, and
// otherwise starts from defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "load config"), errors.CtxPath, path)
	}
	return cfg, nil
}

// applyFlagOverrides copies only the flags the user actually set.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, f globalFlags) {
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Analysis.Root = f.root
	}
	if flags.Changed("policy") {
		cfg.Resolver.DispatchPolicy = f.policy
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = f.workers
	}
	if flags.Changed("snapshot") {
		cfg.Output.Snapshot = f.snapshot
	}
	if flags.Changed("metrics-addr") {
		cfg.Diagnostics.MetricsAddr = f.metricsAddr
	}
}

// findFunction accepts a "file:path" id, a full scope path or a bare name and
// fails unless exactly one function matches.
func findFunction(g *callgraph.Graph, query string) (registry.FunctionID, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return registry.FunctionID{}, errors.New(errors.CodeValidationError, "function name is required")
	}
	for _, id := range g.Nodes() {
		if id.String() == query {
			return id, nil
		}
	}

	reg := g.Registry()
	matches := reg.ByPath(query)
	if len(matches) == 0 && !strings.Contains(query, registry.PathSep) {
		matches = reg.ByName(query)
	}
	switch len(matches) {
	case 0:
		return registry.FunctionID{}, errors.AddContext(errors.New(errors.CodeNotFound, "no function matches"), errors.CtxSymbol, query)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, id := range matches {
			names = append(names, id.String())
		}
		return registry.FunctionID{}, errors.Newf(errors.CodeValidationError,
			"%q matches %d functions: %s", query, len(matches), strings.Join(names, ", "))
	}
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
