package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debtgraph/internal/core/app"
	"debtgraph/internal/core/errors"
	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/output"
	"debtgraph/internal/shared/util"

	"github.com/spf13/cobra"
)

// execute runs one CLI invocation. Tracing and the metrics endpoint are shut
// down even when the command fails.
func execute(args []string, stdout, stderr io.Writer) error {
	s := &session{}
	defer s.close()
	root := newRootCommand(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newRootCommand(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "debtgraph",
		Short: "Build and query cross-file call graphs of Rust projects",
		Long: `debtgraph parses every Rust source file under a project root, resolves
call sites to the functions they invoke and answers structural questions
about the resulting call graph: callers, callees, cycles, dead code and
overall health.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.flags.configPath, "config", "", "path to config file (default ./debtgraph.toml when present)")
	pf.StringVar(&s.flags.root, "root", ".", "project root to analyze")
	pf.BoolVarP(&s.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&s.flags.policy, "policy", "under", "trait dispatch policy for unknown receivers: under or over")
	pf.IntVar(&s.flags.workers, "workers", 0, "parse and resolve workers (default: number of CPUs)")
	pf.StringVar(&s.flags.snapshot, "snapshot", "", "SQLite file for build snapshots")
	pf.StringVar(&s.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newBuildCommand(s),
		newCallersCommand(s),
		newCalleesCommand(s),
		newSCCCommand(s),
		newTopoCommand(s),
		newDeadCommand(s),
		newValidateCommand(s),
		newExportCommand(s),
		newWatchCommand(s),
		newHistoryCommand(s),
		newDiffCommand(s),
	)
	return root
}

func newBuildCommand(s *session) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the call graph and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			var runID string
			if save || s.cfg.Output.Snapshot != "" {
				if runID, err = s.app.SaveSnapshot(cmd.Context(), res, s.cfg.Output.Snapshot); err != nil {
					return err
				}
			}
			if s.cfg.Output.Format != "text" {
				return output.Export(s.out, s.cfg.Output.Format, res.Root, res.Graph, &res.Stats)
			}
			return output.RenderSummary(s.out, summaryOf(s, res, runID))
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store a snapshot of this build (requires --snapshot)")
	return cmd
}

func summaryOf(s *session, res *app.Result, runID string) output.Summary {
	return output.Summary{
		Root:          res.Root,
		Files:         res.Files,
		ParseFailures: len(res.Failures),
		Graph:         res.Graph,
		Stats:         res.Stats,
		Policy:        string(res.Policy),
		Duration:      res.Duration,
		HealthScore:   s.app.Validate(res).HealthScore,
		RunID:         runID,
	}
}

func newCallersCommand(s *session) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "callers <function>",
		Short: "List functions that call the given function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.neighbours(cmd.Context(), args[0], depth, true)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "call levels to follow; 0 follows every level")
	return cmd
}

func newCalleesCommand(s *session) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "callees <function>",
		Short: "List functions the given function calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.neighbours(cmd.Context(), args[0], depth, false)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "call levels to follow; 0 follows every level")
	return cmd
}

func (s *session) neighbours(ctx context.Context, query string, depth int, callers bool) error {
	res, err := s.build(ctx)
	if err != nil {
		return err
	}
	id, err := findFunction(res.Graph, query)
	if err != nil {
		return err
	}
	g := res.Graph
	if callers {
		if depth == 1 {
			return output.RenderFunctions(s.out, "callers of "+id.String(), g.Callers(id))
		}
		return output.RenderFunctions(s.out, "transitive callers of "+id.String(), g.TransitiveCallers(id, depth))
	}
	if depth == 1 {
		return output.RenderFunctions(s.out, "callees of "+id.String(), g.Callees(id))
	}
	return output.RenderFunctions(s.out, "transitive callees of "+id.String(), g.TransitiveCallees(id, depth))
}

func newSCCCommand(s *session) *cobra.Command {
	var cyclesOnly bool
	cmd := &cobra.Command{
		Use:   "scc",
		Short: "List strongly connected components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			if cyclesOnly {
				return output.RenderComponents(s.out, "cycles", res.Graph.Cycles())
			}
			return output.RenderComponents(s.out, "components", res.Graph.StronglyConnectedComponents())
		},
	}
	cmd.Flags().BoolVar(&cyclesOnly, "cycles", false, "only show components that form a cycle")
	return cmd
}

func newTopoCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "topo",
		Short: "Print functions in caller-before-callee order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			order, err := res.Graph.TopologicalSort()
			if err != nil {
				var cycle *callgraph.CycleError
				if errors.As(err, &cycle) {
					_ = output.RenderComponents(s.out, "cycle", [][]registry.FunctionID{cycle.Cycle})
				}
				return errors.Wrap(err, errors.CodeConflict, "graph has no topological order")
			}
			return output.RenderFunctions(s.out, "topological order", order)
		},
	}
}

func newDeadCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "dead",
		Short: "List private functions nothing calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			return output.RenderFunctions(s.out, "dead candidates", res.Graph.DeadCandidates())
		},
	}
}

func newValidateCommand(s *session) *cobra.Command {
	var minScore int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check graph health and report structural issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			report := s.app.Validate(res)
			if err := output.RenderValidation(s.out, report); err != nil {
				return err
			}
			if report.HealthScore < minScore {
				return errors.Newf(errors.CodeValidationError, "health score %d is below %d", report.HealthScore, minScore)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minScore, "min-score", 0, "fail when the health score is below this value")
	return cmd
}

func newExportCommand(s *session) *cobra.Command {
	var (
		format string
		path   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the call graph as json, yaml, dot, mermaid or tsv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := s.build(cmd.Context())
			if err != nil {
				return err
			}
			var w io.Writer = s.out
			if path != "" {
				f, err := util.CreateWithDirs(path)
				if err != nil {
					return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create export file"), errors.CtxPath, path)
				}
				defer f.Close()
				w = f
			}
			return output.Export(w, format, res.Root, res.Graph, &res.Stats)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format: json, yaml, dot, mermaid or tsv")
	cmd.Flags().StringVarP(&path, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func newWatchCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild and print a summary whenever sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := s.build(ctx)
			if err != nil {
				return err
			}
			if err := output.RenderSummary(s.out, summaryOf(s, res, "")); err != nil {
				return err
			}
			return s.app.Watch(ctx, func(res *app.Result, err error) {
				if err != nil {
					s.logger.Error("rebuild failed", "error", err)
					return
				}
				var runID string
				if s.cfg.Output.Snapshot != "" {
					if runID, err = s.app.SaveSnapshot(ctx, res, s.cfg.Output.Snapshot); err != nil {
						s.logger.Error("snapshot failed", "error", err)
					}
				}
				if err := output.RenderSummary(s.out, summaryOf(s, res, runID)); err != nil {
					s.logger.Error("render failed", "error", err)
				}
			})
		},
	}
}

func newHistoryCommand(s *session) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show trends across stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			report, err := s.app.History(s.cfg.Output.Snapshot, from)
			if err != nil {
				return err
			}
			fprintf(s.out, "%s: %d scans\n", report.ProjectKey, report.ScanCount)
			for _, p := range report.Points {
				fprintf(s.out, "  %s  %s  functions %d (%+d)  edges %d (%+d)  cycles %d (%+d)  health %d (%+d)\n",
					p.Timestamp.Format(time.RFC3339), p.RunID,
					p.FunctionCount, p.DeltaFunctions,
					p.EdgeCount, p.DeltaEdges,
					p.CycleCount, p.DeltaCycles,
					p.HealthScore, p.DeltaHealth)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only include snapshots newer than this (e.g. 168h)")
	return cmd
}

func newDiffCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from-run> <to-run>",
		Short: "Compare the edges of two stored snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := s.app.DiffRuns(s.cfg.Output.Snapshot, args[0], args[1])
			if err != nil {
				return err
			}
			fprintf(s.out, "added %d, removed %d\n", len(diff.Added), len(diff.Removed))
			for _, e := range diff.Added {
				fprintf(s.out, "  + %s -> %s\n", e.Caller, e.Callee)
			}
			for _, e := range diff.Removed {
				fprintf(s.out, "  - %s -> %s\n", e.Caller, e.Callee)
			}
			return nil
		},
	}
}
