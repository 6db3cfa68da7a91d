package app

import (
	"context"
	"strings"
	"time"

	"debtgraph/internal/core/errors"
	"debtgraph/internal/core/ports"
	"debtgraph/internal/data/history"
	"debtgraph/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Snapshot summarizes a build for the history store.
func (a *App) Snapshot(res *Result) history.Snapshot {
	g := res.Graph
	report := a.Validate(res)
	snap := history.Snapshot{
		ProjectKey:    a.ProjectKey(),
		SchemaVersion: history.SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Fingerprint:   FingerprintHex(g),
		FileCount:     res.Files,
		FunctionCount: g.NodeCount(),
		EdgeCount:     g.EdgeCount(),
		CycleCount:    len(g.Cycles()),
		DeadCount:     len(g.DeadCandidates()),
		DroppedCount:  res.Stats.DroppedTotal(),
		HealthScore:   report.HealthScore,
		SuccessRate:   res.Stats.SuccessRate(),
	}
	for _, e := range g.Edges() {
		snap.Edges = append(snap.Edges, history.EdgeRow{
			Caller:      e.Caller.String(),
			Callee:      e.Callee.String(),
			Count:       e.Count,
			Approximate: e.Approximate,
		})
	}
	return snap
}

// SaveSnapshot persists res to the store at path and returns the run id.
func (a *App) SaveSnapshot(ctx context.Context, res *Result, path string) (string, error) {
	_, span := observability.Tracer.Start(ctx, "app.SaveSnapshot",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	store, err := a.store(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	runID, err := store.SaveSnapshot(a.ProjectKey(), a.Snapshot(res))
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeInternal, "save snapshot"), errors.CtxPath, path)
	}
	a.logger.Info("snapshot saved", "run_id", runID, "path", path)
	return runID, nil
}

// History loads every snapshot of this project since the given time and
// builds a trend report from them.
func (a *App) History(path string, since time.Time) (history.TrendReport, error) {
	store, err := a.store(path)
	if err != nil {
		return history.TrendReport{}, err
	}
	defer store.Close()

	snaps, err := store.LoadSnapshots(a.ProjectKey(), since)
	if err != nil {
		return history.TrendReport{}, errors.Wrap(err, errors.CodeInternal, "load snapshots")
	}
	if len(snaps) == 0 {
		return history.TrendReport{}, errors.New(errors.CodeNotFound, "no snapshots recorded for "+a.ProjectKey())
	}
	return history.BuildTrendReport(a.ProjectKey(), snaps)
}

// DiffRuns compares the edge sets of two stored runs.
func (a *App) DiffRuns(path, from, to string) (history.Diff, error) {
	store, err := a.store(path)
	if err != nil {
		return history.Diff{}, err
	}
	defer store.Close()

	diff, err := store.DiffRuns(from, to)
	if err != nil {
		code := errors.CodeInternal
		if errors.Is(err, history.ErrRunNotFound) {
			code = errors.CodeNotFound
		}
		return history.Diff{}, errors.Wrap(err, code, "diff runs")
	}
	return diff, nil
}

func (a *App) store(path string) (ports.SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.CodeValidationError, "snapshot path is required")
	}
	s, err := a.openStore(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open snapshot store"), errors.CtxPath, path)
	}
	return s, nil
}
