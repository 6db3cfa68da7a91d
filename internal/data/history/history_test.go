package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "snapshots.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Snapshot{
		Timestamp:     base,
		Fingerprint:   "aa",
		FunctionCount: 5,
		EdgeCount:     4,
		Edges: []EdgeRow{
			{Caller: "src/a.rs:a::foo", Callee: "src/b.rs:b::bar", Count: 2},
		},
	}
	second := Snapshot{
		Timestamp:     base.Add(2 * time.Hour),
		Fingerprint:   "bb",
		FunctionCount: 6,
		EdgeCount:     7,
		CycleCount:    1,
		HealthScore:   91,
		SuccessRate:   0.75,
	}

	firstID, err := store.SaveSnapshot("project-a", first)
	if err != nil {
		t.Fatalf("save first snapshot: %v", err)
	}
	if firstID == "" {
		t.Fatal("expected generated run id")
	}
	if _, err := store.SaveSnapshot("project-a", second); err != nil {
		t.Fatalf("save second snapshot: %v", err)
	}

	got, err := store.LoadSnapshots("project-a", base.Add(1*time.Hour))
	if err != nil {
		t.Fatalf("load snapshots: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 snapshot after since filter, got %d", len(got))
	}
	if got[0].FunctionCount != 6 || got[0].HealthScore != 91 || got[0].SuccessRate != 0.75 {
		t.Fatalf("expected metrics to roundtrip, got %+v", got[0])
	}
	if got[0].Edges != nil {
		t.Fatalf("expected summaries without edges, got %+v", got[0].Edges)
	}

	edges, err := store.LoadEdges(firstID)
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(edges) != 1 || edges[0].Count != 2 || edges[0].Callee != "src/b.rs:b::bar" {
		t.Fatalf("unexpected edges: %+v", edges)
	}

	latest, err := store.Latest("project-a")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Fingerprint != "bb" {
		t.Fatalf("expected latest run, got %+v", latest)
	}
}

func TestStore_DiffRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	before, err := store.SaveSnapshot("p", Snapshot{Edges: []EdgeRow{
		{Caller: "a", Callee: "b", Count: 1},
		{Caller: "a", Callee: "c", Count: 1},
	}})
	if err != nil {
		t.Fatal(err)
	}
	after, err := store.SaveSnapshot("p", Snapshot{Edges: []EdgeRow{
		{Caller: "a", Callee: "b", Count: 3},
		{Caller: "b", Callee: "c", Count: 1},
	}})
	if err != nil {
		t.Fatal(err)
	}

	diff, err := store.DiffRuns(before, after)
	if err != nil {
		t.Fatal(err)
	}
	if len(diff.Added) != 1 || diff.Added[0].Caller != "b" {
		t.Fatalf("unexpected added edges: %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Callee != "c" || diff.Removed[0].Caller != "a" {
		t.Fatalf("unexpected removed edges: %+v", diff.Removed)
	}

	if _, err := store.LoadEdges("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Open(tmpDir)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "snapshots.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "snapshots.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildTrendReport(t *testing.T) {
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	snapshots := []Snapshot{
		{Timestamp: base, Fingerprint: "x", FunctionCount: 4, EdgeCount: 5, CycleCount: 2, HealthScore: 80},
		{Timestamp: base.Add(2 * time.Hour), Fingerprint: "x", FunctionCount: 4, EdgeCount: 5, CycleCount: 2, HealthScore: 80},
		{Timestamp: base.Add(25 * time.Hour), Fingerprint: "y", FunctionCount: 7, EdgeCount: 9, CycleCount: 1, HealthScore: 86},
	}

	report, err := BuildTrendReport("project-a", snapshots)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.ScanCount != 3 {
		t.Fatalf("expected scan_count=3, got %d", report.ScanCount)
	}
	if report.Points[1].Changed {
		t.Fatal("expected identical fingerprints to report no change")
	}
	p := report.Points[2]
	if !p.Changed || p.DeltaFunctions != 3 || p.DeltaEdges != 4 || p.DeltaCycles != -1 || p.DeltaHealth != 6 {
		t.Fatalf("unexpected deltas: %+v", p)
	}

	if _, err := BuildTrendReport("project-a", nil); err == nil {
		t.Fatal("expected error for empty snapshot list")
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
}

func TestStore_SaveLoadSnapshots_ProjectIsolation(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	if _, err := store.SaveSnapshot("project-a", Snapshot{Timestamp: base, FunctionCount: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSnapshot("project-b", Snapshot{Timestamp: base, FunctionCount: 2}); err != nil {
		t.Fatal(err)
	}

	aRows, err := store.LoadSnapshots("project-a", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(aRows) != 1 || aRows[0].FunctionCount != 1 {
		t.Fatalf("unexpected project-a rows: %+v", aRows)
	}

	bRows, err := store.LoadSnapshots("project-b", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(bRows) != 1 || bRows[0].FunctionCount != 2 {
		t.Fatalf("unexpected project-b rows: %+v", bRows)
	}
}
