package history

import "time"

// Snapshot is the persisted summary of one call-graph build.
type Snapshot struct {
	RunID         string
	ProjectKey    string
	SchemaVersion int
	Timestamp     time.Time
	Fingerprint   string

	FileCount     int
	FunctionCount int
	EdgeCount     int
	CycleCount    int
	DeadCount     int
	DroppedCount  int
	HealthScore   int
	SuccessRate   float64

	// Edges is written with the run but not loaded by LoadSnapshots.
	Edges []EdgeRow
}

type EdgeRow struct {
	Caller      string
	Callee      string
	Count       int
	Approximate bool
}

// Diff compares the edge sets of two runs.
type Diff struct {
	Added   []EdgeRow
	Removed []EdgeRow
}
