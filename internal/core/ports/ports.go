// # internal/core/ports/ports.go
package ports

import (
	"time"

	"debtgraph/internal/data/history"
)

// SnapshotStore abstracts persistence of build snapshots for history and
// diff workflows.
type SnapshotStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) (string, error)
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
	LoadEdges(runID string) ([]history.EdgeRow, error)
	DiffRuns(from, to string) (history.Diff, error)
	Close() error
}

// FileSource lists the source files of a project root in a stable order.
type FileSource interface {
	Discover(root string) ([]string, error)
}

// ChangeWatcher reports batches of changed source paths until closed.
type ChangeWatcher interface {
	Watch(paths []string) error
	Close() error
}

// StoreOpener opens a snapshot store at a path. The CLI injects one so tests
// can run the app without SQLite.
type StoreOpener func(path string) (SnapshotStore, error)

// WatcherFactory builds a ChangeWatcher that calls onChange with each batch.
type WatcherFactory func(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (ChangeWatcher, error)
