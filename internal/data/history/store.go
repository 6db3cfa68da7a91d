package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// ErrRunNotFound is returned when a run id has no stored snapshot.
var ErrRunNotFound = errors.New("run not found")

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("snapshot path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("snapshot path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshots %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite snapshots %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot writes the run summary and its edges in one transaction and
// returns the run id, generating one when the snapshot has none.
func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.ProjectKey = normalizeKey(projectKey)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return "", fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	err := s.withRetry("save snapshot", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO runs (
  run_id, project_key, schema_version, ts_utc, fingerprint, file_count, function_count,
  edge_count, cycle_count, dead_count, dropped_count, health_score, success_rate
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.RunID,
			snapshot.ProjectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
			snapshot.Fingerprint,
			snapshot.FileCount,
			snapshot.FunctionCount,
			snapshot.EdgeCount,
			snapshot.CycleCount,
			snapshot.DeadCount,
			snapshot.DroppedCount,
			snapshot.HealthScore,
			snapshot.SuccessRate,
		); err != nil {
			_ = tx.Rollback()
			return err
		}

		stmt, err := tx.Prepare(`INSERT INTO run_edges (run_id, caller, callee, call_count, approximate) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, e := range snapshot.Edges {
			if _, err := stmt.Exec(snapshot.RunID, e.Caller, e.Callee, e.Count, e.Approximate); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return err
			}
		}
		_ = stmt.Close()
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return snapshot.RunID, nil
}

// LoadSnapshots returns run summaries for projectKey, oldest first.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := selectRuns + " WHERE project_key = ?"
	args := []any{normalizeKey(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// Latest returns the most recent run for projectKey.
func (s *Store) Latest(projectKey string) (Snapshot, error) {
	snapshots, err := s.LoadSnapshots(projectKey, time.Time{})
	if err != nil {
		return Snapshot{}, err
	}
	if len(snapshots) == 0 {
		return Snapshot{}, fmt.Errorf("%w: project %s has no runs", ErrRunNotFound, normalizeKey(projectKey))
	}
	return snapshots[len(snapshots)-1], nil
}

// LoadEdges returns the edges stored with runID ordered by caller, callee.
func (s *Store) LoadEdges(runID string) ([]EdgeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.Query(`SELECT caller, callee, call_count, approximate FROM run_edges WHERE run_id = ? ORDER BY caller, callee`, runID)
	if err != nil {
		return nil, fmt.Errorf("load edges for %s: %w", runID, err)
	}
	defer rows.Close()

	edges := make([]EdgeRow, 0)
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.Caller, &e.Callee, &e.Count, &e.Approximate); err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge rows: %w", err)
	}
	return edges, nil
}

// DiffRuns reports edges present in `to` but not `from`, and the reverse.
func (s *Store) DiffRuns(from, to string) (Diff, error) {
	before, err := s.LoadEdges(from)
	if err != nil {
		return Diff{}, err
	}
	after, err := s.LoadEdges(to)
	if err != nil {
		return Diff{}, err
	}
	key := func(e EdgeRow) string { return e.Caller + "\x00" + e.Callee }

	old := make(map[string]bool, len(before))
	for _, e := range before {
		old[key(e)] = true
	}
	cur := make(map[string]bool, len(after))
	var diff Diff
	for _, e := range after {
		cur[key(e)] = true
		if !old[key(e)] {
			diff.Added = append(diff.Added, e)
		}
	}
	for _, e := range before {
		if !cur[key(e)] {
			diff.Removed = append(diff.Removed, e)
		}
	}
	return diff, nil
}

const selectRuns = `
SELECT
  run_id, project_key, schema_version, ts_utc, fingerprint, file_count, function_count,
  edge_count, cycle_count, dead_count, dropped_count, health_score, success_rate
FROM runs`

func scanRun(rows *sql.Rows) (Snapshot, error) {
	var (
		tsRaw    string
		snapshot Snapshot
	)
	if err := rows.Scan(
		&snapshot.RunID,
		&snapshot.ProjectKey,
		&snapshot.SchemaVersion,
		&tsRaw,
		&snapshot.Fingerprint,
		&snapshot.FileCount,
		&snapshot.FunctionCount,
		&snapshot.EdgeCount,
		&snapshot.CycleCount,
		&snapshot.DeadCount,
		&snapshot.DroppedCount,
		&snapshot.HealthScore,
		&snapshot.SuccessRate,
	); err != nil {
		return Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
	}
	snapshot.Timestamp = ts.UTC()
	return snapshot, nil
}

func normalizeKey(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
