package history

import (
	"fmt"
	"time"
)

type TrendPoint struct {
	RunID         string
	Timestamp     time.Time
	FunctionCount int
	EdgeCount     int
	CycleCount    int
	HealthScore   int

	DeltaFunctions int
	DeltaEdges     int
	DeltaCycles    int
	DeltaHealth    int
	Changed        bool
}

type TrendReport struct {
	ProjectKey string
	Since      time.Time
	Until      time.Time
	ScanCount  int
	Points     []TrendPoint
}

// BuildTrendReport computes run-over-run deltas. Snapshots must be ordered
// oldest first, as LoadSnapshots returns them.
func BuildTrendReport(projectKey string, snapshots []Snapshot) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots for project %s", normalizeKey(projectKey))
	}
	report := TrendReport{
		ProjectKey: normalizeKey(projectKey),
		Since:      snapshots[0].Timestamp,
		Until:      snapshots[len(snapshots)-1].Timestamp,
		ScanCount:  len(snapshots),
		Points:     make([]TrendPoint, 0, len(snapshots)),
	}
	for i, s := range snapshots {
		p := TrendPoint{
			RunID:         s.RunID,
			Timestamp:     s.Timestamp,
			FunctionCount: s.FunctionCount,
			EdgeCount:     s.EdgeCount,
			CycleCount:    s.CycleCount,
			HealthScore:   s.HealthScore,
		}
		if i > 0 {
			prev := snapshots[i-1]
			p.DeltaFunctions = s.FunctionCount - prev.FunctionCount
			p.DeltaEdges = s.EdgeCount - prev.EdgeCount
			p.DeltaCycles = s.CycleCount - prev.CycleCount
			p.DeltaHealth = s.HealthScore - prev.HealthScore
			p.Changed = s.Fingerprint != prev.Fingerprint
		}
		report.Points = append(report.Points, p)
	}
	return report, nil
}
