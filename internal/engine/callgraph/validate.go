// # internal/engine/callgraph/validate.go
package callgraph

import (
	"strings"

	"debtgraph/internal/engine/registry"
)

type IssueKind string

const (
	IssueDangling    IssueKind = "dangling_edges"
	IssueDuplicate   IssueKind = "duplicate_node"
	IssueUnreachable IssueKind = "unreachable_function"
	IssueIsolated    IssueKind = "isolated_function"
)

type WarningKind string

const (
	WarningTooManyCallers WarningKind = "too_many_callers"
	WarningTooManyCallees WarningKind = "too_many_callees"
	WarningFileNoCalls    WarningKind = "file_with_no_calls"
)

type Issue struct {
	Kind     IssueKind
	Function registry.FunctionID
	Count    int
}

type Warning struct {
	Kind     WarningKind
	Function registry.FunctionID
	File     string
	Count    int
}

type ValidationStats struct {
	TotalFunctions int
	EntryPoints    int
	Leaves         int
	Unreachable    int
	Isolated       int
	Recursive      int
}

// ValidationReport is the structural health check of a frozen graph.
type ValidationReport struct {
	Issues      []Issue
	Warnings    []Warning
	Recursive   []registry.FunctionID
	Stats       ValidationStats
	HealthScore int
}

func (r ValidationReport) HasIssues() bool {
	return len(r.Issues) > 0 || len(r.Warnings) > 0
}

// ValidationOptions tunes the heuristics. Zero thresholds fall back to 50.
type ValidationOptions struct {
	MaxCallers int
	MaxCallees int
	// EntryPoints and Whitelist match function names or full paths.
	EntryPoints []string
	Whitelist   []string
}

const defaultFanThreshold = 50

// constructorNames are expected to be called from outside the analyzed code.
var constructorNames = map[string]bool{
	"new": true, "default": true, "builder": true, "create": true,
	"from": true, "try_from": true, "fmt": true, "drop": true,
}

// Validate inspects g for dangling edges, duplicates, unreachable and isolated
// functions and fan-in/fan-out outliers, and scores the result from 0 to 100.
func (g *Graph) Validate(opts ValidationOptions) ValidationReport {
	if opts.MaxCallers <= 0 {
		opts.MaxCallers = defaultFanThreshold
	}
	if opts.MaxCallees <= 0 {
		opts.MaxCallees = defaultFanThreshold
	}
	entry := nameSet(opts.EntryPoints)
	white := nameSet(opts.Whitelist)

	var report ValidationReport
	if g.dangling > 0 {
		report.Issues = append(report.Issues, Issue{Kind: IssueDangling, Count: g.dangling})
	}

	for i, id := range g.nodes {
		def, _ := g.reg.Lookup(id)
		report.Stats.TotalFunctions++

		if id.Disambiguator == 1 {
			report.Issues = append(report.Issues, Issue{
				Kind:     IssueDuplicate,
				Function: id,
				Count:    len(g.reg.ByPath(id.Path)),
			})
		}

		isEntry := g.expectedRoot(def, entry)
		if isEntry {
			report.Stats.EntryPoints++
		}
		recursive := g.hasSelfLoop(i)
		if recursive {
			report.Stats.Recursive++
			report.Recursive = append(report.Recursive, id)
		}

		hasCallers := g.externalCallers(i) > 0
		hasCallees := len(g.out[i]) > 0 && !(recursive && len(g.out[i]) == 1)
		whitelisted := white[id.Name()] || white[id.Path]

		switch {
		case hasCallers && !hasCallees:
			report.Stats.Leaves++
		case recursive || isEntry:
		case !hasCallers && !hasCallees:
			report.Stats.Isolated++
			if !whitelisted {
				report.Issues = append(report.Issues, Issue{Kind: IssueIsolated, Function: id})
			}
		case !hasCallers:
			report.Stats.Unreachable++
			if !whitelisted {
				report.Issues = append(report.Issues, Issue{Kind: IssueUnreachable, Function: id})
			}
		}

		if n := len(g.in[i]); n > opts.MaxCallers {
			report.Warnings = append(report.Warnings, Warning{Kind: WarningTooManyCallers, Function: id, Count: n})
		}
		if n := len(g.out[i]); n > opts.MaxCallees {
			report.Warnings = append(report.Warnings, Warning{Kind: WarningTooManyCallees, Function: id, Count: n})
		}
	}

	report.Warnings = append(report.Warnings, g.filesWithoutCalls(entry)...)
	report.HealthScore = healthScore(report)
	return report
}

// expectedRoot reports functions that legitimately have no callers in the
// analyzed code.
func (g *Graph) expectedRoot(def registry.Definition, extra map[string]bool) bool {
	switch {
	case def.IsEntryPoint || def.IsTest:
		return true
	case extra[def.Name] || extra[def.ID.Path]:
		return true
	case def.Trait != "":
		return true
	case constructorNames[def.Name] || strings.HasPrefix(def.Name, "with_"):
		return true
	}
	file := "/" + def.ID.File
	return strings.Contains(file, "/examples/") || strings.Contains(file, "/benches/")
}

// filesWithoutCalls flags files of three or more functions where nothing is
// ever called and no entry point lives.
func (g *Graph) filesWithoutCalls(entry map[string]bool) []Warning {
	var out []Warning
	for _, file := range g.reg.Files() {
		ids := g.reg.InFile(file)
		if len(ids) < 3 {
			continue
		}
		silent := true
		for _, id := range ids {
			def, _ := g.reg.Lookup(id)
			if g.FanIn(id) > 0 || def.IsEntryPoint || def.IsTest || entry[def.Name] {
				silent = false
				break
			}
		}
		if silent {
			out = append(out, Warning{Kind: WarningFileNoCalls, File: file, Count: len(ids)})
		}
	}
	return out
}

func healthScore(r ValidationReport) int {
	penalty := 0
	isolated := 0
	for _, issue := range r.Issues {
		switch issue.Kind {
		case IssueDangling:
			penalty += 10 * issue.Count
		case IssueDuplicate:
			penalty += 5
		case IssueUnreachable:
			penalty++
		case IssueIsolated:
			isolated++
		}
	}
	penalty += isolated / 2
	penalty += 2 * len(r.Warnings)
	if penalty >= 100 {
		return 0
	}
	return 100 - penalty
}

func nameSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
