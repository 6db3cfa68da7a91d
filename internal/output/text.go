package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"debtgraph/internal/engine/callgraph"
	"debtgraph/internal/engine/registry"
	"debtgraph/internal/engine/resolver"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(18)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Summary is what the text renderer shows after a build.
type Summary struct {
	Root          string
	Files         int
	ParseFailures int
	Graph         *callgraph.Graph
	Stats         resolver.Stats
	Policy        string
	Duration      time.Duration
	HealthScore   int
	RunID         string
}

func RenderSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("debtgraph") + " " + mutedStyle.Render(s.Root) + "\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	files := fmt.Sprintf("%d", s.Files)
	if s.ParseFailures > 0 {
		files += " " + warnStyle.Render(fmt.Sprintf("(%d failed)", s.ParseFailures))
	}
	row("files", files)
	row("functions", fmt.Sprintf("%d", s.Graph.NodeCount()))
	row("entry points", fmt.Sprintf("%d", len(s.Graph.EntryPoints())))
	row("tests", fmt.Sprintf("%d", len(s.Graph.TestFunctions())))
	row("edges", fmt.Sprintf("%d", s.Graph.EdgeCount()))

	cycles := len(s.Graph.Cycles())
	if cycles > 0 {
		row("cycles", errorStyle.Render(fmt.Sprintf("%d", cycles)))
	} else {
		row("cycles", okStyle.Render("0"))
	}
	row("call sites", fmt.Sprintf("%d", s.Stats.Calls))
	row("resolved", fmt.Sprintf("%d (%.1f%%)", s.Stats.Resolved(), 100*s.Stats.SuccessRate()))
	for _, strategy := range resolver.Strategies {
		if n := s.Stats.Hits[strategy]; n > 0 {
			row("  "+string(strategy), fmt.Sprintf("%d", n))
		}
	}
	row("dropped", fmt.Sprintf("%d", s.Stats.DroppedTotal()))
	for _, reason := range s.Stats.Reasons() {
		row("  "+string(reason), fmt.Sprintf("%d", s.Stats.Dropped[reason]))
	}
	if s.Policy != "" {
		row("dispatch policy", s.Policy)
	}
	row("health", healthStyle(s.HealthScore).Render(fmt.Sprintf("%d/100", s.HealthScore)))
	if s.RunID != "" {
		row("snapshot", s.RunID)
	}
	if s.Duration > 0 {
		row("duration", s.Duration.Round(time.Millisecond).String())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func healthStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return okStyle
	case score >= 50:
		return warnStyle
	default:
		return errorStyle
	}
}

// RenderFunctions prints a titled list of function IDs, one per line.
func RenderFunctions(w io.Writer, title string, ids []registry.FunctionID) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(ids))) + "\n")
	if len(ids) == 0 {
		b.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, id := range ids {
		b.WriteString("  " + id.String() + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderComponents prints each component as an arrow-joined chain.
func RenderComponents(w io.Writer, title string, comps [][]registry.FunctionID) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(comps))) + "\n")
	for i, comp := range comps {
		parts := make([]string, 0, len(comp))
		for _, id := range comp {
			parts = append(parts, id.String())
		}
		style := mutedStyle
		if len(comp) > 1 {
			style = errorStyle
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", style.Render(fmt.Sprintf("#%d", i+1)), strings.Join(parts, " -> ")))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderValidation prints the issues, warnings and health score of a report.
func RenderValidation(w io.Writer, r callgraph.ValidationReport) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("validation") + " " + healthStyle(r.HealthScore).Render(fmt.Sprintf("%d/100", r.HealthScore)) + "\n")
	b.WriteString(fmt.Sprintf("  functions %d, entry points %d, leaves %d, unreachable %d, isolated %d, recursive %d\n",
		r.Stats.TotalFunctions, r.Stats.EntryPoints, r.Stats.Leaves, r.Stats.Unreachable, r.Stats.Isolated, r.Stats.Recursive))
	for _, issue := range r.Issues {
		target := issue.Function.String()
		if issue.Function.IsZero() {
			target = fmt.Sprintf("%d", issue.Count)
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render(string(issue.Kind)), target))
	}
	for _, warning := range r.Warnings {
		target := warning.File
		if !warning.Function.IsZero() {
			target = warning.Function.String()
		}
		b.WriteString(fmt.Sprintf("  %s %s (%d)\n", warnStyle.Render(string(warning.Kind)), target, warning.Count))
	}
	if !r.HasIssues() {
		b.WriteString("  " + okStyle.Render("no issues") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
