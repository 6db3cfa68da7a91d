package app

import (
	"fmt"

	"debtgraph/internal/engine/callgraph"
)

// Validate runs the structural health check with the configured thresholds.
func (a *App) Validate(res *Result) callgraph.ValidationReport {
	return res.Graph.Validate(callgraph.ValidationOptions{
		MaxCallers:  a.Config.Validation.MaxCallers,
		MaxCallees:  a.Config.Validation.MaxCallees,
		EntryPoints: a.Config.Validation.EntryPoints,
		Whitelist:   a.Config.Validation.Whitelist,
	})
}

// FingerprintHex formats a graph fingerprint the way snapshots store it.
func FingerprintHex(g *callgraph.Graph) string {
	return fmt.Sprintf("%016x", g.Fingerprint())
}
