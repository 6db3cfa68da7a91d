package app

import (
	"debtgraph/internal/core/discovery"
	"debtgraph/internal/core/ports"
)

var _ ports.FileSource = (*App)(nil)

// Discover lists the project's source files with the configured excludes.
func (a *App) Discover(root string) ([]string, error) {
	return discovery.Discover(root, discovery.Options{
		Extensions:   a.Config.Analysis.Extensions,
		ExcludeDirs:  a.Config.Exclude.Dirs,
		ExcludeFiles: a.Config.Exclude.Files,
	})
}
