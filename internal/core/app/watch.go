package app

import (
	"context"
)

// Watch rebuilds the graph whenever source files under the root change and
// hands every outcome to onBuild. It blocks until ctx is done.
func (a *App) Watch(ctx context.Context, onBuild func(*Result, error)) error {
	w, err := a.watchers(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			a.logger.Info("detected changes", "count", len(paths))
			onBuild(a.Build(ctx))
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{a.Root()}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
