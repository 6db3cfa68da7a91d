package app

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"debtgraph/internal/core/config"
	"debtgraph/internal/core/errors"
	"debtgraph/internal/core/ports"
	"debtgraph/internal/core/watcher"
	"debtgraph/internal/data/history"
	"debtgraph/internal/engine/dispatch"
	"debtgraph/internal/engine/parser"
	"debtgraph/internal/engine/resolver"
)

// App owns one project configuration and runs builds for it. Builds are
// serialized; the last successful result is kept for queries and watch mode.
type App struct {
	Config *config.Config

	parser    *parser.Parser
	policy    dispatch.Policy
	dropLog   *resolver.DropLog
	logger    *slog.Logger
	openStore ports.StoreOpener
	watchers  ports.WatcherFactory

	buildMu sync.Mutex
	last    *Result
}

type Option func(*App)

// WithLogger replaces slog.Default for build summaries and dropped calls.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithWatcherFactory replaces the fsnotify watcher used by Watch.
func WithWatcherFactory(f ports.WatcherFactory) Option {
	return func(a *App) { a.watchers = f }
}

// WithStoreOpener replaces the SQLite snapshot store.
func WithStoreOpener(open ports.StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	policy, err := dispatch.ParsePolicy(cfg.Resolver.DispatchPolicy)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid resolver config")
	}

	a := &App{
		Config: cfg,
		policy: policy,
		logger: slog.Default(),
		openStore: func(path string) (ports.SnapshotStore, error) {
			return history.Open(path)
		},
		watchers: func(debounce time.Duration, dirs, files []string, onChange func([]string)) (ports.ChangeWatcher, error) {
			return watcher.NewWatcher(debounce, dirs, files, onChange)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.parser = parser.NewParser(parser.Options{
		Workers:      cfg.Analysis.Workers,
		StrictSyntax: cfg.Analysis.StrictSyntax,
		MaxFailures:  cfg.Analysis.MaxParseFailures,
	})
	a.dropLog = resolver.NewDropLog(a.logger, cfg.Diagnostics.LogDropped,
		cfg.Diagnostics.DroppedLogRate, cfg.Diagnostics.DroppedLogBurst)
	return a, nil
}

// Root is the absolute project root, or the configured value when it cannot
// be made absolute.
func (a *App) Root() string {
	root := a.Config.Analysis.Root
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// ProjectKey names the project in the snapshot store.
func (a *App) ProjectKey() string {
	return strings.ToLower(filepath.Base(a.Root()))
}

// Last returns the most recent successful build, or nil.
func (a *App) Last() *Result {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()
	return a.last
}
