package app

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"

	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/core/watcher"
)

// HandleChanges re-analyzes a batch of changed files. Removed files are only
// logged. onResult, when set, receives every successful analysis.
func (a *App) HandleChanges(ctx context.Context, paths []string, onResult func(ports.FileAnalysis)) {
	for _, path := range paths {
		if _, err := os.Stat(path); stderrors.Is(err, fs.ErrNotExist) {
			a.logger.Info("file removed", "path", path)
			continue
		}

		fa, err := a.AnalyzeFile(ctx, path)
		if err != nil {
			a.logger.Warn("failed to analyze changed file", "path", path, "error", err)
			continue
		}
		a.logger.Info("file analyzed",
			"path", path,
			"imports", len(fa.Result.ImportedNames),
			"functions", len(fa.Result.DefinedFunctions),
			"diagnostics", len(fa.Result.Diagnostics))
		if onResult != nil {
			onResult(fa)
		}
	}
}

type watchService struct {
	app      *App
	onResult func(ports.FileAnalysis)
	active   *watcher.Watcher
}

var _ ports.WatchService = (*watchService)(nil)

// WatchService returns a watch lifecycle bound to this app. onResult may be nil.
func (a *App) WatchService(onResult func(ports.FileAnalysis)) ports.WatchService {
	return &watchService{app: a, onResult: onResult}
}

func (s *watchService) Start(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = s.app.Config.Watch.Paths
	}
	w, err := watcher.NewWatcher(
		s.app.Config.Watch.Debounce,
		s.app.Config.Exclude.Dirs,
		s.app.Config.Exclude.Files,
		func(changed []string) {
			s.app.HandleChanges(ctx, changed, s.onResult)
		},
	)
	if err != nil {
		return err
	}
	s.active = w
	return w.Watch(paths)
}

func (s *watchService) Close() error {
	if s.active == nil {
		return nil
	}
	return s.active.Close()
}
