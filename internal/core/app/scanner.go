package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"

	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/shared/observability"
	"pyanalyzer/internal/shared/util"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ScanDirectories lists the Python files under paths, skipping excluded
// directories and files. The result is sorted and free of duplicates.
func (a *App) ScanDirectories(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "scan root not found"), errors.CtxPath, root)
			}
			return nil, err
		}
		if !info.IsDir() {
			if util.IsPythonFile(root) && !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && matchesAny(a.excludeDirs, base) {
					return filepath.SkipDir
				}
				return nil
			}

			if !util.IsPythonFile(base) || matchesAny(a.excludeFiles, base) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []glob.Glob, name string) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// AnalyzeFile reads and analyzes one file, recording it in history when
// enabled.
func (a *App) AnalyzeFile(ctx context.Context, path string) (ports.FileAnalysis, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.AnalyzeFile",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	content, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if stderrors.Is(err, fs.ErrNotExist) {
			code = errors.CodeNotFound
		}
		return ports.FileAnalysis{Path: path}, errors.AddContext(errors.Wrap(err, code, "read source file"), errors.CtxPath, path)
	}

	source := string(content)
	res, err := a.Analyze(ctx, source)
	if err != nil {
		return ports.FileAnalysis{Path: path}, errors.AddContext(err, errors.CtxPath, path)
	}

	fa := ports.FileAnalysis{Path: path, ContentHash: ContentHash(source), Result: res}
	a.recordHistory(fa)
	return fa, nil
}

func (a *App) recordHistory(fa ports.FileAnalysis) {
	if a.history == nil || fa.Result == nil {
		return
	}
	if _, err := a.history.RecordAnalysis(historyKey(fa.Path), fa.ContentHash, fa.Result); err != nil {
		observability.HistoryWritesTotal.WithLabelValues("error").Inc()
		a.logger.Warn("failed to record analysis history", "path", fa.Path, "error", err)
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("ok").Inc()
}

// historyKey stores and looks up files by absolute path so relative and
// absolute spellings share one history.
func historyKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// RunScan analyzes every Python file under req.Paths with bounded
// concurrency. Per-file failures become warnings; Files keeps path order.
func (a *App) RunScan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.RunScan")
	defer span.End()

	paths := req.Paths
	if len(paths) == 0 {
		paths = a.Config.Watch.Paths
	}
	files, err := a.ScanDirectories(paths)
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}
	span.SetAttributes(attribute.Int("files", len(files)))

	results := make([]ports.FileAnalysis, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("scan worker panicked", "path", path, "panic", r, "stack", string(debug.Stack()))
					results[i] = ports.FileAnalysis{Path: path, Error: fmt.Sprintf("panic: %v", r)}
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			fa, err := a.AnalyzeFile(gctx, path)
			if err != nil {
				fa.Error = err.Error()
			}
			results[i] = fa
			if req.Progress != nil {
				req.Progress(fa)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.ScanResult{}, err
	}

	out := ports.ScanResult{Files: results, FilesScanned: len(files), Warnings: make([]string, 0)}
	for _, fa := range results {
		if fa.Error != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("analyze %s: %s", fa.Path, fa.Error))
			continue
		}
		if fa.Result.HasErrors() {
			out.FilesWithDiagnostics++
		}
	}
	a.logger.Info("scan complete",
		slog.Int("files", out.FilesScanned),
		slog.Int("with_diagnostics", out.FilesWithDiagnostics),
		slog.Int("warnings", len(out.Warnings)))
	return out, nil
}
