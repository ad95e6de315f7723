package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/data/history"
	"pyanalyzer/internal/engine/analyzer"
	"pyanalyzer/internal/shared/observability"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type App struct {
	Config *config.Config

	analyzer *analyzer.Analyzer
	cache    *resultCache
	history  ports.HistoryStore
	closers  []func() error
	logger   *slog.Logger

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

type Option func(*App)

// WithHistory overrides the history store opened from config.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) {
		a.history = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	excludeDirs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		logger:       slog.Default(),
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.analyzer = analyzer.New(
		analyzer.WithParallelPasses(cfg.Analysis.ParallelPasses),
		analyzer.WithLogger(a.logger),
	)

	if cfg.Cache.CacheEnabled() && cfg.Cache.Capacity > 0 {
		cache, err := newResultCache(cfg.Cache.Capacity, cfg.Cache.TTL)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "create result cache")
		}
		a.cache = cache
		a.closers = append(a.closers, func() error { cache.Close(); return nil })
	}

	if a.history == nil && cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
		if err != nil {
			a.close()
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "open history store"),
				errors.CtxPath, cfg.History.Path,
			)
		}
		a.history = history.NewAdapter(store)
		a.closers = append(a.closers, store.Close)
	}

	return a, nil
}

// Close releases the cache and history store.
func (a *App) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.close()
}

func (a *App) close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) HistoryEnabled() bool {
	return a.history != nil
}

// Analyze validates and analyzes source. Results may be shared through the
// cache and must be treated as read-only.
func (a *App) Analyze(ctx context.Context, source string) (*analyzer.Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Analyze",
		trace.WithAttributes(attribute.Int("source.bytes", len(source))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.validateSource(source); err != nil {
		observability.AnalysesTotal.WithLabelValues("analyze", "rejected").Inc()
		return nil, err
	}

	key := ContentHash(source)
	if a.cache != nil {
		if res, ok := a.cache.Get(key); ok {
			observability.CacheHitsTotal.Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			observability.AnalysesTotal.WithLabelValues("analyze", outcome(res)).Inc()
			return res, nil
		}
		observability.CacheMissesTotal.Inc()
	}

	started := time.Now()
	res := a.analyzer.Analyze(source)
	observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(started).Seconds())
	observability.DiagnosticsTotal.Add(float64(len(res.Diagnostics)))
	observability.AnalysesTotal.WithLabelValues("analyze", outcome(res)).Inc()
	span.SetAttributes(attribute.Int("diagnostics", len(res.Diagnostics)))

	if a.cache != nil {
		a.cache.Set(key, res)
	}
	return res, nil
}

// Legacy runs one fail-fast query. Syntax problems surface as CodeSyntax.
func (a *App) Legacy(ctx context.Context, method ports.LegacyMethod, source string) (any, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Legacy",
		trace.WithAttributes(attribute.String("method", string(method))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.validateSource(source); err != nil {
		return nil, err
	}

	started := time.Now()
	var (
		value any
		err   error
	)
	switch method {
	case ports.LegacyImportedNames:
		value, err = analyzer.ImportedNames(source)
	case ports.LegacyDefinedFunctions:
		value, err = analyzer.DefinedFunctions(source)
	case ports.LegacyCalledNames:
		value, err = analyzer.CalledNames(source)
	case ports.LegacyFindEllipsis:
		value, err = analyzer.FindEllipsis(source)
	default:
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown method %q", method)),
			errors.CtxOperation, "legacy",
		)
	}
	observability.AnalysisDuration.WithLabelValues(string(method)).Observe(time.Since(started).Seconds())

	if err != nil {
		observability.AnalysesTotal.WithLabelValues(string(method), "syntax_error").Inc()
		return nil, err
	}
	observability.AnalysesTotal.WithLabelValues(string(method), "ok").Inc()
	return value, nil
}

func (a *App) validateSource(source string) error {
	limit := a.Config.Analysis.MaxSourceBytes
	if limit > 0 && len(source) > limit {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("source is %d bytes, limit is %d", len(source), limit))
	}
	return nil
}

// ContentHash is the hex SHA-256 of source, used as cache and history key.
func ContentHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

func outcome(res *analyzer.Result) string {
	if res.HasErrors() {
		return "diagnostics"
	}
	return "ok"
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}
