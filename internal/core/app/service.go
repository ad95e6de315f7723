package app

import (
	"context"

	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/data/history"
	"pyanalyzer/internal/engine/analyzer"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}

func (s *analysisService) Unwrap() *App {
	return s.app
}

func (s *analysisService) Analyze(ctx context.Context, source string) (*analyzer.Result, error) {
	return s.app.Analyze(ctx, source)
}

func (s *analysisService) AnalyzeFile(ctx context.Context, path string) (ports.FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return ports.FileAnalysis{}, err
	}
	return s.app.AnalyzeFile(ctx, path)
}

func (s *analysisService) Legacy(ctx context.Context, method ports.LegacyMethod, source string) (any, error) {
	return s.app.Legacy(ctx, method, source)
}

func (s *analysisService) RunScan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}
	return s.app.RunScan(ctx, req)
}

func (s *analysisService) History(ctx context.Context, path string, limit int) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "history is disabled; set [history] enabled = true")
	}
	records, err := s.app.history.ListAnalyses(historyKey(path), limit)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "list history"), errors.CtxPath, path)
	}
	return records, nil
}
