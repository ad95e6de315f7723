package ports

import (
	"context"

	"pyanalyzer/internal/data/history"
	"pyanalyzer/internal/engine/analyzer"
)

// HistoryStore abstracts analysis persistence for scan, watch and history
// workflows.
type HistoryStore interface {
	RecordAnalysis(path, contentHash string, res *analyzer.Result) (history.Record, error)
	ListAnalyses(path string, limit int) ([]history.Record, error)
}

// FileAnalysis is the outcome of analyzing one file.
type FileAnalysis struct {
	Path        string           `json:"path"`
	ContentHash string           `json:"content_hash,omitempty"`
	Result      *analyzer.Result `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// ScanRequest defines a scan operation request for driving adapters.
type ScanRequest struct {
	Paths []string
	// Progress, when set, is called once per analyzed file. It may be called
	// from multiple goroutines.
	Progress func(FileAnalysis)
}

// ScanResult summarizes a completed scan operation.
type ScanResult struct {
	Files                []FileAnalysis
	FilesScanned         int
	FilesWithDiagnostics int
	Warnings             []string
}

// LegacyMethod names one of the fail-fast single-fact queries.
type LegacyMethod string

const (
	LegacyImportedNames    LegacyMethod = "imported_names"
	LegacyDefinedFunctions LegacyMethod = "defined_functions"
	LegacyCalledNames      LegacyMethod = "called_names"
	LegacyFindEllipsis     LegacyMethod = "find_ellipsis"
)

// AnalysisService is the driving port shared by the CLI, HTTP, stdio and MCP
// adapters.
type AnalysisService interface {
	Analyze(ctx context.Context, source string) (*analyzer.Result, error)
	AnalyzeFile(ctx context.Context, path string) (FileAnalysis, error)
	Legacy(ctx context.Context, method LegacyMethod, source string) (any, error)
	RunScan(ctx context.Context, req ScanRequest) (ScanResult, error)
	History(ctx context.Context, path string, limit int) ([]history.Record, error)
}

// WatchService exposes watch lifecycle for driving adapters.
type WatchService interface {
	Start(ctx context.Context, paths []string) error
	Close() error
}
