package history

import (
	"encoding/json"
	"fmt"

	"pyanalyzer/internal/engine/analyzer"
)

// Adapter bridges Store to the core HistoryStore port.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

func (a *Adapter) RecordAnalysis(path, contentHash string, res *analyzer.Result) (Record, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return Record{}, fmt.Errorf("encode analysis result: %w", err)
	}
	diagnostics := 0
	if res != nil {
		diagnostics = len(res.Diagnostics)
	}
	return a.store.Save(Record{
		Path:            path,
		ContentHash:     contentHash,
		DiagnosticCount: diagnostics,
		Result:          payload,
	})
}

func (a *Adapter) ListAnalyses(path string, limit int) ([]Record, error) {
	return a.store.ListByPath(path, limit)
}

func (a *Adapter) Close() error {
	return a.store.Close()
}
