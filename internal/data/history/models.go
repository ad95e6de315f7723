package history

import (
	"encoding/json"
	"time"
)

const SchemaVersion = 1

// Record is one stored analysis of a file at a point in time.
type Record struct {
	ID              string          `json:"id"`
	Path            string          `json:"path"`
	ContentHash     string          `json:"content_hash"`
	Timestamp       time.Time       `json:"timestamp"`
	DiagnosticCount int             `json:"diagnostic_count"`
	Result          json.RawMessage `json:"result"`
}
