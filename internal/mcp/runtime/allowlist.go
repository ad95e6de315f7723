package runtime

import (
	"log/slog"

	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/mcp/contracts"
	"pyanalyzer/internal/mcp/validate"
)

type OperationAllowlist struct {
	allowAll bool
	allowed  map[contracts.OperationID]bool
}

func BuildOperationAllowlist(cfg *config.Config) OperationAllowlist {
	if cfg == nil || len(cfg.MCP.OperationAllowlist) == 0 {
		return OperationAllowlist{allowAll: true}
	}

	known := make(map[contracts.OperationID]bool, len(contracts.Operations))
	for _, op := range contracts.Operations {
		known[op] = true
	}

	allowed := make(map[contracts.OperationID]bool)
	for _, entry := range cfg.MCP.OperationAllowlist {
		id := validate.NormalizeOperation(entry)
		if !known[id] {
			slog.Warn("ignoring unknown mcp operation in allowlist", "operation", entry)
			continue
		}
		allowed[id] = true
	}
	return OperationAllowlist{allowed: allowed}
}

func (o OperationAllowlist) Allows(id contracts.OperationID) bool {
	if o.allowAll {
		return true
	}
	return o.allowed[id]
}

// Enabled returns the allowed operations in advertised order.
func (o OperationAllowlist) Enabled() []string {
	out := make([]string, 0, len(contracts.Operations))
	for _, op := range contracts.Operations {
		if o.Allows(op) {
			out = append(out, string(op))
		}
	}
	return out
}
