package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"pyanalyzer/internal/mcp/contracts"
)

const (
	maxLimitValue     = 500
	defaultLimitValue = 20
)

// ParseToolArgs resolves the operation named in raw and decodes the rest of
// raw into that operation's input type.
func ParseToolArgs(raw map[string]any) (contracts.OperationID, any, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	operationRaw, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(operationRaw) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "operation is required"}
	}
	operation := NormalizeOperation(operationRaw)

	switch operation {
	case contracts.OperationAnalyze,
		contracts.OperationImportedNames,
		contracts.OperationDefinedFunctions,
		contracts.OperationCalledNames,
		contracts.OperationFindEllipsis:
		if _, ok := raw["source"].(string); !ok {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "source is required and must be a string"}
		}
		var input contracts.SourceInput
		if err := decodeParams(raw, &input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationAnalyzeFile:
		var input contracts.AnalyzeFileInput
		if err := decodeParams(raw, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		if input.Path == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path is required"}
		}
		return operation, input, nil
	case contracts.OperationHistory:
		var input contracts.HistoryInput
		if err := decodeParams(raw, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		if input.Path == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path is required"}
		}
		if input.Limit < 0 || input.Limit > maxLimitValue {
			return "", nil, invalidLimitError("limit")
		}
		if input.Limit == 0 {
			input.Limit = defaultLimitValue
		}
		return operation, input, nil
	default:
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operationRaw)}
	}
}

// NormalizeOperation maps accepted spellings onto an OperationID. Unknown
// names are returned lower-cased and unmatched.
func NormalizeOperation(raw string) contracts.OperationID {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch value {
	case "analyse":
		return contracts.OperationAnalyze
	case "ellipsis", "has_ellipsis":
		return contracts.OperationFindEllipsis
	case "imports":
		return contracts.OperationImportedNames
	case "functions":
		return contracts.OperationDefinedFunctions
	case "calls":
		return contracts.OperationCalledNames
	}
	return contracts.OperationID(value)
}

// decodeParams round-trips raw through JSON so numbers and strings land in
// typed fields. Unrelated keys such as operation are ignored.
func decodeParams(raw map[string]any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid arguments encoding"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid arguments", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func invalidLimitError(field string) error {
	return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("%s is out of range", field)}
}
