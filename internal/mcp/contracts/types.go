package contracts

const (
	ToolNamePythonAnalyze = "python_analyze"
	ContractVersion       = "v1"
)

type OperationID string

const (
	OperationAnalyze          OperationID = "analyze"
	OperationAnalyzeFile      OperationID = "analyze_file"
	OperationImportedNames    OperationID = "imported_names"
	OperationDefinedFunctions OperationID = "defined_functions"
	OperationCalledNames      OperationID = "called_names"
	OperationFindEllipsis     OperationID = "find_ellipsis"
	OperationHistory          OperationID = "history"
)

// Operations lists every operation in the order they are advertised.
var Operations = []OperationID{
	OperationAnalyze,
	OperationAnalyzeFile,
	OperationImportedNames,
	OperationDefinedFunctions,
	OperationCalledNames,
	OperationFindEllipsis,
	OperationHistory,
}

// SourceInput is shared by analyze and the single-fact operations.
type SourceInput struct {
	Source string `json:"source"`
}

type AnalyzeFileInput struct {
	Path string `json:"path"`
}

type HistoryInput struct {
	Path  string `json:"path"`
	Limit int    `json:"limit,omitempty"`
}

type ToolError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Location string         `json:"location,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "invalid_argument"
	ErrorNotFound        = "not_found"
	ErrorSyntax          = "syntax_error"
	ErrorRateLimited     = "rate_limited"
	ErrorInternal        = "internal"
	ErrorUnavailable     = "unavailable"
)
