package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	"pyanalyzer/internal/mcp/contracts"
	"pyanalyzer/internal/mcp/validate"
	"pyanalyzer/internal/shared/observability"
	"pyanalyzer/internal/shared/util"
	"pyanalyzer/internal/shared/version"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Dependencies struct {
	Analysis ports.AnalysisService
	Logger   *slog.Logger
}

// Server exposes the analysis service as a single MCP tool whose
// "operation" argument selects what to run.
type Server struct {
	deps      Dependencies
	toolName  string
	allowlist OperationAllowlist
	limiter   *util.Limiter
	mcp       *server.MCPServer
}

func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Analysis == nil {
		return nil, fmt.Errorf("analysis service dependency is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	toolName := strings.TrimSpace(cfg.MCP.ToolName)
	if toolName == "" {
		toolName = contracts.ToolNamePythonAnalyze
	}

	s := &Server{
		deps:      deps,
		toolName:  toolName,
		allowlist: BuildOperationAllowlist(cfg),
	}
	if cfg.MCP.RateLimit.Enabled {
		s.limiter = util.NewLimiter(float64(cfg.MCP.RateLimit.RequestsPerMinute)/60.0, cfg.MCP.RateLimit.Burst)
	}

	s.mcp = server.NewMCPServer(
		"pyanalyzer",
		version.Version,
		server.WithToolCapabilities(true),
	)
	s.Register(s.mcp)
	return s, nil
}

// Register adds the analysis tool to an existing MCP server.
func (s *Server) Register(m *server.MCPServer) {
	ops := s.allowlist.Enabled()
	tool := mcp.NewTool(
		s.toolName,
		mcp.WithDescription("Statically analyze Python source text without executing it. "+
			"Returns from-import names, function signatures, bare call names, ellipsis presence, "+
			"import spans and syntax diagnostics. Contract "+contracts.ContractVersion+"."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Enum(ops...),
			mcp.Description("What to run: "+strings.Join(ops, ", "))),
		mcp.WithString("source",
			mcp.Description("Python source text for analyze and the single-fact operations")),
		mcp.WithString("path",
			mcp.Description("File path for analyze_file and history")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum history records to return (1-500, default 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	m.AddTool(tool, s.handle)
}

// Start serves MCP over the given streams until ctx is done or in closes.
func (s *Server) Start(ctx context.Context, in io.Reader, out io.Writer) error {
	s.deps.Logger.Info("mcp server starting", "tool", s.toolName, "operations", s.allowlist.Enabled())
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := request.GetRawArguments().(map[string]any); !ok && request.GetRawArguments() != nil {
		return toolError(contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid arguments format"}), nil
	}

	if s.limiter != nil && !s.limiter.Allow(1) {
		observability.RateLimitedTotal.WithLabelValues("mcp").Inc()
		return toolError(contracts.ToolError{Code: contracts.ErrorRateLimited, Message: "rate limit exceeded"}), nil
	}

	op, input, err := validate.ParseToolArgs(request.GetArguments())
	if err != nil {
		return toolErrorFrom(err)
	}
	if !s.allowlist.Allows(op) {
		return toolError(contracts.ToolError{Code: contracts.ErrorUnavailable, Message: fmt.Sprintf("operation %s is not enabled", op)}), nil
	}

	result, err := s.dispatch(ctx, op, input)
	if err != nil {
		s.deps.Logger.Debug("mcp operation failed", "operation", op, "error", err)
		return toolErrorFrom(err)
	}
	return marshalToolResponse(result)
}

func (s *Server) dispatch(ctx context.Context, op contracts.OperationID, input any) (any, error) {
	svc := s.deps.Analysis
	switch in := input.(type) {
	case contracts.SourceInput:
		if op == contracts.OperationAnalyze {
			return svc.Analyze(ctx, in.Source)
		}
		return svc.Legacy(ctx, ports.LegacyMethod(op), in.Source)
	case contracts.AnalyzeFileInput:
		return svc.AnalyzeFile(ctx, in.Path)
	case contracts.HistoryInput:
		return svc.History(ctx, in.Path, in.Limit)
	}
	return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported operation: %s", op))
}

// toolErrorFrom turns caller-facing failures into tool results and passes
// internal failures back to the MCP server as protocol errors.
func toolErrorFrom(err error) (*mcp.CallToolResult, error) {
	var te contracts.ToolError
	if asToolError(err, &te) {
		return toolError(te), nil
	}

	de, ok := errors.AsDomain(err)
	if !ok {
		return nil, err
	}
	te = contracts.ToolError{Message: de.Message}
	if loc, ok := de.Context[errors.CtxLocation].(string); ok {
		te.Location = loc
	}
	switch de.Code {
	case errors.CodeSyntax:
		te.Code = contracts.ErrorSyntax
	case errors.CodeValidationError:
		te.Code = contracts.ErrorInvalidArgument
	case errors.CodeNotFound:
		te.Code = contracts.ErrorNotFound
	case errors.CodeNotSupported:
		te.Code = contracts.ErrorUnavailable
	case errors.CodeRateLimited:
		te.Code = contracts.ErrorRateLimited
	default:
		return nil, err
	}
	return toolError(te), nil
}

func asToolError(err error, te *contracts.ToolError) bool {
	if v, ok := err.(contracts.ToolError); ok {
		*te = v
		return true
	}
	return false
}

func toolError(te contracts.ToolError) *mcp.CallToolResult {
	data, err := json.Marshal(te)
	if err != nil {
		return mcp.NewToolResultError(te.Message)
	}
	return mcp.NewToolResultError(string(data))
}

func marshalToolResponse(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMarshal, "encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}
