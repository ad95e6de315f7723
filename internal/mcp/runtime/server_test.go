package runtime

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/mcp/contracts"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	s, err := New(cfg, Dependencies{Analysis: a.AnalysisService()})
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := s.handle(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: contracts.ToolNamePythonAnalyze, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return tc.Text
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, Dependencies{})
	assert.Error(t, err)
	_, err = New(config.Default(), Dependencies{})
	assert.Error(t, err)
}

func TestHandle_Analyze(t *testing.T) {
	s := newTestServer(t, nil)
	result := call(t, s, map[string]any{
		"operation": "analyze",
		"source":    "from mod import a, b\nfrom mod2 import c",
	})
	assert.False(t, result.IsError)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &decoded))
	assert.Equal(t, []any{[]any{0.0, 20.0}, []any{21.0, 39.0}}, decoded["import_ranges"])
	assert.Len(t, decoded["imported_names"], 3)
}

func TestHandle_SingleFacts(t *testing.T) {
	s := newTestServer(t, nil)

	result := call(t, s, map[string]any{"operation": "called_names", "source": "f(g())"})
	assert.False(t, result.IsError)
	assert.JSONEq(t, `["f","g"]`, text(t, result))

	result = call(t, s, map[string]any{"operation": "find_ellipsis", "source": "def f(): ..."})
	assert.False(t, result.IsError)
	assert.Equal(t, "true", text(t, result))
}

func TestHandle_SyntaxError(t *testing.T) {
	s := newTestServer(t, nil)
	result := call(t, s, map[string]any{"operation": "imported_names", "source": "from mod import a, b,\n\n1+"})
	require.True(t, result.IsError)

	var te contracts.ToolError
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &te))
	assert.Equal(t, contracts.ErrorSyntax, te.Code)
	assert.Equal(t, "Trailing comma not allowed", te.Message)
	assert.Equal(t, "20..21", te.Location)
}

func TestHandle_AnalyzeFile(t *testing.T) {
	s := newTestServer(t, nil)
	path := filepath.Join(t.TempDir(), "m.py")
	require.NoError(t, os.WriteFile(path, []byte("def f(x): pass\n"), 0o644))

	result := call(t, s, map[string]any{"operation": "analyze_file", "path": path})
	assert.False(t, result.IsError)
	assert.Contains(t, text(t, result), `"name":"f"`)

	result = call(t, s, map[string]any{"operation": "analyze_file", "path": filepath.Join(t.TempDir(), "missing.py")})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), contracts.ErrorNotFound)
}

func TestHandle_HistoryDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	result := call(t, s, map[string]any{"operation": "history", "path": "a.py"})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), contracts.ErrorUnavailable)
}

func TestHandle_InvalidArguments(t *testing.T) {
	s := newTestServer(t, nil)

	result := call(t, s, map[string]any{"source": "x"})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), "operation is required")

	result = call(t, s, map[string]any{"operation": "analyze"})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), "source is required")
}

func TestHandle_Allowlist(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.MCP.OperationAllowlist = []string{"analyze"}
	})

	result := call(t, s, map[string]any{"operation": "called_names", "source": "f()"})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), "not enabled")

	result = call(t, s, map[string]any{"operation": "analyze", "source": "f()"})
	assert.False(t, result.IsError)
}

func TestHandle_RateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.MCP.RateLimit = config.MCPRateLimit{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})

	result := call(t, s, map[string]any{"operation": "analyze", "source": ""})
	assert.False(t, result.IsError)

	result = call(t, s, map[string]any{"operation": "analyze", "source": ""})
	require.True(t, result.IsError)
	assert.Contains(t, text(t, result), contracts.ErrorRateLimited)
}
