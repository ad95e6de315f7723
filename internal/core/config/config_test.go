// # internal/core/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pyanalyzer.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "DEBUG"

[analysis]
parallel_passes = true
max_source_bytes = 1024

[cache]
enabled = false
capacity = 16
ttl = "1m"

[server]
address = "0.0.0.0:9000"

[server.rate_limit]
requests_per_second = 5
burst = 10

[history]
enabled = true
path = "history.db"

[watch]
paths = ["./src"]
debounce = "1s"

[exclude]
dirs = [".git"]
files = ["test_*.py"]

[telemetry]
otlp_endpoint = "localhost:4317"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Analysis.ParallelPasses)
	assert.Equal(t, 1024, cfg.Analysis.MaxSourceBytes)
	assert.False(t, cfg.Cache.CacheEnabled())
	assert.Equal(t, 16, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, 5.0, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.Server.RateLimit.Burst)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "history.db", cfg.History.Path)
	assert.Equal(t, []string{"./src"}, cfg.Watch.Paths)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{".git"}, cfg.Exclude.Dirs)
	assert.Equal(t, []string{"test_*.py"}, cfg.Exclude.Files)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "pyanalyzer", cfg.Telemetry.ServiceName)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4<<20, cfg.Analysis.MaxSourceBytes)
	assert.True(t, cfg.Cache.CacheEnabled())
	assert.Equal(t, 1024, cfg.Cache.Capacity)
	assert.Equal(t, "127.0.0.1:8790", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.Contains(t, cfg.Exclude.Dirs, "__pycache__")
	assert.False(t, cfg.History.Enabled)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "python_analyze", cfg.MCP.ToolName)
	assert.Equal(t, 600, cfg.MCP.RateLimit.RequestsPerMinute)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"bad version", "version = 3", "unsupported config version"},
		{"bad level", "[log]\nlevel = \"loud\"", "log.level"},
		{"bad address", "[server]\naddress = \"nohost\"", "server.address"},
		{"bad glob", "[exclude]\nfiles = [\"[abc\"]", "exclude.files"},
		{"negative capacity", "[cache]\ncapacity = -1", "cache.capacity"},
		{"negative debounce", "[watch]\ndebounce = \"-1s\"", "watch.debounce"},
		{"spaced tool name", "[mcp]\ntool_name = \"python analyze\"", "mcp.tool_name"},
		{"empty allowlist entry", "[mcp]\noperation_allowlist = [\" \"]", "mcp.operation_allowlist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[server\naddress ="))
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8790", cfg.Server.Address)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PYANALYZER_SERVER_ADDRESS", "127.0.0.1:7000")
	t.Setenv("PYANALYZER_HISTORY_ENABLED", "true")
	t.Setenv("PYANALYZER_WATCH_DEBOUNCE", "2s")
	t.Setenv("PYANALYZER_ANALYSIS_MAX_SOURCE_BYTES", "not-a-number")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 4<<20, cfg.Analysis.MaxSourceBytes)
}
