package config

import (
	"time"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "pyanalyzer.toml"

type Config struct {
	Version   int       `toml:"version"`
	Log       Log       `toml:"log"`
	Analysis  Analysis  `toml:"analysis"`
	Cache     Cache     `toml:"cache"`
	Server    Server    `toml:"server"`
	History   History   `toml:"history"`
	Watch     Watch     `toml:"watch"`
	Exclude   Exclude   `toml:"exclude"`
	Telemetry Telemetry `toml:"telemetry"`
	MCP       MCP       `toml:"mcp"`
}

type Log struct {
	Level string `toml:"level"` // debug, info, warn, error
}

type Analysis struct {
	ParallelPasses bool `toml:"parallel_passes"`
	MaxSourceBytes int  `toml:"max_source_bytes"`
}

type Cache struct {
	Enabled  *bool         `toml:"enabled"`
	Capacity int           `toml:"capacity"`
	TTL      time.Duration `toml:"ttl"`
}

type Server struct {
	Address        string        `toml:"address"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      RateLimit     `toml:"rate_limit"`
}

type RateLimit struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Paths    []string      `toml:"paths"`
	Debounce time.Duration `toml:"debounce"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // glob patterns matched against base names
}

type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"` // empty disables export
	ServiceName  string `toml:"service_name"`
	Insecure     bool   `toml:"insecure"`
}

type MCP struct {
	ToolName string `toml:"tool_name"`
	// OperationAllowlist limits the operations the tool accepts. Empty
	// allows all of them.
	OperationAllowlist []string     `toml:"operation_allowlist"`
	RateLimit          MCPRateLimit `toml:"rate_limit"`
}

type MCPRateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

// CacheEnabled reports whether the result cache is on. It defaults to true.
func (c Cache) CacheEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
