package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateLog,
		validateAnalysis,
		validateCache,
		validateServer,
		validateHistory,
		validateWatch,
		validateExclude,
		validateMCP,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.MaxSourceBytes < 0 {
		return fmt.Errorf("analysis.max_source_bytes must be >= 0, got %d", cfg.Analysis.MaxSourceBytes)
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must be >= 0, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0, got %s", cfg.Cache.TTL)
	}
	return nil
}

func validateServer(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.Address); err != nil {
		return fmt.Errorf("server.address %q is not host:port: %w", cfg.Server.Address, err)
	}
	if cfg.Server.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be >= 0")
	}
	if cfg.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit.burst must be >= 0")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	for i, p := range cfg.Watch.Paths {
		if p == "" {
			return fmt.Errorf("watch.paths[%d] must not be empty", i)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q is invalid: %w", pattern, err)
		}
	}
	return nil
}

func validateMCP(cfg *Config) error {
	if strings.ContainsAny(cfg.MCP.ToolName, " \t\n") {
		return fmt.Errorf("mcp.tool_name %q must not contain whitespace", cfg.MCP.ToolName)
	}
	for _, op := range cfg.MCP.OperationAllowlist {
		if strings.TrimSpace(op) == "" {
			return fmt.Errorf("mcp.operation_allowlist contains an empty entry")
		}
	}
	if cfg.MCP.RateLimit.RequestsPerMinute < 0 || cfg.MCP.RateLimit.Burst < 0 {
		return fmt.Errorf("mcp.rate_limit values must be >= 0")
	}
	return nil
}
