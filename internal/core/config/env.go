package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYANALYZER_[SECTION]_[KEY] (e.g., PYANALYZER_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Log.Level, "PYANALYZER_LOG_LEVEL")

	// Analysis
	setEnvBool(&cfg.Analysis.ParallelPasses, "PYANALYZER_ANALYSIS_PARALLEL_PASSES")
	setEnvInt(&cfg.Analysis.MaxSourceBytes, "PYANALYZER_ANALYSIS_MAX_SOURCE_BYTES")

	// Server
	setEnvString(&cfg.Server.Address, "PYANALYZER_SERVER_ADDRESS")
	setEnvDuration(&cfg.Server.RequestTimeout, "PYANALYZER_SERVER_REQUEST_TIMEOUT")
	setEnvFloat64(&cfg.Server.RateLimit.RequestsPerSecond, "PYANALYZER_SERVER_RATE_LIMIT_RPS")

	// History
	setEnvBool(&cfg.History.Enabled, "PYANALYZER_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "PYANALYZER_HISTORY_PATH")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "PYANALYZER_WATCH_DEBOUNCE")

	// Telemetry
	setEnvString(&cfg.Telemetry.OTLPEndpoint, "PYANALYZER_TELEMETRY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
