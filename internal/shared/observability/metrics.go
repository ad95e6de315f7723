package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyanalyzer_parsing_seconds",
		Help:    "Time spent parsing a Python source text.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyanalyzer_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyanalyzer_analyses_total",
		Help: "Total number of analyses by method and outcome.",
	}, []string{"method", "outcome"})

	DiagnosticsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyanalyzer_diagnostics_total",
		Help: "Total number of syntax diagnostics reported.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyanalyzer_cache_hits_total",
		Help: "Total number of analyses served from the result cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyanalyzer_cache_misses_total",
		Help: "Total number of analyses that missed the result cache.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyanalyzer_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyanalyzer_history_writes_total",
		Help: "Total number of history rows written, by outcome.",
	}, []string{"outcome"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyanalyzer_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter.",
	}, []string{"transport"})
)
