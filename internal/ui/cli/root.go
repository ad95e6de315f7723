package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/shared/observability"

	"github.com/spf13/cobra"
)

// runtime carries the state shared by every subcommand once the root
// command's pre-run has loaded config and configured logging.
type runtime struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
	factory  analysisFactory

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the CLI against the process streams and returns the exit code.
func Execute() int {
	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rt := &runtime{
		factory: coreAnalysisFactory{},
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}

	root := &cobra.Command{
		Use:   "pyanalyzer",
		Short: "Static analysis of Python source text",
		Long: `pyanalyzer parses Python source without executing it and reports
from-import names, function signatures, call names, ellipsis usage,
import spans and syntax diagnostics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.shutdown == nil {
				return nil
			}
			return rt.shutdown(context.Background())
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&rt.configPath, "config", config.DefaultFile, "Path to config file")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newAnalyzeCommand(rt),
		newScanCommand(rt),
		newWatchCommand(rt),
		newServeCommand(rt),
		newStdioCommand(rt),
		newMCPCommand(rt),
		newHistoryCommand(rt),
		newVersionCommand(rt),
	)
	return root
}

func (rt *runtime) init(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(rt.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", rt.configPath, err)
	}
	rt.cfg = cfg
	rt.logger = configureLogging(rt.stderr, cfg.Log.Level, rt.verbose)

	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := observability.Init(ctx, observability.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		rt.logger.Warn("tracing disabled", "error", err)
	}
	rt.shutdown = shutdown
	return nil
}

// configureLogging installs a text slog handler on w. Logs go to stderr so
// stdout stays machine-readable.
func configureLogging(w io.Writer, level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}
