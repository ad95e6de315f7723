package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	coreapp "pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/core/ports"
	mcpruntime "pyanalyzer/internal/mcp/runtime"
	"pyanalyzer/internal/shared/version"
	"pyanalyzer/internal/transport/httpapi"
	"pyanalyzer/internal/transport/stdio"
	"pyanalyzer/internal/ui/report"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
	formatText  = "text"
	formatSARIF = "sarif"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func newAnalyzeCommand(rt *runtime) *cobra.Command {
	var format string
	var strict bool

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze one Python file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			target := "-"
			if len(args) == 1 {
				target = args[0]
			}

			fa, err := analyzeTarget(cmd.Context(), a, target, rt.stdin)
			if err != nil {
				return err
			}

			if err := writeAnalysis(rt.stdout, format, fa); err != nil {
				return err
			}
			if strict && fa.Result.HasErrors() {
				return fmt.Errorf("%s: %d syntax error(s)", fa.Path, len(fa.Result.Diagnostics))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json, text or sarif")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the source has syntax errors")
	return cmd
}

func analyzeTarget(ctx context.Context, a *coreapp.App, target string, stdin io.Reader) (ports.FileAnalysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if target != "-" {
		return a.AnalyzeFile(ctx, target)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return ports.FileAnalysis{}, errors.Wrap(err, errors.CodeInternal, "read stdin")
	}
	res, err := a.Analyze(ctx, string(data))
	if err != nil {
		return ports.FileAnalysis{}, err
	}
	return ports.FileAnalysis{Path: "<stdin>", ContentHash: coreapp.ContentHash(string(data)), Result: res}, nil
}

func writeAnalysis(w io.Writer, format string, fa ports.FileAnalysis) error {
	switch format {
	case formatJSON:
		return writeJSON(w, fa.Result, true)
	case formatText:
		return report.WriteText(w, fa.Path, fa.Result)
	case formatSARIF:
		data, err := report.GenerateSARIF("", []ports.FileAnalysis{fa})
		if err != nil {
			return errors.Wrap(err, errors.CodeMarshal, "encode sarif")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return errors.New(errors.CodeValidationError, fmt.Sprintf("unknown format %q", format))
}

func newScanCommand(rt *runtime) *cobra.Command {
	var format string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Analyze every Python file under the given directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSONL && format != formatSARIF && format != formatText {
				return errors.New(errors.CodeValidationError, fmt.Sprintf("unknown format %q", format))
			}
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			paths := args
			if len(paths) == 0 {
				paths = rt.cfg.Watch.Paths
			}

			req := ports.ScanRequest{Paths: paths}
			if !noProgress {
				files, err := a.ScanDirectories(paths)
				if err != nil {
					return err
				}
				bar := newProgressBar(rt.stderr, len(files))
				req.Progress = func(ports.FileAnalysis) { _ = bar.Add(1) }
				defer func() { _ = bar.Finish() }()
			}

			result, err := a.AnalysisService().RunScan(ctx, req)
			if err != nil {
				return err
			}
			return writeScan(rt.stdout, format, paths, result)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSONL, "Output format: jsonl, text or sarif")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar")
	return cmd
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Analyzing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func writeScan(w io.Writer, format string, roots []string, result ports.ScanResult) error {
	switch format {
	case formatSARIF:
		root := ""
		if len(roots) == 1 {
			if abs, err := filepath.Abs(roots[0]); err == nil {
				root = abs
			}
		}
		data, err := report.GenerateSARIF(root, result.Files)
		if err != nil {
			return errors.Wrap(err, errors.CodeMarshal, "encode sarif")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatText:
		for _, fa := range result.Files {
			if fa.Error != "" {
				fmt.Fprintf(w, "%s\n  error: %s\n\n", fa.Path, fa.Error)
				continue
			}
			if err := report.WriteText(w, fa.Path, fa.Result); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
		_, err := fmt.Fprintf(w, "%d files, %d with syntax errors, %d warnings\n",
			result.FilesScanned, result.FilesWithDiagnostics, len(result.Warnings))
		return err
	default:
		for _, fa := range result.Files {
			if err := writeJSON(w, fa, false); err != nil {
				return err
			}
		}
		return nil
	}
}

func newWatchCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Re-analyze Python files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			var mu sync.Mutex
			ws := a.WatchService(func(fa ports.FileAnalysis) {
				mu.Lock()
				defer mu.Unlock()
				if err := writeJSON(rt.stdout, fa, false); err != nil {
					rt.logger.Warn("write watch result", "path", fa.Path, "error", err)
				}
			})
			if err := ws.Start(ctx, args); err != nil {
				return err
			}
			defer ws.Close()

			rt.logger.Info("watching for changes", "paths", args, "debounce", rt.cfg.Watch.Debounce)
			<-ctx.Done()
			return nil
		},
	}
}

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, metrics and health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			if addr == "" {
				addr = rt.cfg.Server.Address
			}
			srv, err := httpapi.NewServer(a.AnalysisService(), coreapp.NewHealthService(a), httpapi.Options{
				Address:           addr,
				RequestTimeout:    rt.cfg.Server.RequestTimeout,
				RequestsPerSecond: rt.cfg.Server.RateLimit.RequestsPerSecond,
				Burst:             rt.cfg.Server.RateLimit.Burst,
				MaxSourceBytes:    rt.cfg.Analysis.MaxSourceBytes,
			}, rt.logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.address)")
	return cmd
}

func newStdioCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Answer JSON-lines requests on stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			srv := stdio.NewServer(a.AnalysisService(), stdio.Options{
				RequestsPerSecond: rt.cfg.Server.RateLimit.RequestsPerSecond,
				Burst:             rt.cfg.Server.RateLimit.Burst,
				MaxLineBytes:      rt.cfg.Analysis.MaxSourceBytes * 2,
			}, rt.logger)
			return srv.Serve(ctx, rt.stdin, rt.stdout)
		},
	}
}

func newMCPCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tool over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			srv, err := mcpruntime.New(rt.cfg, mcpruntime.Dependencies{
				Analysis: a.AnalysisService(),
				Logger:   rt.logger,
			})
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			return srv.Start(ctx, rt.stdin, rt.stdout)
		},
	}
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "List stored analyses of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := rt.openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			path := args[0]
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			records, err := a.AnalysisService().History(ctx, path, limit)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintf(rt.stdout, "%s  %s  %s  diagnostics=%d\n",
					rec.Timestamp.Format(time.RFC3339), rec.ID, shortHash(rec.ContentHash), rec.DiagnosticCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to list")
	return cmd
}

func newVersionCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(rt.stdout, "pyanalyzer v%s\n", version.Version)
		},
	}
}

func writeJSON(w io.Writer, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeMarshal, "encode output")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
