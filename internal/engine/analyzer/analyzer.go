// # internal/engine/analyzer/analyzer.go
package analyzer

import (
	"fmt"
	"log/slog"

	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// pass is one independent extraction over the shared tree. Each pass owns
// its accumulator and only reads the tree.
type pass interface {
	run(ctx *parser.ExtractionContext, root *sitter.Node)
	apply(res *Result)
}

type namedPass struct {
	name string
	pass pass
}

func newPasses() []namedPass {
	return []namedPass{
		{name: "imports", pass: &importCollector{}},
		{name: "functions", pass: &functionCollector{}},
		{name: "calls", pass: &callCollector{}},
		{name: "ellipsis", pass: &ellipsisFinder{}},
	}
}

// Analyzer runs the extraction passes over one parsed source.
type Analyzer struct {
	parallel bool
	logger   *slog.Logger
}

type Option func(*Analyzer)

// WithParallelPasses runs the passes concurrently, each on its own tree
// clone. Output is identical to the sequential mode.
func WithParallelPasses(enabled bool) Option {
	return func(a *Analyzer) {
		a.parallel = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// Analyze extracts every fact from source with the default sequential
// analyzer. It never fails; syntax problems are reported in Diagnostics.
func Analyze(source string) *Result {
	return defaultAnalyzer.Analyze(source)
}

func (a *Analyzer) Analyze(source string) *Result {
	parsed := parser.Parse([]byte(source))
	defer parsed.Close()

	res := newResult()
	res.Diagnostics = convertDiagnostics(parsed.Diagnostics)

	passes := newPasses()
	var errs []error
	if a.parallel && parsed.Tree != nil {
		errs = a.runParallel(parsed, passes)
	} else {
		errs = a.runSequential(parsed, passes)
	}

	for i, p := range passes {
		if errs[i] != nil {
			a.logger.Warn("extraction pass failed", "pass", p.name, "error", errs[i])
			continue
		}
		p.pass.apply(res)
	}
	return res
}

func (a *Analyzer) runSequential(parsed *parser.Parsed, passes []namedPass) []error {
	ctx := parser.NewExtractionContext(parsed.Source)
	root := parsed.Root()
	errs := make([]error, len(passes))
	for i, p := range passes {
		errs[i] = runPass(p, ctx, root)
	}
	return errs
}

func (a *Analyzer) runParallel(parsed *parser.Parsed, passes []namedPass) []error {
	errs := make([]error, len(passes))
	var g errgroup.Group
	for i, p := range passes {
		tree := parsed.Tree.Clone()
		g.Go(func() error {
			defer tree.Close()
			errs[i] = runPass(p, parser.NewExtractionContext(parsed.Source), tree.RootNode())
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// runPass isolates a pass so a crash in one extractor only costs its own
// facts.
func runPass(p namedPass, ctx *parser.ExtractionContext, root *sitter.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AddContext(
				errors.New(errors.CodeInternal, fmt.Sprintf("pass panicked: %v", r)),
				errors.CtxOperation, p.name,
			)
		}
	}()
	p.pass.run(ctx, root)
	return nil
}

func convertDiagnostics(diags []parser.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, Diagnostic{
			Message: d.Message,
			Span:    Span{Start: d.Start, End: d.End},
		})
	}
	return out
}
