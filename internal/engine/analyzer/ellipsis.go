package analyzer

import (
	"pyanalyzer/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ellipsisFinder flags any `...` literal. The walk stops once one is found.
type ellipsisFinder struct {
	found bool
}

func (f *ellipsisFinder) run(ctx *parser.ExtractionContext, root *sitter.Node) {
	parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"ellipsis": func(*parser.ExtractionContext, *sitter.Node) bool {
			f.found = true
			return true
		},
	}, parser.WithDescend(func(*sitter.Node) bool { return !f.found })).Walk(ctx, root)
}

func (f *ellipsisFinder) apply(res *Result) {
	res.HasEllipsis = res.HasEllipsis || f.found
}
