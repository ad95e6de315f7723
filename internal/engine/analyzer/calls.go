package analyzer

import (
	"pyanalyzer/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// callCollector records callee names of calls through a bare identifier,
// including a parenthesized one such as `(f)()`.
// The walk is pre-order over every node, so an outer call is recorded before
// the calls in its arguments.
type callCollector struct {
	names []string
}

func (c *callCollector) run(ctx *parser.ExtractionContext, root *sitter.Node) {
	parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"call": c.extractCall,
	}).Walk(ctx, root)
}

func (c *callCollector) apply(res *Result) {
	res.CalledNames = append(res.CalledNames, c.names...)
}

func (c *callCollector) extractCall(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	fn := parser.Unparen(node.ChildByFieldName("function"))
	if fn != nil && fn.Kind() == "identifier" && !fn.IsMissing() {
		c.names = append(c.names, ctx.Text(fn))
	}
	return false
}
