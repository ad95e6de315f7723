package analyzer

import (
	"pyanalyzer/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// importCollector gathers from-import names and statement spans. It walks
// statements only, at every depth.
type importCollector struct {
	names []QualifiedName
	spans []Span
}

func (c *importCollector) engine() *parser.ExtractorEngine {
	return parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"import_from_statement": c.extractFromImport,
	}, parser.StatementsOnly())
}

func (c *importCollector) run(ctx *parser.ExtractionContext, root *sitter.Node) {
	c.engine().Walk(ctx, root)
}

func (c *importCollector) apply(res *Result) {
	res.ImportedNames = append(res.ImportedNames, c.names...)
	res.ImportSpans = append(res.ImportSpans, c.spans...)
}

func (c *importCollector) extractFromImport(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	module, ok := importModule(ctx, node.ChildByFieldName("module_name"))
	if !ok {
		return true
	}

	afterKeyword := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !afterKeyword {
			afterKeyword = child.Kind() == "import"
			continue
		}

		switch child.Kind() {
		case "dotted_name":
			c.names = append(c.names, QualifiedName{Module: module, Name: ctx.DottedText(child)})
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				c.names = append(c.names, QualifiedName{Module: module, Name: ctx.DottedText(name)})
			}
		case "wildcard_import":
			c.names = append(c.names, QualifiedName{Module: module, Name: "*"})
		}
	}

	c.spans = append(c.spans, Span{Start: uint32(node.StartByte()), End: uint32(node.EndByte())})
	return true
}

// importModule returns the module path as written, without relative-import
// dots. `from . import x` has no module and reports false.
func importModule(ctx *parser.ExtractionContext, node *sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "dotted_name":
		return ctx.DottedText(node), true
	case "relative_import":
		if dotted := parser.FirstNamedChild(node, "dotted_name"); dotted != nil {
			return ctx.DottedText(dotted), true
		}
	}
	return "", false
}
