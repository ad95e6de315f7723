package analyzer

import (
	"pyanalyzer/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// functionCollector builds one signature per function definition, nested
// definitions included, in source order.
type functionCollector struct {
	functions []FunctionSignature
}

func (c *functionCollector) run(ctx *parser.ExtractionContext, root *sitter.Node) {
	parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"function_definition": c.extractFunction,
	}, parser.StatementsOnly()).Walk(ctx, root)
}

func (c *functionCollector) apply(res *Result) {
	res.DefinedFunctions = append(res.DefinedFunctions, c.functions...)
}

func (c *functionCollector) extractFunction(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil || name.IsMissing() {
		return false
	}

	c.functions = append(c.functions, FunctionSignature{
		Name:       ctx.Text(name),
		Parameters: extractParameters(ctx, node.ChildByFieldName("parameters")),
		ReturnType: ctx.Text(node.ChildByFieldName("return_type")),
		Docstring:  extractDocstring(ctx, node.ChildByFieldName("body")),
	})
	return false
}

// extractParameters orders parameters as positional, then the variadic
// parameter, then keyword-only. `**kwargs` belongs to none of these groups.
func extractParameters(ctx *parser.ExtractionContext, params *sitter.Node) []Parameter {
	var positional, keywordOnly []Parameter
	var variadic *Parameter

	if params != nil {
		afterStar := false
		for i := uint(0); i < params.NamedChildCount(); i++ {
			child := params.NamedChild(i)
			if child.IsExtra() {
				continue
			}

			switch child.Kind() {
			case "keyword_separator":
				afterStar = true
				continue
			case "list_splat_pattern":
				afterStar = true
				if variadic == nil {
					variadic = &Parameter{Name: splatName(ctx, child), Variadic: true}
				}
				continue
			case "typed_parameter":
				if splat := parser.FirstNamedChild(child, "list_splat_pattern"); splat != nil {
					afterStar = true
					if variadic == nil {
						variadic = &Parameter{
							Name:     splatName(ctx, splat),
							TypeText: ctx.Text(child.ChildByFieldName("type")),
							Variadic: true,
						}
					}
					continue
				}
			}

			param, ok := regularParameter(ctx, child)
			if !ok {
				continue
			}
			if afterStar {
				keywordOnly = append(keywordOnly, param)
			} else {
				positional = append(positional, param)
			}
		}
	}

	out := make([]Parameter, 0, len(positional)+len(keywordOnly)+1)
	out = append(out, positional...)
	if variadic != nil {
		out = append(out, *variadic)
	}
	return append(out, keywordOnly...)
}

// regularParameter handles every non-splat parameter shape. Separators,
// `**kwargs` and tuple parameters report false.
func regularParameter(ctx *parser.ExtractionContext, node *sitter.Node) (Parameter, bool) {
	switch node.Kind() {
	case "identifier":
		return Parameter{Name: ctx.Text(node)}, true
	case "typed_parameter":
		name := parser.FirstNamedChild(node, "identifier")
		if name == nil {
			return Parameter{}, false
		}
		return Parameter{Name: ctx.Text(name), TypeText: ctx.Text(node.ChildByFieldName("type"))}, true
	case "default_parameter", "typed_default_parameter":
		name := node.ChildByFieldName("name")
		if name == nil || name.Kind() != "identifier" {
			return Parameter{}, false
		}
		param := Parameter{Name: ctx.Text(name), TypeText: ctx.Text(node.ChildByFieldName("type"))}
		if value := node.ChildByFieldName("value"); value != nil && !value.IsMissing() {
			text := ctx.Text(value)
			param.Default = &text
		}
		return param, true
	}
	return Parameter{}, false
}

func splatName(ctx *parser.ExtractionContext, splat *sitter.Node) string {
	return ctx.Text(parser.FirstNamedChild(splat, "identifier"))
}

// extractDocstring looks only at the first statement of the body. It is a
// docstring only when that statement is a bare plain string literal.
func extractDocstring(ctx *parser.ExtractionContext, body *sitter.Node) string {
	first := parser.FirstNamedChild(body)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	// `"doc",` is a one-element tuple.
	if parser.NonExtraChildCount(first) != 1 {
		return ""
	}
	value, ok := ctx.StringLiteralValue(parser.Unparen(parser.FirstNamedChild(first)))
	if !ok {
		return ""
	}
	return value
}
