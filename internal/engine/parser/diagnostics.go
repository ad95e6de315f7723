package parser

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	msgInvalidSyntax      = "Invalid syntax"
	msgTrailingComma      = "Trailing comma not allowed"
	msgExpectedExpression = "Expected an expression"
)

// collectDiagnostics reports ERROR and MISSING nodes, plus the constructs the
// tree-sitter grammar accepts but Python rejects.
func collectDiagnostics(root *sitter.Node, source []byte) []Diagnostic {
	var diags []Diagnostic
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		switch {
		case node.IsMissing():
			pos := uint32(node.StartByte())
			diags = append(diags, Diagnostic{Message: missingMessage(node), Start: pos, End: pos})
			return
		case node.IsError():
			if pos, ok := danglingOperatorEnd(node); ok {
				diags = append(diags, Diagnostic{Message: msgExpectedExpression, Start: pos, End: pos})
				return
			}
			diags = append(diags, Diagnostic{
				Message: errorMessage(node, source),
				Start:   uint32(node.StartByte()),
				End:     uint32(node.EndByte()),
			})
			return
		case node.Kind() == "print_statement", node.Kind() == "exec_statement":
			// Python 2 forms still present in the grammar.
			keyword := strings.TrimSuffix(node.Kind(), "_statement")
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Missing parentheses in call to '%s'", keyword),
				Start:   uint32(node.StartByte()),
				End:     uint32(node.EndByte()),
			})
		case node.Kind() == "import_from_statement":
			if d, ok := trailingImportComma(node); ok {
				diags = append(diags, d)
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			visit(node.Child(i))
		}
	}
	if root != nil {
		visit(root)
	}
	return normalizeDiagnostics(diags)
}

func missingMessage(node *sitter.Node) string {
	kind := node.Kind()
	switch {
	case kind == "identifier", kind == "expression", strings.HasSuffix(kind, "_expression"):
		return msgExpectedExpression
	case node.IsNamed():
		return "Expected " + strings.ReplaceAll(kind, "_", " ")
	default:
		return fmt.Sprintf("Expected '%s'", kind)
	}
}

func errorMessage(node *sitter.Node, source []byte) string {
	text := strings.TrimSpace(string(source[node.StartByte():node.EndByte()]))
	switch {
	case text == ",":
		return msgTrailingComma
	case text == "":
		return msgInvalidSyntax
	case node.ChildCount() == 1 && node.Child(0).ChildCount() == 0:
		return fmt.Sprintf("Unexpected token '%s'", text)
	default:
		return msgInvalidSyntax
	}
}

// operatorTokens are the tokens that need a right-hand operand.
var operatorTokens = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true, "**": true,
	"@": true, "<<": true, ">>": true, "&": true, "|": true, "^": true, "~": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true, "<>": true,
	"=": true, ":=": true, "+=": true, "-=": true, "*=": true, "/=": true, "//=": true,
	"%=": true, "**=": true, "@=": true, "<<=": true, ">>=": true, "&=": true,
	"|=": true, "^=": true, "and": true, "or": true, "not": true, "in": true,
	"is": true, "await": true,
}

// danglingOperatorEnd reports the end of an ERROR node whose last token is an
// operator with nothing after it, as in `1+` or `x = 1 +`.
func danglingOperatorEnd(node *sitter.Node) (uint32, bool) {
	leaf := lastToken(node)
	if leaf == nil || leaf.IsNamed() || !operatorTokens[leaf.Kind()] {
		return 0, false
	}
	return uint32(leaf.EndByte()), true
}

func lastToken(node *sitter.Node) *sitter.Node {
	for node != nil && node.ChildCount() > 0 {
		var last *sitter.Node
		for i := node.ChildCount(); i > 0; i-- {
			child := node.Child(i - 1)
			if !child.IsExtra() {
				last = child
				break
			}
		}
		if last == nil {
			return nil
		}
		node = last
	}
	return node
}

// trailingImportComma flags `from m import a, b,`. The comma is only legal
// when the name list is parenthesized.
func trailingImportComma(node *sitter.Node) (Diagnostic, bool) {
	var last *sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "(" {
			return Diagnostic{}, false
		}
		if child.IsExtra() {
			continue
		}
		last = child
	}
	if last == nil || last.Kind() != "," || last.IsMissing() {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Message: msgTrailingComma,
		Start:   uint32(last.StartByte()),
		End:     uint32(last.EndByte()),
	}, true
}

// normalizeDiagnostics orders diagnostics by position and drops exact
// duplicates so the list reads top-to-bottom, left-to-right.
func normalizeDiagnostics(diags []Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return []Diagnostic{}
	}
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Start != diags[j].Start {
			return diags[i].Start < diags[j].Start
		}
		return diags[i].End < diags[j].End
	})
	out := diags[:1]
	for _, d := range diags[1:] {
		if d == out[len(out)-1] {
			continue
		}
		out = append(out, d)
	}
	return out
}
