package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for one extraction pass.
// Returns true if the walker should not descend into the node's children.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// DescendFunc decides whether the walker enters a node's children.
type DescendFunc func(node *sitter.Node) bool

// ExtractionContext carries the read-only source shared by every pass.
type ExtractionContext struct {
	Source []byte
}

func NewExtractionContext(source []byte) *ExtractionContext {
	return &ExtractionContext{Source: source}
}

// ExtractorEngine walks the syntax tree pre-order and dispatches node handlers
// by kind. Passes own their accumulators; the engine holds no state between
// walks, so one engine may be reused.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
	descend  DescendFunc
}

type EngineOption func(*ExtractorEngine)

// WithDescend restricts which nodes the walker enters.
func WithDescend(fn DescendFunc) EngineOption {
	return func(e *ExtractorEngine) {
		e.descend = fn
	}
}

// StatementsOnly limits the walk to the statement tree: the module, blocks,
// compound statements and their clauses. Expressions are never entered.
func StatementsOnly() EngineOption {
	return WithDescend(func(node *sitter.Node) bool {
		return statementContainers[node.Kind()]
	})
}

func NewExtractorEngine(handlers map[string]NodeHandler, opts ...EngineOption) *ExtractorEngine {
	e := &ExtractorEngine{handlers: handlers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	stop := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}
	if stop {
		return
	}
	if e.descend != nil && !e.descend(node) {
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

// Nodes whose children can be statements. ERROR is included so statements
// recovered inside a broken region are still visited.
var statementContainers = map[string]bool{
	"module":               true,
	"block":                true,
	"ERROR":                true,
	"if_statement":         true,
	"elif_clause":          true,
	"else_clause":          true,
	"for_statement":        true,
	"while_statement":      true,
	"try_statement":        true,
	"except_clause":        true,
	"except_group_clause":  true,
	"finally_clause":       true,
	"with_statement":       true,
	"match_statement":      true,
	"case_clause":          true,
	"function_definition":  true,
	"class_definition":     true,
	"decorated_definition": true,
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// DottedText joins the identifiers of a dotted_name with ".", dropping any
// whitespace or comments written between the parts.
func (c *ExtractionContext) DottedText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind() != "dotted_name" {
		return c.Text(node)
	}
	parts := make([]string, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == "identifier" {
			parts = append(parts, c.Text(child))
		}
	}
	return strings.Join(parts, ".")
}

// FirstNamedChild returns the first named, non-extra child of node with one
// of the given kinds, or any kind when none are given.
func FirstNamedChild(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.IsExtra() {
			continue
		}
		if len(kinds) == 0 {
			return child
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// Unparen strips parenthesized_expression layers, which Python's own AST
// does not keep.
func Unparen(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		inner := FirstNamedChild(node)
		if inner == nil {
			return node
		}
		node = inner
	}
	return node
}

// NonExtraChildCount counts named and anonymous children, skipping comments.
func NonExtraChildCount(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	n := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		if !node.Child(i).IsExtra() {
			n++
		}
	}
	return n
}
