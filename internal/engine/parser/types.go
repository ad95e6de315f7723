// # internal/engine/parser/types.go
package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Diagnostic is a recoverable syntax problem. Start and End are byte offsets
// into the parsed source, End exclusive.
type Diagnostic struct {
	Message string
	Start   uint32
	End     uint32
}

// Parsed is the outcome of one parse: a best-effort tree plus every
// diagnostic found while building it. Tree is nil only when tree-sitter
// refused to produce anything at all.
type Parsed struct {
	Source      []byte
	Tree        *sitter.Tree
	Diagnostics []Diagnostic
}

// Root returns the module node, or nil when no tree was produced.
func (p *Parsed) Root() *sitter.Node {
	if p == nil || p.Tree == nil {
		return nil
	}
	return p.Tree.RootNode()
}

// Close releases the underlying tree. Nodes obtained from Root must not be
// used afterwards.
func (p *Parsed) Close() {
	if p == nil || p.Tree == nil {
		return
	}
	p.Tree.Close()
	p.Tree = nil
}
