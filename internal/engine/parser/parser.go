// # internal/engine/parser/parser.go
package parser

import (
	"sync"
	"time"

	"pyanalyzer/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var (
	pythonOnce sync.Once
	pythonLang *sitter.Language
	pythonPool *ParserPool
)

// PythonLanguage returns the shared tree-sitter Python grammar.
func PythonLanguage() *sitter.Language {
	pythonOnce.Do(func() {
		pythonLang = sitter.NewLanguage(tree_sitter_python.Language())
		pythonPool = NewParserPool(pythonLang)
	})
	return pythonLang
}

// Pool returns the process-wide Python parser pool.
func Pool() *ParserPool {
	PythonLanguage()
	return pythonPool
}

// Parse turns source into a syntax tree and its diagnostics. It never fails:
// malformed input yields a partial tree with ERROR and MISSING nodes that are
// reported as diagnostics, and every extractor can still run over it.
func Parse(source []byte) *Parsed {
	started := time.Now()
	defer func() { observability.ParsingDuration.Observe(time.Since(started).Seconds()) }()

	pool := Pool()
	sp := pool.Get()
	tree := sp.Parse(source, nil)
	pool.Put(sp)

	if tree == nil {
		// A pooled parser can carry a stale cancellation or timeout; retry once
		// on a fresh instance before giving up on a tree.
		fresh := sitter.NewParser()
		_ = fresh.SetLanguage(PythonLanguage())
		tree = fresh.Parse(source, nil)
		fresh.Close()
	}

	parsed := &Parsed{Source: source, Tree: tree}
	if tree == nil {
		parsed.Diagnostics = []Diagnostic{{
			Message: "Unable to parse source",
			Start:   0,
			End:     uint32(len(source)),
		}}
		return parsed
	}

	parsed.Diagnostics = collectDiagnostics(tree.RootNode(), source)
	return parsed
}
