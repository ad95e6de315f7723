package analyzer

import (
	"fmt"

	"pyanalyzer/internal/core/errors"
	"pyanalyzer/internal/engine/parser"
)

// The functions below keep the older fail-fast contract: any syntax
// diagnostic aborts the call with a CodeSyntax error instead of partial
// data. New callers should use Analyze.

func ImportedNames(source string) ([]QualifiedName, error) {
	c := &importCollector{}
	if err := runStrict(source, c); err != nil {
		return nil, err
	}
	res := newResult()
	c.apply(res)
	return res.ImportedNames, nil
}

func DefinedFunctions(source string) ([]FunctionSignature, error) {
	c := &functionCollector{}
	if err := runStrict(source, c); err != nil {
		return nil, err
	}
	res := newResult()
	c.apply(res)
	return res.DefinedFunctions, nil
}

func CalledNames(source string) ([]string, error) {
	c := &callCollector{}
	if err := runStrict(source, c); err != nil {
		return nil, err
	}
	res := newResult()
	c.apply(res)
	return res.CalledNames, nil
}

func FindEllipsis(source string) (bool, error) {
	f := &ellipsisFinder{}
	if err := runStrict(source, f); err != nil {
		return false, err
	}
	return f.found, nil
}

func runStrict(source string, p pass) error {
	parsed := parser.Parse([]byte(source))
	defer parsed.Close()

	if len(parsed.Diagnostics) > 0 {
		first := parsed.Diagnostics[0]
		err := errors.New(errors.CodeSyntax, first.Message)
		return errors.AddContext(err, errors.CtxLocation, fmt.Sprintf("%d..%d", first.Start, first.End))
	}
	return runPass(namedPass{name: "legacy", pass: p}, parser.NewExtractionContext(parsed.Source), parsed.Root())
}
