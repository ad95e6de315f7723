package analyzer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAnalyze_NoDiagnosticsForValidSource(t *testing.T) {
	res := Analyze("pass")
	assert.Empty(t, res.Diagnostics)
	assert.False(t, res.HasErrors())
}

func TestAnalyze_ImportedNamesAndSpans(t *testing.T) {
	res := Analyze("from mod import a, b\nfrom mod2 import c")

	assert.Equal(t, []QualifiedName{
		{Module: "mod", Name: "a"},
		{Module: "mod", Name: "b"},
		{Module: "mod2", Name: "c"},
	}, res.ImportedNames)
	assert.Equal(t, []Span{{Start: 0, End: 20}, {Start: 21, End: 39}}, res.ImportSpans)
}

func TestAnalyze_ImportForms(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		names []QualifiedName
		spans int
	}{
		{"aliased", "from os import path as p", []QualifiedName{{"os", "path"}}, 1},
		{"dotted module", "from a.b.c import d", []QualifiedName{{"a.b.c", "d"}}, 1},
		{"relative", "from ..pkg import x", []QualifiedName{{"pkg", "x"}}, 1},
		{"relative without module", "from . import x", []QualifiedName{}, 0},
		{"wildcard", "from m import *", []QualifiedName{{"m", "*"}}, 1},
		{"parenthesized", "from m import (a,\n    b,\n)", []QualifiedName{{"m", "a"}, {"m", "b"}}, 1},
		{"plain import ignored", "import os\nimport a.b as c", []QualifiedName{}, 0},
		{"nested", "def f():\n    from m import x\n", []QualifiedName{{"m", "x"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.src)
			assert.Equal(t, tt.names, res.ImportedNames)
			assert.Len(t, res.ImportSpans, tt.spans)
			assert.Empty(t, res.Diagnostics)
		})
	}
}

func TestAnalyze_DefinedFunctions(t *testing.T) {
	res := Analyze("def f(a: int)->list[int]:\n    \"\"\"Doc\"\"\"\n    pass\ndef g(a, b = 1, *c): pass")

	assert.Equal(t, []FunctionSignature{
		{
			Name:       "f",
			Parameters: []Parameter{{Name: "a", TypeText: "int"}},
			ReturnType: "list[int]",
			Docstring:  "Doc",
		},
		{
			Name: "g",
			Parameters: []Parameter{
				{Name: "a"},
				{Name: "b", Default: strPtr("1")},
				{Name: "c", Variadic: true},
			},
		},
	}, res.DefinedFunctions)
}

func TestAnalyze_ParameterOrdering(t *testing.T) {
	res := Analyze("def h(p, /, q: str = 'x', *args: int, k, m=2, **kw) -> None: ...")
	require.Len(t, res.DefinedFunctions, 1)

	fn := res.DefinedFunctions[0]
	assert.Equal(t, "None", fn.ReturnType)
	assert.Equal(t, []Parameter{
		{Name: "p"},
		{Name: "q", TypeText: "str", Default: strPtr("'x'")},
		{Name: "args", TypeText: "int", Variadic: true},
		{Name: "k"},
		{Name: "m", Default: strPtr("2")},
	}, fn.Parameters)
}

func TestAnalyze_KeywordOnlyWithoutVariadic(t *testing.T) {
	res := Analyze("def h(a, *, b=3): pass")
	require.Len(t, res.DefinedFunctions, 1)
	assert.Equal(t, []Parameter{
		{Name: "a"},
		{Name: "b", Default: strPtr("3")},
	}, res.DefinedFunctions[0].Parameters)
}

func TestAnalyze_NestedAndMethodFunctions(t *testing.T) {
	src := "class A:\n    def m(self):\n        def inner(): pass\n\n@dec\nasync def top(): pass\n"
	res := Analyze(src)

	var names []string
	for _, fn := range res.DefinedFunctions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"m", "inner", "top"}, names)
}

func TestAnalyze_Docstrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single quoted", "def f():\n    'one'\n", "one"},
		{"escapes decoded", "def f():\n    \"a\\tb\"\n", "a\tb"},
		{"not first statement", "def f():\n    x = 1\n    \"doc\"\n", ""},
		{"f-string ignored", "def f():\n    f\"doc\"\n", ""},
		{"bytes ignored", "def f():\n    b\"doc\"\n", ""},
		{"concatenated", "def f():\n    \"a\" \"b\"\n", "ab"},
		{"one-element tuple", "def f():\n    \"doc\",\n", ""},
		{"parenthesized", "def f():\n    (\"doc\")\n", "doc"},
		{"nested parens", "def f():\n    ((\"doc\"))\n    pass\n", "doc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.src)
			require.Len(t, res.DefinedFunctions, 1)
			assert.Equal(t, tt.want, res.DefinedFunctions[0].Docstring)
		})
	}
}

func TestAnalyze_Ellipsis(t *testing.T) {
	assert.True(t, Analyze("1 + ...").HasEllipsis)
	assert.True(t, Analyze("def f():\n    x = [...]\n").HasEllipsis)
	assert.False(t, Analyze("x = 1\n").HasEllipsis)
	assert.False(t, Analyze("s = '...'\n").HasEllipsis)
}

func TestAnalyze_CalledNames(t *testing.T) {
	assert.Equal(t, []string{"f", "g"}, Analyze("f(g())").CalledNames)
	assert.Equal(t, []string{"f", "f"}, Analyze("f()\nf()").CalledNames)
	assert.Equal(t, []string{"len"}, Analyze("obj.method(len(x))").CalledNames)
	assert.Equal(t, []string{"h"}, Analyze("x = [h(i) for i in y]").CalledNames)
	assert.Equal(t, []string{"f", "g"}, Analyze("(f)()\n((g))(1)\n").CalledNames)
	assert.Empty(t, Analyze("(a.b)()\n").CalledNames)
}

func TestAnalyze_PartialFailure(t *testing.T) {
	res := Analyze("from mod import a, b,\n\n1+")

	assert.Equal(t, []QualifiedName{
		{Module: "mod", Name: "a"},
		{Module: "mod", Name: "b"},
	}, res.ImportedNames)
	assert.Equal(t, []Diagnostic{
		{Message: "Trailing comma not allowed", Span: Span{Start: 20, End: 21}},
		{Message: "Expected an expression", Span: Span{Start: 25, End: 25}},
	}, res.Diagnostics)
	assert.True(t, res.HasErrors())
}

func TestAnalyze_Idempotent(t *testing.T) {
	src := "from m import a\ndef f(x=...):\n    g(x)\n"
	assert.Equal(t, Analyze(src), Analyze(src))
}

func TestAnalyze_ParallelMatchesSequential(t *testing.T) {
	sources := []string{
		"from mod import a, b,\n\n1+",
		"def f(a: int)->list[int]:\n    \"\"\"Doc\"\"\"\n    pass\ndef g(a, b = 1, *c): pass",
		"f(g(...))",
		"",
	}
	seq := New()
	par := New(WithParallelPasses(true))
	for _, src := range sources {
		assert.Equal(t, seq.Analyze(src), par.Analyze(src), "source %q", src)
	}
}

func TestResult_JSONShape(t *testing.T) {
	data, err := json.Marshal(Analyze("def g(a, b = 1): pass"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `[]`, string(raw["imported_names"]))
	assert.JSONEq(t, `[]`, string(raw["import_ranges"]))
	assert.JSONEq(t, `[]`, string(raw["parse_errors"]))
	assert.JSONEq(t, `false`, string(raw["has_ellipsis"]))
	assert.JSONEq(t, `[{"name":"g","args":[
		{"name":"a","type_str":"","variable_length":false},
		{"name":"b","type_str":"","default":"1","variable_length":false}
	],"return_type_str":"","docstring":""}]`, string(raw["defined_functions"]))

	data, err = json.Marshal(Diagnostic{Message: "Invalid syntax", Span: Span{Start: 3, End: 7}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Invalid syntax","location":[3,7]}`, string(data))

	var back Diagnostic
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Span{Start: 3, End: 7}, back.Span)
}
