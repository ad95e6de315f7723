package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestDecodeStringLiteral(t *testing.T) {
	cases := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{`"Doc"`, "Doc", true},
		{`'single'`, "single", true},
		{`"""triple "quoted" text"""`, `triple "quoted" text`, true},
		{`'''a\nb'''`, "a\nb", true},
		{`r"raw\n"`, `raw\n`, true},
		{`U"upper"`, "upper", true},
		{`"tab\tand\\slash"`, "tab\tand\\slash", true},
		{`"\x41é\U0001F600"`, "Aé😀", true},
		{`"\101\0"`, "A\x00", true},
		{`"keep \q unknown"`, `keep \q unknown`, true},
		{`"\N{BULLET}"`, `\N{BULLET}`, true},
		{"\"line\\\ncontinued\"", "linecontinued", true},
		{`"short \x4"`, `short \x4`, true},
		{`b"bytes"`, "", false},
		{`f"{x}"`, "", false},
		{`"unterminated`, "", false},
		{`plain`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := DecodeStringLiteral(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStringLiteralValue_Concatenated(t *testing.T) {
	src := []byte(`x = "a" 'b' r"\c"` + "\n")
	parsed := Parse(src)
	defer parsed.Close()

	ctx := NewExtractionContext(src)
	var value string
	var ok bool
	NewExtractorEngine(map[string]NodeHandler{
		"concatenated_string": func(ctx *ExtractionContext, node *sitter.Node) bool {
			value, ok = ctx.StringLiteralValue(node)
			return true
		},
	}).Walk(ctx, parsed.Root())

	assert.True(t, ok)
	assert.Equal(t, `ab\c`, value)
}
