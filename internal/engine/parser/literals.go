package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// StringLiteralValue returns the decoded value of a plain string literal
// node: a `string` or a `concatenated_string` made only of plain strings.
// Bytes, f-strings and template strings are not plain string literals.
func (c *ExtractionContext) StringLiteralValue(node *sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "string":
		return DecodeStringLiteral(c.Text(node))
	case "concatenated_string":
		var b strings.Builder
		for i := uint(0); i < node.NamedChildCount(); i++ {
			part := node.NamedChild(i)
			if part.IsExtra() {
				continue
			}
			if part.Kind() != "string" {
				return "", false
			}
			value, ok := DecodeStringLiteral(c.Text(part))
			if !ok {
				return "", false
			}
			b.WriteString(value)
		}
		return b.String(), true
	}
	return "", false
}

// DecodeStringLiteral decodes the source text of one Python string literal,
// prefix and quotes included, into its value.
func DecodeStringLiteral(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfFtT", raw[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	if strings.ContainsAny(prefix, "bft") {
		return "", false
	}

	body := raw[i:]
	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}

	inner := body[len(quote) : len(body)-len(quote)]
	if strings.Contains(prefix, "r") {
		return inner, true
	}
	return unescapePython(inner), true
}

var simpleEscapes = map[byte]string{
	'\\': "\\",
	'\'': "'",
	'"':  "\"",
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
}

// unescapePython processes escape sequences the way the Python tokenizer
// does for str literals. Unknown escapes keep their backslash; \N{...} is
// kept verbatim because resolving character names needs the Unicode name
// table.
func unescapePython(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			continue
		}

		next := s[i+1]
		if rep, ok := simpleEscapes[next]; ok {
			b.WriteString(rep)
			i++
			continue
		}

		switch next {
		case '\n':
			i++
		case '\r':
			i++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 2
			for end < len(s) && end < i+4 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			v, _ := strconv.ParseUint(s[i+1:end], 8, 32)
			writeCodePoint(&b, rune(v))
			i = end - 1
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[next]
			end := i + 2 + width
			if end > len(s) {
				b.WriteByte(ch)
				continue
			}
			v, err := strconv.ParseUint(s[i+2:end], 16, 32)
			if err != nil || v > utf8.MaxRune {
				b.WriteByte(ch)
				continue
			}
			writeCodePoint(&b, rune(v))
			i = end - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func writeCodePoint(b *strings.Builder, r rune) {
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	b.WriteRune(r)
}
