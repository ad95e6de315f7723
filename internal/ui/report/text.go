package report

import (
	"fmt"
	"io"
	"strings"

	"pyanalyzer/internal/engine/analyzer"

	"github.com/charmbracelet/lipgloss"
)

// styles holds the palette for one output stream. Colors are dropped when
// the stream is not a terminal.
type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	errorS  lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		section: r.NewStyle().Bold(true).Underline(true),
		errorS:  r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

// WriteText renders res as a human-readable report. label names the input,
// usually a file path or "<stdin>".
func WriteText(w io.Writer, label string, res *analyzer.Result) error {
	st := newStyles(w)
	var b strings.Builder

	b.WriteString(st.title.Render(label))
	b.WriteString("\n")

	if res.HasErrors() {
		b.WriteString(st.errorS.Render(fmt.Sprintf("%d syntax error(s)", len(res.Diagnostics))))
		b.WriteString("\n")
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "  %s %s\n", st.muted.Render(fmt.Sprintf("[%d..%d]", d.Span.Start, d.Span.End)), d.Message)
		}
	} else {
		b.WriteString(st.success.Render("no syntax errors"))
		b.WriteString("\n")
	}

	writeSection(&b, st, "Imports", len(res.ImportedNames))
	for _, name := range res.ImportedNames {
		fmt.Fprintf(&b, "  from %s import %s\n", displayModule(name.Module), name.Name)
	}
	if len(res.ImportSpans) > 0 {
		spans := make([]string, 0, len(res.ImportSpans))
		for _, s := range res.ImportSpans {
			spans = append(spans, fmt.Sprintf("%d..%d", s.Start, s.End))
		}
		fmt.Fprintf(&b, "  %s\n", st.muted.Render("spans: "+strings.Join(spans, ", ")))
	}

	writeSection(&b, st, "Functions", len(res.DefinedFunctions))
	for _, fn := range res.DefinedFunctions {
		fmt.Fprintf(&b, "  %s\n", Signature(fn))
		if fn.Docstring != "" {
			fmt.Fprintf(&b, "    %s\n", st.muted.Render(firstLine(fn.Docstring)))
		}
	}

	writeSection(&b, st, "Calls", len(res.CalledNames))
	if len(res.CalledNames) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(res.CalledNames, ", "))
	}

	fmt.Fprintf(&b, "\nellipsis: %t\n", res.HasEllipsis)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, st styles, name string, count int) {
	fmt.Fprintf(b, "\n%s %s\n", st.section.Render(name), fmt.Sprintf("(%d)", count))
}

// Signature renders fn as a Python-like def line.
func Signature(fn analyzer.FunctionSignature) string {
	params := make([]string, 0, len(fn.Parameters))
	for _, p := range fn.Parameters {
		var s strings.Builder
		if p.Variadic {
			s.WriteString("*")
		}
		s.WriteString(p.Name)
		if p.TypeText != "" {
			s.WriteString(": ")
			s.WriteString(p.TypeText)
		}
		if p.Default != nil {
			if p.TypeText != "" {
				s.WriteString(" = ")
			} else {
				s.WriteString("=")
			}
			s.WriteString(*p.Default)
		}
		params = append(params, s.String())
	}
	out := fmt.Sprintf("def %s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.ReturnType != "" {
		out += " -> " + fn.ReturnType
	}
	return out
}

func displayModule(module string) string {
	if module == "" {
		return "."
	}
	return module
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}
