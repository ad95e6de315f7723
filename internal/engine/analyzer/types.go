// # internal/engine/analyzer/types.go
package analyzer

import (
	"encoding/json"
	"fmt"
)

// QualifiedName is one symbol brought in by a from-import.
type QualifiedName struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

type FunctionSignature struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"args"`
	ReturnType string      `json:"return_type_str"` // verbatim annotation, empty if none
	Docstring  string      `json:"docstring"`
}

type Parameter struct {
	Name     string  `json:"name"`
	TypeText string  `json:"type_str"`          // verbatim annotation, empty if none
	Default  *string `json:"default,omitempty"` // verbatim default, nil if none
	Variadic bool    `json:"variable_length"`
}

// Span is a byte range into the analyzed source, End exclusive.
// It serializes as a two-element array.
type Span struct {
	Start uint32
	End   uint32
}

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint32{s.Start, s.End})
}

func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]uint32
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("span: %w", err)
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Diagnostic is a recoverable syntax problem reported as data.
type Diagnostic struct {
	Message string `json:"message"`
	Span    Span   `json:"location"`
}

// Result aggregates every fact extracted from one source text.
type Result struct {
	ImportedNames    []QualifiedName     `json:"imported_names"`
	DefinedFunctions []FunctionSignature `json:"defined_functions"`
	CalledNames      []string            `json:"called_names"`
	HasEllipsis      bool                `json:"has_ellipsis"`
	ImportSpans      []Span              `json:"import_ranges"`
	Diagnostics      []Diagnostic        `json:"parse_errors"`
}

func newResult() *Result {
	return &Result{
		ImportedNames:    []QualifiedName{},
		DefinedFunctions: []FunctionSignature{},
		CalledNames:      []string{},
		ImportSpans:      []Span{},
		Diagnostics:      []Diagnostic{},
	}
}

// HasErrors reports whether the source had any syntax diagnostics.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Diagnostics) > 0
}
