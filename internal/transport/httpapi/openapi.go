package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// LoadSpec parses and validates the embedded API description.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

// schemaValidator checks decoded JSON values against a named component
// schema.
type schemaValidator struct {
	schemas openapi3.Schemas
}

func newSchemaValidator(doc *openapi3.T) *schemaValidator {
	return &schemaValidator{schemas: doc.Components.Schemas}
}

func (v *schemaValidator) validate(name string, value any) error {
	ref, ok := v.schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("unknown schema %q", name)
	}
	return ref.Value.VisitJSON(value)
}

// validateEncoded round-trips v through JSON so Go structs can be checked
// against the document's response schemas.
func (v *schemaValidator) validateEncoded(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	return v.validate(name, generic)
}
