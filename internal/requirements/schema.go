package requirements

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/job_requirements.json
var schemaJSON string

// Schema returns the JSON Schema every JobRequirements payload from the analysis
// service has to satisfy.
func Schema() string {
	return schemaJSON
}

var compiledSchema = mustCompile(schemaJSON)

// SchemaError lists the fields of a payload that violate a JSON Schema.
type SchemaError struct {
	Fields []FieldError
}

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// ValidateAgainst checks a JSON document against a compiled schema and returns a
// *SchemaError describing every violation.
func ValidateAgainst(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{Fields: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Fields = append(schemaErr.Fields, FieldError{Field: field, Message: desc.Description()})
	}
	return schemaErr
}

// ParseJSON validates the payload against Schema and decodes it. The result is
// normalized.
func ParseJSON(data []byte) (*JobRequirements, error) {
	if err := ValidateAgainst(compiledSchema, data); err != nil {
		return nil, err
	}

	var r JobRequirements
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode job requirements: %w", err)
	}
	r.Normalize()

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// MustCompileSchema compiles an embedded schema and panics when it is malformed.
func MustCompileSchema(schema string) *gojsonschema.Schema {
	return mustCompile(schema)
}

func mustCompile(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile embedded schema: %v", err))
	}
	return compiled
}
