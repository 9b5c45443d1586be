// Package schemas provides JSON Schema validation for structured model output.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed filters.schema.json
var filtersSchema string

// Filters validates the filter object returned by the AI query translator.
var Filters = MustCompile("filters", filtersSchema)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s validation failed:\n", ve.Schema))
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// DocumentError reports a document that is not JSON at all
type DocumentError struct {
	Schema string
	Cause  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: document is not valid JSON: %v", e.Schema, e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// Validator is a compiled JSON Schema
type Validator struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses schema content
func Compile(name, content string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: schema}, nil
}

// MustCompile is Compile for schemas embedded in the binary
func MustCompile(name, content string) *Validator {
	v, err := Compile(name, content)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a JSON document. It returns a *DocumentError when the
// document does not parse and a *ValidationError when it violates the schema.
func (v *Validator) Validate(document []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &DocumentError{Schema: v.name, Cause: err}
	}

	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Schema: v.name,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
