package vendorapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema for one vendor payload shape.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// NewSchema compiles src.
func NewSchema(name, src string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// MustSchema is NewSchema for package-level embedded schemas.
func MustSchema(name, src string) *Schema {
	s, err := NewSchema(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Check validates body against the schema.
func (s *Schema) Check(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema %s: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("schema %s: %s", s.name, strings.Join(problems, "; "))
}
