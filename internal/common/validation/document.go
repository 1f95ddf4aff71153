package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DocumentSchema is a compiled draft-07 JSON schema for outbound payloads.
type DocumentSchema struct {
	schema *gojsonschema.Schema
}

// CompileDocumentSchema compiles a JSON schema document.
func CompileDocumentSchema(schemaJSON string) (*DocumentSchema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &DocumentSchema{schema: s}, nil
}

// MustCompileDocumentSchema panics on an invalid schema; for package-level vars.
func MustCompileDocumentSchema(schemaJSON string) *DocumentSchema {
	s, err := CompileDocumentSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks doc (any JSON-marshalable value) and maps the failures
// into a Result using dotted field paths.
func (d *DocumentSchema) Validate(doc interface{}) (*Result, error) {
	res, err := d.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	result := NewResult()
	for _, e := range res.Errors() {
		field := e.Field()
		if field == "(root)" {
			field = ""
		}
		if prop, ok := e.Details()["property"].(string); ok && e.Type() == "required" {
			if field == "" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
		result.Add(jsonPointerToPath(field), strings.ToUpper(e.Type()), e.Description())
	}
	return result, nil
}

// jsonPointerToPath turns gojsonschema's "items.0.price" into "items[0].price".
func jsonPointerToPath(field string) string {
	parts := strings.Split(field, ".")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if isIndex(p) && i > 0 {
			b.WriteString("[" + p + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(p)
	}
	return b.String()
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
