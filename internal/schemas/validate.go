// Package schemas validates structured LLM output against embedded JSON Schemas.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Schema names
const (
	Classification = "classification"
	Research       = "research"
	DocumentScore  = "document_score"
	Comparison     = "comparison"
	Calibration    = "calibration"
)

// rootField labels violations of the document as a whole
const rootField = "(root)"

// FieldError is one violation at a JSON path
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation of one document, sorted by field
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	prefix := "schema"
	if ve.Schema != "" {
		prefix = ve.Schema
	}
	return fmt.Sprintf("%s: %d violation(s): %s", prefix, len(ve.Errors), strings.Join(parts, "; "))
}

// LoadError means a schema is missing or does not compile
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// Load returns the embedded schema document for name
func Load(name string) (string, error) {
	data, err := schemaFiles.ReadFile(name + ".schema.json")
	if err != nil {
		return "", &LoadError{Name: name, Err: err}
	}
	return string(data), nil
}

// Compile parses a schema document. Embedded schemas go through schemaFor.
func Compile(name, document string) (*gojsonschema.Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	return s, nil
}

func schemaFor(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	doc, err := Load(name)
	if err != nil {
		return nil, err
	}
	s, err := Compile(name, doc)
	if err != nil {
		return nil, err
	}
	compiled[name] = s
	return s, nil
}

// Validate checks raw JSON against the named embedded schema
func Validate(name, raw string) error {
	s, err := schemaFor(name)
	if err != nil {
		return err
	}
	return check(name, s, raw)
}

func check(name string, s *gojsonschema.Schema, raw string) error {
	if !json.Valid([]byte(raw)) {
		return &ValidationError{Schema: name, Errors: []FieldError{{Field: rootField, Message: "not valid JSON"}}}
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return &ValidationError{Schema: name, Errors: []FieldError{{Field: rootField, Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Schema: name}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = rootField
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(ve.Errors, func(i, j int) bool { return ve.Errors[i].Field < ve.Errors[j].Field })
	return ve
}

// Decode validates raw against the named schema and unmarshals it into v.
// v is left untouched when validation fails.
func Decode(name, raw string, v any) error {
	if err := Validate(name, raw); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
