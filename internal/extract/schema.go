// Package extract turns transcribed markdown into schema-shaped JSON records.
package extract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(promptText))

// Field is one value the model is asked to extract.
type Field struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"` // text, date, datetime, currency, array, object
	Required    bool   `yaml:"required"`
	Default     any    `yaml:"default"`
}

// Key is the JSON key the field is returned under.
func (f Field) Key() string {
	return strings.ToLower(strings.TrimSpace(f.Name))
}

// Schema describes one kind of document and the fields extracted from it.
type Schema struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Version     string   `yaml:"version"`
	Priority    int      `yaml:"priority"` // lower is tried first
	Default     bool     `yaml:"default"`
	Markers     []string `yaml:"markers"`
	Fields      []Field  `yaml:"fields"`

	once      sync.Once
	validator *jsonschema.Schema
	compErr   error
}

func (s *Schema) validate() error {
	if s.ID == "" {
		return errors.New("schema id is required")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s has no fields", s.ID)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		key := f.Key()
		if key == "" {
			return fmt.Errorf("schema %s has a field without a name", s.ID)
		}
		if seen[key] {
			return fmt.Errorf("schema %s has duplicate field %q", s.ID, key)
		}
		seen[key] = true
	}
	return nil
}

// Prompt builds the extraction prompt for a markdown document.
func (s *Schema) Prompt(markdown string) (string, error) {
	type promptField struct {
		Key         string
		Description string
	}
	fields := make([]promptField, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = promptField{Key: f.Key(), Description: f.Description}
	}

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Fields   []promptField
		Markdown string
	}{Fields: fields, Markdown: markdown})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// EmptyData returns the record with every field set to null.
func (s *Schema) EmptyData() map[string]any {
	data := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		data[f.Key()] = nil
	}
	return data
}

// ArrayFields returns the keys of the fields declared as arrays.
func (s *Schema) ArrayFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Type == "array" {
			keys = append(keys, f.Key())
		}
	}
	return keys
}

// JSONSchema returns the JSON Schema document for extracted records.
// Unknown keys are allowed; the model often adds table columns.
func (s *Schema) JSONSchema() ([]byte, error) {
	props := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		prop := map[string]any{}
		if types := jsonTypes(f.Type); types != nil {
			prop["type"] = types
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		props[f.Key()] = prop
		if f.Required {
			required = append(required, f.Key())
		}
	}

	doc := map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"title":      s.Name,
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return json.Marshal(doc)
}

func jsonTypes(fieldType string) []string {
	switch strings.ToLower(fieldType) {
	case "text", "currency":
		return []string{"string", "number", "null"}
	case "date", "datetime":
		return []string{"string", "null"}
	case "array":
		return []string{"array", "null"}
	case "object":
		return []string{"object", "array", "null"}
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		raw, err := s.JSONSchema()
		if err != nil {
			s.compErr = err
			return
		}
		url := s.ID + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			s.compErr = fmt.Errorf("failed to load schema %s: %w", s.ID, err)
			return
		}
		s.validator, s.compErr = compiler.Compile(url)
		if s.compErr != nil {
			s.compErr = fmt.Errorf("failed to compile schema %s: %w", s.ID, s.compErr)
		}
	})
	return s.validator, s.compErr
}

// Validate checks an extracted record and returns one message per violation.
// A nil result means the record conforms.
func (s *Schema) Validate(data any) []string {
	validator, err := s.compile()
	if err != nil {
		return []string{err.Error()}
	}
	err = validator.Validate(data)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var msgs []string
	collectViolations(ve, &msgs)
	return msgs
}

func collectViolations(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectViolations(c, msgs)
	}
}
