package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// SchemaFileName is the reserved schema file inside a manifest directory.
// It is never treated as a manifest.
const SchemaFileName = "ai-manifest-schema.yaml"

//go:embed ai-manifest-schema.yaml
var defaultSchema []byte

// DefaultSchema returns the built-in schema document.
func DefaultSchema() []byte {
	return append([]byte(nil), defaultSchema...)
}

// FieldType is a declared field type.
type FieldType string

// Field types.
const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

func (t FieldType) known() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	default:
		return false
	}
}

// Field declares the constraints on one manifest field.
type Field struct {
	Type        FieldType         `yaml:"type"`
	Description string            `yaml:"description,omitempty"`
	Pattern     string            `yaml:"pattern,omitempty"`
	Enum        []any             `yaml:"enum,omitempty"`
	Minimum     *float64          `yaml:"minimum,omitempty"`
	Maximum     *float64          `yaml:"maximum,omitempty"`
	MinItems    *int              `yaml:"min_items,omitempty"`
	MaxItems    *int              `yaml:"max_items,omitempty"`
	Items       *Field            `yaml:"items,omitempty"`
	Properties  map[string]*Field `yaml:"properties,omitempty"`
	Required    []string          `yaml:"required,omitempty"`

	re *regexp.Regexp
}

// Schema is the top-level manifest schema.
type Schema struct {
	Version    int               `yaml:"version"`
	Required   []string          `yaml:"required"`
	Properties map[string]*Field `yaml:"properties"`
}

// ParseSchema parses and compiles a schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if len(schema.Properties) == 0 {
		return nil, errors.New("parsing schema: no properties declared")
	}
	for name, field := range schema.Properties {
		if err := field.compile(name); err != nil {
			return nil, err
		}
	}
	return &schema, nil
}

// compile checks the declaration and compiles patterns recursively.
func (f *Field) compile(path string) error {
	if f == nil {
		return fmt.Errorf("schema field %s: empty declaration", path)
	}
	if f.Type != "" && !f.Type.known() {
		return fmt.Errorf("schema field %s: unknown type %q", path, f.Type)
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return fmt.Errorf("schema field %s: bad pattern: %w", path, err)
		}
		f.re = re
	}
	if f.Items != nil {
		if err := f.Items.compile(path + "[]"); err != nil {
			return err
		}
	}
	for name, child := range f.Properties {
		if err := child.compile(path + "." + name); err != nil {
			return err
		}
	}
	return nil
}

// LoadSchema reads the schema from dir, falling back to the built-in one
// when dir has no schema file.
func LoadSchema(dir string) (*Schema, error) {
	data, err := os.ReadFile(filepath.Join(dir, SchemaFileName))
	if errors.Is(err, os.ErrNotExist) {
		return ParseSchema(defaultSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return ParseSchema(data)
}
