// Package catalog declares the widget and data-type vocabulary a surface
// session is allowed to use, and validates instance data against it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/checksum"
)

// Schema is the JSON-Schema-like subset the catalog uses to describe widget
// properties, event payloads, and named data types. Only the fields the
// protocol relies on are modelled; anything else in a catalog document is
// ignored rather than rejected.
type Schema struct {
	Type       string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format     string             `json:"format,omitempty" yaml:"format,omitempty"`
	Default    any                `json:"default,omitempty" yaml:"default,omitempty"`
	Required   []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
}

// Widget is the declared shape of one node type: a property schema and an
// optional event schema.
type Widget struct {
	Properties *Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Events     *Schema `json:"events,omitempty" yaml:"events,omitempty"`
}

// Catalog is the versioned vocabulary document supplied once per session.
// It is immutable after construction.
type Catalog struct {
	Version   string            `json:"version" yaml:"version"`
	Widgets   map[string]Widget `json:"widgets,omitempty" yaml:"widgets,omitempty"`
	DataTypes map[string]Schema `json:"dataTypes,omitempty" yaml:"dataTypes,omitempty"`

	ref string
}

// Parse decodes a JSON catalog document and computes its reference digest.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: invalid document: %w", err)
	}
	c.ref = checksum.Sum(data)
	return &c, nil
}

// LoadFile reads a catalog from disk. Documents ending in .yaml or .yml are
// decoded as YAML; everything else is treated as JSON (the wire format).
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: invalid document %s: %w", path, err)
		}
		c.ref = checksum.Sum(data)
		return &c, nil
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the catalog document itself (not instance data).
func (c *Catalog) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Version, validation.Required),
	)
}

// Reference returns the digest of the source document, used to identify the
// catalog in outbound requests and the session journal. Catalogs built in
// memory have no source bytes, so the digest is derived from the canonical
// JSON encoding on first use.
func (c *Catalog) Reference() string {
	if c.ref == "" {
		ref, err := checksum.SumJSON(c)
		if err != nil {
			return ""
		}
		c.ref = ref
	}
	return c.ref
}

// Properties returns the property schema for a node type. Unknown node types
// yield an empty schema: a node may exist purely as a structural container
// with nothing bindable or validatable.
func (c *Catalog) Properties(nodeType string) *Schema {
	if w, ok := c.Widgets[nodeType]; ok && w.Properties != nil {
		return w.Properties
	}
	return &Schema{Type: "object"}
}

// Events returns the event schema for a node type, or nil when the node type
// declares none.
func (c *Catalog) Events(nodeType string) *Schema {
	if w, ok := c.Widgets[nodeType]; ok {
		return w.Events
	}
	return nil
}

// Property returns the schema for one declared property of a node type, or
// nil when the property (or the node type) is not in the catalog.
func (c *Catalog) Property(nodeType, name string) *Schema {
	props := c.Properties(nodeType)
	if props.Properties == nil {
		return nil
	}
	return props.Properties[name]
}
