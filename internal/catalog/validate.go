package catalog

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Failure describes one reason an instance did not satisfy a schema.
// Path is a dotted location inside the instance ("" for the root).
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	if f.Path == "" {
		return f.Reason
	}
	return f.Path + ": " + f.Reason
}

// ValidateData checks an instance against the named data type. An empty
// result means valid. Data types absent from the catalog validate
// successfully: the catalog only constrains what it explicitly declares.
// ValidateData never panics and has no side effects; callers decide severity.
func (c *Catalog) ValidateData(dataType string, instance any) []Failure {
	shape, ok := c.DataTypes[dataType]
	if !ok {
		return nil
	}
	var fails []Failure
	checkSchema(&shape, instance, "", &fails)
	return fails
}

// ValidateAgainst checks an instance against an explicit schema (used for
// event payloads, which are looked up per node type rather than by name).
func ValidateAgainst(schema *Schema, instance any) []Failure {
	if schema == nil {
		return nil
	}
	var fails []Failure
	checkSchema(schema, instance, "", &fails)
	return fails
}

func checkSchema(s *Schema, v any, path string, fails *[]Failure) {
	if s == nil {
		return
	}
	if s.Type != "" && !typeMatches(s.Type, v) {
		*fails = append(*fails, Failure{Path: path, Reason: fmt.Sprintf("expected %s, got %T", s.Type, v)})
		return
	}
	if s.Format != "" {
		if str, ok := v.(string); ok && !formatOK(s.Format, str) {
			*fails = append(*fails, Failure{Path: path, Reason: fmt.Sprintf("invalid %s", s.Format)})
		}
	}

	obj, isObj := v.(map[string]any)
	if isObj {
		for _, req := range s.Required {
			if _, ok := obj[req]; !ok {
				*fails = append(*fails, Failure{Path: join(path, req), Reason: "required property missing"})
			}
		}
		for name, sub := range s.Properties {
			if val, ok := obj[name]; ok {
				checkSchema(sub, val, join(path, name), fails)
			}
		}
	}

	if arr, ok := v.([]any); ok && s.Items != nil {
		for i, item := range arr {
			checkSchema(s.Items, item, fmt.Sprintf("%s[%d]", path, i), fails)
		}
	}
}

// typeMatches maps JSON primitive type names onto decoded Go values.
// "number" accepts integers; "integer" rejects values with a fractional part.
func typeMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		return isNumeric(v)
	case "integer":
		switch n := v.(type) {
		case float64:
			return n == float64(int64(n))
		case int, int64:
			return true
		}
		return false
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "null":
		return v == nil
	default:
		// Unknown type names do not constrain anything.
		return true
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}

// formatOK applies the dedicated predicate for a format constraint. Unknown
// formats are not errors.
func formatOK(format, value string) bool {
	switch format {
	case "email":
		return validation.Validate(value, is.Email) == nil
	case "uri", "url":
		return validation.Validate(value, is.URL) == nil
	case "uuid":
		return validation.Validate(value, is.UUID) == nil
	case "date-time":
		_, err := time.Parse(time.RFC3339, value)
		return err == nil
	case "date":
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	default:
		return true
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
