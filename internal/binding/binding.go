// Package binding resolves declarative property bindings against session
// state, applies the value-transformation algebra (format, condition, map),
// and synthesizes schema defaults for paths that have not arrived yet.
package binding

import (
	"encoding/json"
	"strings"

	"github.com/starford/raido/internal/state"
)

// ScopePrefix marks binding paths that target the per-item scope inside a
// repeating template rather than global state.
const ScopePrefix = "item."

// Binding is a declarative reference from a node property to a state path,
// with at most one meaningful transformer. When several transformers are
// present the fixed precedence format > condition > map applies.
type Binding struct {
	Path      string     `json:"path"`
	Format    string     `json:"format,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
	Map       *Lookup    `json:"map,omitempty"`
}

// Condition returns IfValue when the bound value is the literal boolean
// true, ElseValue for every other value. The permissive rule is intentional:
// a truthy string still takes the else branch.
type Condition struct {
	IfValue   any `json:"ifValue"`
	ElseValue any `json:"elseValue"`
}

// Lookup maps the stringified bound value through a table. A missed lookup
// yields Fallback, or null when no fallback is declared.
type Lookup struct {
	Mapping  map[string]any `json:"mapping"`
	Fallback any            `json:"fallback,omitempty"`
}

// FromValue decodes a property value into a Binding when it has the binding
// shape: a JSON object carrying a string "path". Anything else is a literal.
func FromValue(v any) (*Binding, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, ok := obj["path"].(string); !ok {
		return nil, false
	}
	// Round-trip through JSON: property maps come off the wire as untyped
	// trees, and the binding shape is small enough that this stays cheap.
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	var b Binding
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, false
	}
	return &b, true
}

// isScoped reports whether path targets the item scope, and returns the
// remainder after the prefix.
func isScoped(path string) (string, bool) {
	if strings.HasPrefix(path, ScopePrefix) {
		return strings.TrimPrefix(path, ScopePrefix), true
	}
	return path, false
}

// stringifyJSON is the fallback string form for container values.
func stringifyJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// lookupScope traverses a per-item scope object by dotted path.
func lookupScope(scope map[string]any, path string) any {
	segs, err := state.SplitPath(path)
	if err != nil {
		return state.Absent
	}
	return state.Lookup(scope, segs)
}
