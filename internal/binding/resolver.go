package binding

import (
	"strconv"
	"strings"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/state"
)

// Resolver resolves bindings for one session, against that session's catalog
// and state store.
type Resolver struct {
	catalog *catalog.Catalog
	store   *state.Store
}

// NewResolver creates a resolver over the given catalog and store.
func NewResolver(cat *catalog.Catalog, store *state.Store) *Resolver {
	return &Resolver{catalog: cat, store: store}
}

// Resolve resolves one binding for the named property of a node type.
//
// A path with the "item." prefix resolves against scope when a scope is
// supplied; every other path resolves against global state, even inside a
// scoped context. That dual-context rule lets a template mix "this item's
// field" and "global setting" bindings in the same node.
//
// An unreachable path never propagates absence: a default is synthesized
// from the property's declared schema, and defaults bypass the transformers.
func (r *Resolver) Resolve(b *Binding, nodeType, property string, scope map[string]any) any {
	raw := r.lookup(b.Path, scope)
	if state.IsAbsent(raw) {
		return r.defaultFor(nodeType, property)
	}
	return transform(b, raw)
}

func (r *Resolver) lookup(path string, scope map[string]any) any {
	if rest, scoped := isScoped(path); scoped && scope != nil {
		return lookupScope(scope, rest)
	}
	v, err := r.store.Get(path)
	if err != nil {
		return state.Absent
	}
	return v
}

// defaultFor synthesizes a placeholder from the declared property schema so
// a renderer never sees a hole mid-stream. An explicit schema default wins;
// otherwise the type picks the zero shape; a property the catalog does not
// declare at all yields null.
func (r *Resolver) defaultFor(nodeType, property string) any {
	schema := r.catalog.Property(nodeType, property)
	if schema == nil {
		return nil
	}
	if schema.Default != nil {
		return schema.Default
	}
	switch schema.Type {
	case "string":
		return ""
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return false
	case "object":
		return map[string]any{}
	case "array":
		return []any{}
	default:
		return nil
	}
}

// transform applies at most one transformer, in fixed precedence.
func transform(b *Binding, raw any) any {
	switch {
	case b.Format != "":
		return formatValue(b.Format, raw)
	case b.Condition != nil:
		// Only literal true takes the if-branch.
		if v, ok := raw.(bool); ok && v {
			return b.Condition.IfValue
		}
		return b.Condition.ElseValue
	case b.Map != nil:
		if v, ok := b.Map.Mapping[stringify(raw)]; ok {
			return v
		}
		return b.Map.Fallback
	default:
		return raw
	}
}

// formatValue substitutes the value's string form for every occurrence of
// the literal placeholder {} in the format string.
func formatValue(format string, raw any) string {
	return strings.ReplaceAll(format, "{}", stringify(raw))
}

// stringify renders a JSON value the way it reads on the wire: numbers
// without a trailing .0, booleans as true/false, null as empty.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return stringifyJSON(t)
	}
}

// ProcessNode resolves every bound property of a node; literal values pass
// through unchanged. A node without properties yields an empty map.
func (r *Resolver) ProcessNode(n *layout.Node, scope map[string]any) map[string]any {
	out := make(map[string]any, len(n.Properties))
	for name, value := range n.Properties {
		if b, ok := FromValue(value); ok {
			out[name] = r.Resolve(b, n.Type, name, scope)
			continue
		}
		out[name] = value
	}
	return out
}

// ProcessTemplate stamps a node's item template once per list item, using
// each item object as the per-item scope. Items that are not objects get an
// empty scope, so their "item." bindings default-synthesize.
func (r *Resolver) ProcessTemplate(n *layout.Node, items []any) []map[string]any {
	if n.ItemTemplate == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		scope, ok := item.(map[string]any)
		if !ok {
			scope = map[string]any{}
		}
		out = append(out, r.ProcessNode(n.ItemTemplate, scope))
	}
	return out
}
