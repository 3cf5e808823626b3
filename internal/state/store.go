// Package state holds the shared state object a surface session binds
// against. State mutates only through full replacement, deep merge, or the
// patch operations in patch.go.
package state

import (
	"fmt"
	"strings"
)

// absent is the marker returned when a path cannot be traversed. It is a
// distinct type so callers can tell "key holds null" from "path unreachable".
type absent struct{}

// Absent is the single marker value for unreachable paths.
var Absent = absent{}

// IsAbsent reports whether v is the unreachable-path marker.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// Store owns the current state tree. It is not safe for concurrent use; the
// interpreter that owns it processes messages one at a time.
type Store struct {
	data map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: map[string]any{}}
}

// Replace atomically discards the prior state.
func (s *Store) Replace(next map[string]any) {
	if next == nil {
		next = map[string]any{}
	}
	s.data = deepCopyMap(next)
}

// Merge deep-merges partial into the current state: object values recurse,
// everything else (arrays included) overwrites outright. Merge cannot delete
// keys; deletions go through the patch operations.
func (s *Store) Merge(partial map[string]any) {
	mergeInto(s.data, partial)
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if srcObj, ok := v.(map[string]any); ok {
			if dstObj, ok := dst[k].(map[string]any); ok {
				mergeInto(dstObj, srcObj)
				continue
			}
		}
		dst[k] = deepCopy(v)
	}
}

// Get traverses a dot-separated path and returns the value at it, or Absent
// when any intermediate segment is missing or not an object. A malformed
// path (empty segment) is a caller error.
func (s *Store) Get(path string) (any, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Absent, err
	}
	return Lookup(s.data, segs), nil
}

// Lookup walks segments through an arbitrary object tree. It is shared with
// scoped (per-item) resolution, which traverses a plain map the same way.
func Lookup(root map[string]any, segments []string) any {
	var cur any = root
	for _, seg := range segments {
		obj, ok := cur.(map[string]any)
		if !ok {
			return Absent
		}
		cur, ok = obj[seg]
		if !ok {
			return Absent
		}
	}
	return cur
}

// SplitPath validates and splits a dot-separated binding path.
func SplitPath(path string) ([]string, error) {
	return splitPath(path)
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("state: empty path")
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("state: malformed path %q", path)
		}
	}
	return segs, nil
}

// Snapshot returns a deep copy of the current state tree, safe to hand to
// observers and renderers.
func (s *Store) Snapshot() map[string]any {
	return deepCopyMap(s.data)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}
