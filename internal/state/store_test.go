package state

import (
	"reflect"
	"testing"
)

func TestReplace(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"user": map[string]any{"name": "Alice"}})
	got, err := s.Get("user.name")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Alice" {
		t.Errorf("got %v, want Alice", got)
	}

	s.Replace(map[string]any{"other": true})
	got, _ = s.Get("user.name")
	if !IsAbsent(got) {
		t.Errorf("old key should be gone after replace, got %v", got)
	}
}

func TestReplace_Nil(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"a": 1})
	s.Replace(nil)
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected empty state after nil replace, got %v", s.Snapshot())
	}
}

func TestMerge_ObjectsRecurse(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{
		"user": map[string]any{"name": "Alice", "age": float64(30)},
	})
	s.Merge(map[string]any{
		"user": map[string]any{"age": float64(31)},
	})

	if got, _ := s.Get("user.name"); got != "Alice" {
		t.Errorf("sibling key lost during merge: got %v", got)
	}
	if got, _ := s.Get("user.age"); got != float64(31) {
		t.Errorf("merged key = %v, want 31", got)
	}
}

func TestMerge_ArraysOverwrite(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"tags": []any{"a", "b", "c"}})
	s.Merge(map[string]any{"tags": []any{"z"}})

	got, _ := s.Get("tags")
	if !reflect.DeepEqual(got, []any{"z"}) {
		t.Errorf("arrays must overwrite, not merge: got %v", got)
	}
}

func TestMerge_ScalarsOverwrite(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"count": float64(1), "nested": map[string]any{"x": 1}})
	s.Merge(map[string]any{"nested": "flattened"})

	if got, _ := s.Get("nested"); got != "flattened" {
		t.Errorf("scalar over object should overwrite: got %v", got)
	}
	if got, _ := s.Get("nested.x"); !IsAbsent(got) {
		t.Errorf("path through overwritten object should be absent, got %v", got)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	partial := map[string]any{"user": map[string]any{"name": "Alice"}}
	s := NewStore()
	s.Merge(partial)
	first := s.Snapshot()
	s.Merge(partial)
	if !reflect.DeepEqual(s.Snapshot(), first) {
		t.Errorf("re-merging the same partial changed state: %v vs %v", s.Snapshot(), first)
	}
}

func TestGet_NullVsAbsent(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"present": nil})

	got, _ := s.Get("present")
	if got != nil || IsAbsent(got) {
		t.Errorf("explicit null should be nil, not absent: got %v", got)
	}
	got, _ = s.Get("missing")
	if !IsAbsent(got) {
		t.Errorf("missing key should be absent, got %v", got)
	}
}

func TestGet_ThroughNonObject(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"name": "Alice"})
	got, _ := s.Get("name.first")
	if !IsAbsent(got) {
		t.Errorf("traversal through a string should be absent, got %v", got)
	}
}

func TestGet_MalformedPath(t *testing.T) {
	s := NewStore()
	for _, path := range []string{"", "a..b", ".a", "a."} {
		if _, err := s.Get(path); err == nil {
			t.Errorf("Get(%q): expected error", path)
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"user": map[string]any{"name": "Alice"}})
	snap := s.Snapshot()
	snap["user"].(map[string]any)["name"] = "Mallory"

	if got, _ := s.Get("user.name"); got != "Alice" {
		t.Errorf("mutating a snapshot leaked into the store: got %v", got)
	}
}

func TestReplace_CopiesInput(t *testing.T) {
	in := map[string]any{"user": map[string]any{"name": "Alice"}}
	s := NewStore()
	s.Replace(in)
	in["user"].(map[string]any)["name"] = "Mallory"

	if got, _ := s.Get("user.name"); got != "Alice" {
		t.Errorf("mutating caller input leaked into the store: got %v", got)
	}
}
