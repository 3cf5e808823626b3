package state

import (
	"reflect"
	"testing"
)

func TestApplyPatch_Add(t *testing.T) {
	s := NewStore()
	fails := s.ApplyPatch([]Op{
		{Op: OpAdd, Path: "/user/name", Value: "Alice"},
	})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	if got, _ := s.Get("user.name"); got != "Alice" {
		t.Errorf("got %v, want Alice", got)
	}
}

func TestApplyPatch_AddSynthesizesIntermediates(t *testing.T) {
	s := NewStore()
	fails := s.ApplyPatch([]Op{
		{Op: OpAdd, Path: "/a/b/c", Value: float64(1)},
	})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	if got, _ := s.Get("a.b.c"); got != float64(1) {
		t.Errorf("got %v, want 1", got)
	}
}

func TestApplyPatch_ReplaceRequiresTarget(t *testing.T) {
	s := NewStore()
	fails := s.ApplyPatch([]Op{
		{Op: OpReplace, Path: "/missing", Value: 1},
	})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want 1", fails)
	}
}

func TestApplyPatch_Remove(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"a": float64(1), "b": float64(2)})
	fails := s.ApplyPatch([]Op{{Op: OpRemove, Path: "/a"}})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	if got, _ := s.Get("a"); !IsAbsent(got) {
		t.Errorf("removed key still present: %v", got)
	}
	if got, _ := s.Get("b"); got != float64(2) {
		t.Errorf("untouched key = %v, want 2", got)
	}
}

func TestApplyPatch_BestEffort(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"a": float64(1)})
	fails := s.ApplyPatch([]Op{
		{Op: OpReplace, Path: "/a", Value: float64(10)},
		{Op: OpRemove, Path: "/nope"},
		{Op: OpAdd, Path: "/b", Value: float64(2)},
	})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want exactly 1", fails)
	}
	if fails[0].Index != 1 {
		t.Errorf("failure index = %d, want 1", fails[0].Index)
	}
	// Operations after the failure still applied.
	if got, _ := s.Get("a"); got != float64(10) {
		t.Errorf("a = %v, want 10", got)
	}
	if got, _ := s.Get("b"); got != float64(2) {
		t.Errorf("b = %v, want 2", got)
	}
}

func TestApplyPatch_ArrayIndex(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"items": []any{"a", "b"}})
	fails := s.ApplyPatch([]Op{{Op: OpReplace, Path: "/items/1", Value: "z"}})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	got, _ := s.Get("items")
	if !reflect.DeepEqual(got, []any{"a", "z"}) {
		t.Errorf("items = %v", got)
	}
}

func TestApplyPatch_ArrayIndexOutOfRange(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"items": []any{"a"}})
	fails := s.ApplyPatch([]Op{{Op: OpReplace, Path: "/items/5", Value: "z"}})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want 1", fails)
	}
}

func TestApplyPatch_ArrayRemove(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []any
	}{
		{"middle", "/items/1", []any{"a", "c"}},
		{"front", "/items/0", []any{"b", "c"}},
		{"back", "/items/2", []any{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Replace(map[string]any{"items": []any{"a", "b", "c"}})
			fails := s.ApplyPatch([]Op{{Op: OpRemove, Path: tt.path}})
			if len(fails) != 0 {
				t.Fatalf("failures = %v, want none", fails)
			}
			got, _ := s.Get("items")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyPatch_NestedArrayRemove(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"cart": map[string]any{"items": []any{"a", "b", "c"}}})
	fails := s.ApplyPatch([]Op{{Op: OpRemove, Path: "/cart/items/1"}})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	got, _ := s.Get("cart.items")
	if !reflect.DeepEqual(got, []any{"a", "c"}) {
		t.Errorf("cart.items = %v, want [a c]", got)
	}
}

func TestApplyPatch_ArrayRemoveOutOfRange(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"items": []any{"a"}})
	fails := s.ApplyPatch([]Op{{Op: OpRemove, Path: "/items/3"}})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want 1", fails)
	}
	got, _ := s.Get("items")
	if !reflect.DeepEqual(got, []any{"a"}) {
		t.Errorf("items = %v, want untouched [a]", got)
	}
}

func TestApplyPatch_ArrayAppend(t *testing.T) {
	s := NewStore()
	s.Replace(map[string]any{"items": []any{"a", "b"}})
	fails := s.ApplyPatch([]Op{{Op: OpAdd, Path: "/items/-", Value: "c"}})
	if len(fails) != 0 {
		t.Fatalf("failures = %v, want none", fails)
	}
	got, _ := s.Get("items")
	if !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Errorf("items = %v, want [a b c]", got)
	}

	// "-" names no existing element, so replace cannot use it.
	fails = s.ApplyPatch([]Op{{Op: OpReplace, Path: "/items/-", Value: "z"}})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want 1", fails)
	}
}

func TestApplyPatch_UnknownOp(t *testing.T) {
	s := NewStore()
	fails := s.ApplyPatch([]Op{{Op: "move", Path: "/a"}})
	if len(fails) != 1 {
		t.Fatalf("failures = %v, want 1", fails)
	}
}

func TestParsePointer(t *testing.T) {
	segs, err := parsePointer("/a/b~1c/d~0e")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b/c", "d~e"}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("segments = %v, want %v", segs, want)
	}

	for _, bad := range []string{"", "no-slash"} {
		if _, err := parsePointer(bad); err == nil {
			t.Errorf("parsePointer(%q): expected error", bad)
		}
	}
}
