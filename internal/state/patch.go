package state

import (
	"fmt"
	"strconv"
	"strings"
)

// Patch operation kinds (RFC 6902 subset).
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Op is a single state patch operation addressed by a JSON Pointer path.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// OpFailure reports one operation that could not be applied.
type OpFailure struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ApplyPatch applies operations best-effort: a failed operation is reported
// and the remaining operations still apply. Resilience over atomicity — the
// producer is a fallible upstream, and one bad pointer should not discard an
// otherwise usable update.
func (s *Store) ApplyPatch(ops []Op) []OpFailure {
	var fails []OpFailure
	for i, op := range ops {
		if err := s.applyOp(op); err != nil {
			fails = append(fails, OpFailure{Index: i, Op: op.Op, Path: op.Path, Reason: err.Error()})
		}
	}
	return fails
}

func (s *Store) applyOp(op Op) error {
	segs, err := parsePointer(op.Path)
	if err != nil {
		return err
	}
	switch op.Op {
	case OpAdd:
		return setAt(s.data, segs, deepCopy(op.Value), true)
	case OpReplace:
		return setAt(s.data, segs, deepCopy(op.Value), false)
	case OpRemove:
		return removeAt(s.data, segs)
	default:
		return fmt.Errorf("unsupported op %q", op.Op)
	}
}

// parsePointer splits an RFC 6901 pointer and unescapes ~1 and ~0.
func parsePointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, fmt.Errorf("empty pointer")
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", ptr)
	}
	raw := strings.Split(ptr[1:], "/")
	segs := make([]string, len(raw))
	for i, seg := range raw {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		segs[i] = seg
	}
	return segs, nil
}

// setAt writes value at the pointer target. With create set (add), missing
// intermediate objects are synthesized and the RFC 6901 "-" token appends to
// the target array; without it (replace), the target key or index must
// already exist.
func setAt(root map[string]any, segs []string, value any, create bool) error {
	parent, last, setParent, err := descend(root, segs, create)
	if err != nil {
		return err
	}
	switch container := parent.(type) {
	case map[string]any:
		if !create {
			if _, ok := container[last]; !ok {
				return fmt.Errorf("path target %q does not exist", last)
			}
		}
		container[last] = value
		return nil
	case []any:
		if last == "-" {
			if !create {
				return fmt.Errorf("cannot replace past-the-end index")
			}
			setParent(append(container, value))
			return nil
		}
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(container) {
			return fmt.Errorf("array index %q out of range", last)
		}
		container[idx] = value
		return nil
	default:
		return fmt.Errorf("parent is not a container")
	}
}

func removeAt(root map[string]any, segs []string) error {
	parent, last, setParent, err := descend(root, segs, false)
	if err != nil {
		return err
	}
	switch container := parent.(type) {
	case map[string]any:
		if _, ok := container[last]; !ok {
			return fmt.Errorf("path target %q does not exist", last)
		}
		delete(container, last)
		return nil
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(container) {
			return fmt.Errorf("array index %q out of range", last)
		}
		setParent(append(container[:idx], container[idx+1:]...))
		return nil
	default:
		return fmt.Errorf("parent is not a container")
	}
}

// descend walks to the parent container of the pointer target and returns
// it, the final segment, and a setter that writes a replacement parent back
// into its enclosing container. Slice operations need the setter: splicing
// or appending produces a new slice header that must be reassigned where the
// parent lives.
func descend(root map[string]any, segs []string, create bool) (any, string, func(any), error) {
	var cur any = root
	set := func(any) {} // the root map mutates in place and is never replaced
	for _, seg := range segs[:len(segs)-1] {
		switch container := cur.(type) {
		case map[string]any:
			next, ok := container[seg]
			if !ok {
				if !create {
					return nil, "", nil, fmt.Errorf("path segment %q does not exist", seg)
				}
				obj := map[string]any{}
				container[seg] = obj
				next = obj
			}
			cur = next
			key := seg
			set = func(v any) { container[key] = v }
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(container) {
				return nil, "", nil, fmt.Errorf("array index %q out of range", seg)
			}
			cur = container[idx]
			i := idx
			set = func(v any) { container[i] = v }
		default:
			return nil, "", nil, fmt.Errorf("path segment %q is not a container", seg)
		}
	}
	return cur, segs[len(segs)-1], set, nil
}
