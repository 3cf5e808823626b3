package layout

import "fmt"

// Patch operation kinds. Unrecognized kinds are ignored, not errors, so
// newer producers can ship operations older interpreters skip.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Op is a single structural patch operation.
//
// add/replace insert Nodes into the index and append their ids to the child
// list held by Property on the node TargetID; remove deletes IDs from the
// index only.
type Op struct {
	Op       string   `json:"op"`
	TargetID string   `json:"targetId,omitempty"`
	Property string   `json:"property,omitempty"`
	Nodes    []*Node  `json:"nodes,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

// OpFailure reports one operation that could not be applied.
type OpFailure struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// Apply applies operations best-effort, in order. A failed operation is
// reported and the rest still apply.
func (g *Graph) Apply(ops []Op) []OpFailure {
	var fails []OpFailure
	for i, op := range ops {
		var err error
		switch op.Op {
		case OpAdd, OpReplace:
			err = g.applyAdd(op)
		case OpRemove:
			g.Remove(op.IDs...)
		default:
			// Unknown op: skip silently for forward compatibility.
		}
		if err != nil {
			fails = append(fails, OpFailure{Index: i, Op: op.Op, Reason: err.Error()})
		}
	}
	return fails
}

// applyAdd indexes the new nodes and appends their ids to the target
// property's existing child-id list. Both the target node and the property
// must already exist.
func (g *Graph) applyAdd(op Op) error {
	target, ok := g.nodes[op.TargetID]
	if !ok {
		return fmt.Errorf("target node %q not found", op.TargetID)
	}
	if target.Properties == nil {
		return fmt.Errorf("target node %q has no properties", op.TargetID)
	}
	children, ok := target.Properties[op.Property]
	if !ok {
		return fmt.Errorf("target property %q not found on node %q", op.Property, op.TargetID)
	}
	list, ok := children.([]any)
	if !ok {
		return fmt.Errorf("target property %q on node %q is not a child list", op.Property, op.TargetID)
	}
	for _, n := range op.Nodes {
		if n == nil || n.ID == "" {
			continue
		}
		g.Put(n)
		list = append(list, n.ID)
	}
	target.Properties[op.Property] = list
	return nil
}
