// Package layout owns the graph of UI nodes for one surface session. Nodes
// reference each other only by string id through an arena-style index; a
// dangling id fails lookup instead of dangling a pointer, which keeps cycles
// and removals safe.
package layout

// Node is a single UI element instance. Properties hold either literal JSON
// values or binding objects (decoded by the binding package); child
// references are lists of node id strings inside Properties.
type Node struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Properties   map[string]any `json:"properties,omitempty"`
	ItemTemplate *Node          `json:"itemTemplate,omitempty"`
}

// Graph is the set of all known nodes plus the declared root id. Until the
// root id resolves to a buffered node the graph is buffering and not fit for
// external consumption.
type Graph struct {
	nodes map[string]*Node
	root  string
}

// NewGraph creates an empty node buffer with no root declared.
func NewGraph() *Graph {
	return &Graph{nodes: map[string]*Node{}}
}

// Put adds a node to the index. A later node with an existing id overwrites
// the earlier one outright; there is no node-level merge.
func (g *Graph) Put(n *Node) {
	if n == nil || n.ID == "" {
		return
	}
	g.nodes[n.ID] = n
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Remove deletes nodes by id. References to a removed node from other nodes'
// properties are left in place; renderers treat ids that fail lookup as
// absent leaves.
func (g *Graph) Remove(ids ...string) {
	for _, id := range ids {
		delete(g.nodes, id)
	}
}

// SetRoot records the declared root id. The root may name a node that has
// not arrived yet.
func (g *Graph) SetRoot(id string) {
	g.root = id
}

// Root returns the declared root id ("" until a root message arrives).
func (g *Graph) Root() string {
	return g.root
}

// Ready reports whether the declared root resolves to a buffered node.
func (g *Graph) Ready() bool {
	if g.root == "" {
		return false
	}
	_, ok := g.nodes[g.root]
	return ok
}

// Len returns the number of buffered nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Snapshot is a read-only deep copy of the graph handed to observers.
type Snapshot struct {
	Root  string           `json:"root,omitempty"`
	Nodes map[string]*Node `json:"nodes"`
}

// Snapshot deep-copies the graph.
func (g *Graph) Snapshot() *Snapshot {
	nodes := make(map[string]*Node, len(g.nodes))
	for id, n := range g.nodes {
		nodes[id] = n.clone()
	}
	return &Snapshot{Root: g.root, Nodes: nodes}
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{ID: n.ID, Type: n.Type, ItemTemplate: n.ItemTemplate.clone()}
	if n.Properties != nil {
		out.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = copyValue(v)
		}
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
