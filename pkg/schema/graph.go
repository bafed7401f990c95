package schema

import "fmt"

// NodeType is the coarse category of a node. It governs handle topology,
// the configuration form and the rendering style.
type NodeType string

const (
	NodeTrigger  NodeType = "trigger"
	NodeFunction NodeType = "function"
	NodeAI       NodeType = "ai"
	NodeAction   NodeType = "action"
)

// NodeTypes lists every known NodeType in display order.
var NodeTypes = []NodeType{NodeTrigger, NodeFunction, NodeAI, NodeAction}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTrigger, NodeFunction, NodeAI, NodeAction:
		return true
	}
	return false
}

// Position is a point in canvas coordinates.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a typed vertex of a workflow graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()
	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Animated bool   `json:"animated,omitempty"`
}

// EdgeID derives the conventional edge id for a (source, target) pair.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

// Graph is the node and edge collections of a workflow.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// HasEdge reports whether an edge source -> target exists.
func (g *Graph) HasEdge(source, target string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// Empty reports whether the graph has no nodes and no edges.
func (g *Graph) Empty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Edges) == 0)
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, g.Edges)
	return out
}
