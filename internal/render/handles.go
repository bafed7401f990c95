package render

import "github.com/rendis/flowedit/pkg/schema"

// HandleKind is the direction of a connection point.
type HandleKind string

const (
	HandleSource HandleKind = "source"
	HandleTarget HandleKind = "target"
)

// Side is where a handle sits on the node box.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Handle is a single connection point of a rendered node.
type Handle struct {
	Kind HandleKind `json:"kind"`
	Side Side       `json:"side"`
}

var (
	inHandle  = Handle{Kind: HandleTarget, Side: SideLeft}
	outHandle = Handle{Kind: HandleSource, Side: SideRight}
)

// handleTable is the only place handle topology is defined. Renderers and
// connection checks both derive from it.
var handleTable = map[schema.NodeType][]Handle{
	schema.NodeTrigger:  {outHandle},
	schema.NodeFunction: {inHandle, outHandle},
	schema.NodeAI:       {inHandle, outHandle},
	schema.NodeAction:   {inHandle},
}

// Handles returns the connection points exposed by a node type. Unknown types
// expose none.
func Handles(t schema.NodeType) []Handle {
	return append([]Handle(nil), handleTable[t]...)
}

func hasHandle(t schema.NodeType, kind HandleKind) bool {
	for _, h := range handleTable[t] {
		if h.Kind == kind {
			return true
		}
	}
	return false
}

// CanSource reports whether edges may leave a node of type t.
func CanSource(t schema.NodeType) bool { return hasHandle(t, HandleSource) }

// CanTarget reports whether edges may enter a node of type t.
func CanTarget(t schema.NodeType) bool { return hasHandle(t, HandleTarget) }

// CanConnect reports whether an edge from a node of type src to one of type
// dst respects handle topology.
func CanConnect(src, dst schema.NodeType) bool {
	return CanSource(src) && CanTarget(dst)
}
