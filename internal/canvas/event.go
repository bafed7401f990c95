package canvas

// EventKind names a change applied by the canvas.
type EventKind string

const (
	EventLoaded           EventKind = "loaded"
	EventNodeAdded        EventKind = "node_added"
	EventNodeMoved        EventKind = "node_moved"
	EventNodeUpdated      EventKind = "node_updated"
	EventNodeRemoved      EventKind = "node_removed"
	EventEdgeAdded        EventKind = "edge_added"
	EventEdgeRemoved      EventKind = "edge_removed"
	EventSelectionChanged EventKind = "selection_changed"
	EventConnectRejected  EventKind = "connect_rejected"
)

// Event reports one change to observers.
type Event struct {
	Kind   EventKind `json:"kind"`
	NodeID string    `json:"node_id,omitempty"`
	EdgeID string    `json:"edge_id,omitempty"`
}

// Mutates reports whether the event changed the graph itself, as opposed to
// selection or a rejected gesture.
func (e Event) Mutates() bool {
	switch e.Kind {
	case EventNodeAdded, EventNodeMoved, EventNodeUpdated, EventNodeRemoved, EventEdgeAdded, EventEdgeRemoved:
		return true
	}
	return false
}
