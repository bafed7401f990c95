package canvas

import "github.com/rendis/flowedit/pkg/schema"

// SelectionKind tells what kind of element is selected.
type SelectionKind string

const (
	SelectedNone SelectionKind = ""
	SelectedNode SelectionKind = "node"
	SelectedEdge SelectionKind = "edge"
)

// Selection is the single selected element, if any.
type Selection struct {
	Kind SelectionKind `json:"kind,omitempty"`
	ID   string        `json:"id,omitempty"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return s.Kind == SelectedNone }

func (s Selection) is(kind SelectionKind, id string) bool {
	return s.Kind == kind && s.ID == id
}

// Selection returns the current selection.
func (c *Canvas) Selection() Selection { return c.selection }

// SelectedNode returns a copy of the selected node, if a node is selected.
func (c *Canvas) SelectedNode() (schema.Node, bool) {
	if c.selection.Kind != SelectedNode {
		return schema.Node{}, false
	}
	return c.Node(c.selection.ID)
}

// SelectNode selects a node, replacing any previous selection.
func (c *Canvas) SelectNode(id string) error {
	if c.nodeIndex(id) < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	c.setSelection(Selection{Kind: SelectedNode, ID: id})
	return nil
}

// SelectEdge selects an edge, replacing any previous selection.
func (c *Canvas) SelectEdge(id string) error {
	if c.edgeIndex(id) < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "edge %q not found", id)
	}
	c.setSelection(Selection{Kind: SelectedEdge, ID: id})
	return nil
}

// ClearSelection deselects everything.
func (c *Canvas) ClearSelection() {
	c.setSelection(Selection{})
}

func (c *Canvas) setSelection(s Selection) {
	if s == c.selection {
		return
	}
	c.selection = s
	c.emit(Event{Kind: EventSelectionChanged, NodeID: nodeOf(s), EdgeID: edgeOf(s)})
}

func nodeOf(s Selection) string {
	if s.Kind == SelectedNode {
		return s.ID
	}
	return ""
}

func edgeOf(s Selection) string {
	if s.Kind == SelectedEdge {
		return s.ID
	}
	return ""
}
