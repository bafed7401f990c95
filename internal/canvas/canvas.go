// Package canvas owns the live node and edge collections of an editing
// session and applies structural gestures to them.
package canvas

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/rendis/flowedit/internal/palette"
	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/pkg/schema"
)

// IDGenerator returns a candidate id for a new node of the given type.
type IDGenerator func(schema.NodeType) string

// UUIDGenerator produces "<type>-<uuid>" ids.
func UUIDGenerator(t schema.NodeType) string {
	return fmt.Sprintf("%s-%s", t, uuid.New().String())
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithReadOnly starts the canvas in read-only mode.
func WithReadOnly(readOnly bool) Option {
	return func(c *Canvas) { c.readOnly = readOnly }
}

// WithIDGenerator overrides node id generation.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Canvas) { c.newID = gen }
}

// Canvas is the single writer of nodes, edges, positions and selection.
// It is not safe for concurrent use.
type Canvas struct {
	nodes     []schema.Node
	edges     []schema.Edge
	selection Selection
	readOnly  bool
	newID     IDGenerator
	observers []func(Event)
}

// New creates a canvas holding a copy of g.
func New(g schema.Graph, opts ...Option) *Canvas {
	c := &Canvas{newID: UUIDGenerator}
	for _, opt := range opts {
		opt(c)
	}
	c.load(g)
	return c
}

// Observe registers fn to receive every applied change.
func (c *Canvas) Observe(fn func(Event)) {
	c.observers = append(c.observers, fn)
}

func (c *Canvas) emit(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
}

// ReadOnly reports whether mutating gestures are disabled.
func (c *Canvas) ReadOnly() bool { return c.readOnly }

// SetReadOnly toggles read-only mode. Selection keeps working either way.
func (c *Canvas) SetReadOnly(readOnly bool) { c.readOnly = readOnly }

func (c *Canvas) guard(op string) error {
	if c.readOnly {
		return schema.NewErrorf(schema.ErrCodeReadOnly, "canvas is read-only: %s not allowed", op)
	}
	return nil
}

// Load replaces the whole graph and clears the selection.
func (c *Canvas) Load(g schema.Graph) {
	c.load(g)
	c.emit(Event{Kind: EventLoaded})
}

func (c *Canvas) load(g schema.Graph) {
	cp := g.Clone()
	c.nodes, c.edges = cp.Nodes, cp.Edges
	c.selection = Selection{}
}

// Graph returns a deep copy of the current graph.
func (c *Canvas) Graph() schema.Graph {
	return schema.Graph{Nodes: c.nodes, Edges: c.edges}.Clone()
}

// Node returns a copy of the node with the given id.
func (c *Canvas) Node(id string) (schema.Node, bool) {
	i := c.nodeIndex(id)
	if i < 0 {
		return schema.Node{}, false
	}
	return c.nodes[i].Clone(), true
}

// Edges returns a copy of the edge collection.
func (c *Canvas) Edges() []schema.Edge {
	return slices.Clone(c.edges)
}

// NodeCount returns the number of nodes.
func (c *Canvas) NodeCount() int { return len(c.nodes) }

func (c *Canvas) nodeIndex(id string) int {
	return slices.IndexFunc(c.nodes, func(n schema.Node) bool { return n.ID == id })
}

func (c *Canvas) edgeIndex(id string) int {
	return slices.IndexFunc(c.edges, func(e schema.Edge) bool { return e.ID == id })
}

// AddNode appends a node with a fresh id and returns the id. Data is copied;
// a missing label defaults to the name.
func (c *Canvas) AddNode(t schema.NodeType, data schema.NodeData, pos schema.Position) (string, error) {
	if err := c.guard("add node"); err != nil {
		return "", err
	}
	if !t.Valid() {
		return "", schema.NewErrorf(schema.ErrCodeValidation, "unknown node type %q", t)
	}

	d := data.Clone()
	if d.String(schema.KeyLabel) == "" && d.Name() != "" {
		d[schema.KeyLabel] = d.Name()
	}

	id := c.freshNodeID(t)
	c.nodes = append(c.nodes, schema.Node{ID: id, Type: t, Position: pos, Data: d})
	c.emit(Event{Kind: EventNodeAdded, NodeID: id})
	return id, nil
}

// maxIDAttempts bounds how often an injected generator may collide before
// the canvas falls back to UUIDGenerator.
const maxIDAttempts = 8

func (c *Canvas) freshNodeID(t schema.NodeType) string {
	for range maxIDAttempts {
		if id := c.newID(t); id != "" && c.nodeIndex(id) < 0 {
			return id
		}
	}
	for {
		if id := UUIDGenerator(t); c.nodeIndex(id) < 0 {
			return id
		}
	}
}

// CreateNodeFromTemplate materializes a palette template at pos.
func (c *Canvas) CreateNodeFromTemplate(t palette.Template, pos schema.Position) (string, error) {
	return c.AddNode(t.Type, t.DefaultData(), pos)
}

// Drop materializes a drag payload at pos. Malformed payloads, drops without
// a preceding drag and drops on a read-only canvas are ignored.
func (c *Canvas) Drop(p palette.DragPayload, pos schema.Position) (string, bool) {
	if c.readOnly {
		return "", false
	}
	t, data, err := p.Decode()
	if err != nil {
		return "", false
	}
	id, err := c.AddNode(t, data, pos)
	if err != nil {
		return "", false
	}
	return id, true
}

// Connect adds an animated edge source -> target. It is rejected when either
// node is absent, when the handle topology forbids it, or when the same
// (source, target) edge already exists.
func (c *Canvas) Connect(source, target string) (string, error) {
	if err := c.guard("connect"); err != nil {
		return "", err
	}

	si, ti := c.nodeIndex(source), c.nodeIndex(target)
	if si < 0 || ti < 0 {
		missing := source
		if si >= 0 {
			missing = target
		}
		c.emit(Event{Kind: EventConnectRejected, NodeID: missing})
		return "", schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", missing).WithNode(missing)
	}

	src, dst := c.nodes[si], c.nodes[ti]
	if !render.CanSource(src.Type) {
		c.emit(Event{Kind: EventConnectRejected, NodeID: source})
		return "", schema.NewErrorf(schema.ErrCodeTopology, "%s nodes have no outgoing handle", src.Type).WithNode(source)
	}
	if !render.CanTarget(dst.Type) {
		c.emit(Event{Kind: EventConnectRejected, NodeID: target})
		return "", schema.NewErrorf(schema.ErrCodeTopology, "%s nodes have no incoming handle", dst.Type).WithNode(target)
	}

	g := schema.Graph{Edges: c.edges}
	if g.HasEdge(source, target) {
		c.emit(Event{Kind: EventConnectRejected, NodeID: source})
		return "", schema.NewErrorf(schema.ErrCodeDuplicateEdge, "edge %s -> %s already exists", source, target)
	}

	id := c.freshEdgeID(source, target)
	c.edges = append(c.edges, schema.Edge{ID: id, Source: source, Target: target, Animated: true})
	c.emit(Event{Kind: EventEdgeAdded, EdgeID: id})
	return id, nil
}

func (c *Canvas) freshEdgeID(source, target string) string {
	base := schema.EdgeID(source, target)
	id := base
	for n := 2; c.edgeIndex(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

// MoveNode updates a node's position. Edges carry no coordinates.
func (c *Canvas) MoveNode(id string, pos schema.Position) error {
	if err := c.guard("move node"); err != nil {
		return err
	}
	i := c.nodeIndex(id)
	if i < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	c.nodes[i].Position = pos
	c.emit(Event{Kind: EventNodeMoved, NodeID: id})
	return nil
}

// UpdateNodeData replaces a node's data with a copy of data.
func (c *Canvas) UpdateNodeData(id string, data schema.NodeData) error {
	if err := c.guard("update node"); err != nil {
		return err
	}
	i := c.nodeIndex(id)
	if i < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	c.nodes[i].Data = data.Clone()
	c.emit(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (c *Canvas) RemoveNode(id string) error {
	if err := c.guard("remove node"); err != nil {
		return err
	}
	i := c.nodeIndex(id)
	if i < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", id).WithNode(id)
	}
	c.nodes = slices.Delete(c.nodes, i, i+1)

	var removed []string
	c.edges = slices.DeleteFunc(c.edges, func(e schema.Edge) bool {
		if e.Source == id || e.Target == id {
			removed = append(removed, e.ID)
			return true
		}
		return false
	})

	if c.selection.is(SelectedNode, id) || (c.selection.Kind == SelectedEdge && slices.Contains(removed, c.selection.ID)) {
		c.setSelection(Selection{})
	}
	for _, eid := range removed {
		c.emit(Event{Kind: EventEdgeRemoved, EdgeID: eid})
	}
	c.emit(Event{Kind: EventNodeRemoved, NodeID: id})
	return nil
}

// RemoveEdge deletes an edge.
func (c *Canvas) RemoveEdge(id string) error {
	if err := c.guard("remove edge"); err != nil {
		return err
	}
	i := c.edgeIndex(id)
	if i < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "edge %q not found", id)
	}
	c.edges = slices.Delete(c.edges, i, i+1)
	if c.selection.is(SelectedEdge, id) {
		c.setSelection(Selection{})
	}
	c.emit(Event{Kind: EventEdgeRemoved, EdgeID: id})
	return nil
}

// Views renders every node with its selected flag.
func (c *Canvas) Views() []render.NodeView {
	out := make([]render.NodeView, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = render.RenderNode(n, c.selection.is(SelectedNode, n.ID))
	}
	return out
}
