package editor

import (
	"context"

	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/configpanel"
	"github.com/rendis/flowedit/internal/events"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/palette"
	"github.com/rendis/flowedit/pkg/schema"
)

// onCanvasEvent tracks graph changes and keeps the panel bound to the
// selected node.
func (s *Session) onCanvasEvent(ev canvas.Event) {
	ctx := context.Background()
	if ev.Mutates() {
		s.dirty = true
	}

	switch ev.Kind {
	case canvas.EventSelectionChanged:
		s.rebind()
		s.publish(ctx, events.Event{Type: events.TypeSelection, NodeID: ev.NodeID, EdgeID: ev.EdgeID})
	case canvas.EventConnectRejected:
		s.log(ctx).DebugContext(ctx, "connect rejected", "edge_id", ev.EdgeID)
	case canvas.EventLoaded:
	default:
		s.publish(ctx, events.Event{Type: events.TypeGraphChanged, NodeID: ev.NodeID, EdgeID: ev.EdgeID, Payload: string(ev.Kind)})
	}
}

func (s *Session) rebind() {
	n, ok := s.canvas.SelectedNode()
	if !ok {
		s.binding = nil
		return
	}
	s.binding = configpanel.Bind(n, s.writeNodeData)
}

// writeNodeData is the panel sink: every field change replaces the node's
// data on the canvas.
func (s *Session) writeNodeData(nodeID string, data schema.NodeData) {
	if err := s.canvas.UpdateNodeData(nodeID, data); err != nil {
		ctx := logging.WithNodeID(context.Background(), nodeID)
		s.log(ctx).DebugContext(ctx, "panel change not applied", "error", err)
	}
}

// AddNodeFromTemplate creates a node from the palette template with id
// templateID at pos.
func (s *Session) AddNodeFromTemplate(templateID string, pos schema.Position) (string, error) {
	if err := s.requireReady("add node"); err != nil {
		return "", err
	}
	t, ok := s.palette.Get(templateID)
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeNotFound, "template %q not found", templateID)
	}
	return s.canvas.CreateNodeFromTemplate(t, pos)
}

// Drop creates a node from a drag payload. Malformed payloads, read-only
// sessions and sessions that are not ready are ignored.
func (s *Session) Drop(p palette.DragPayload, pos schema.Position) (string, bool) {
	if s.state != StateReady {
		return "", false
	}
	return s.canvas.Drop(p, pos)
}

// Connect adds an edge. Rejections are silent at this layer: the result is
// false and the reason is logged at debug level.
func (s *Session) Connect(source, target string) (string, bool) {
	if s.state != StateReady {
		return "", false
	}
	id, err := s.canvas.Connect(source, target)
	if err != nil {
		ctx := context.Background()
		s.log(ctx).DebugContext(ctx, "connect ignored", "source", source, "target", target, "error", err)
		return "", false
	}
	return id, true
}

// MoveNode repositions a node.
func (s *Session) MoveNode(id string, pos schema.Position) error {
	if err := s.requireReady("move node"); err != nil {
		return err
	}
	return s.canvas.MoveNode(id, pos)
}

// RemoveNode deletes a node and its edges.
func (s *Session) RemoveNode(id string) error {
	if err := s.requireReady("remove node"); err != nil {
		return err
	}
	return s.canvas.RemoveNode(id)
}

// RemoveEdge deletes an edge.
func (s *Session) RemoveEdge(id string) error {
	if err := s.requireReady("remove edge"); err != nil {
		return err
	}
	return s.canvas.RemoveEdge(id)
}

// SelectNode selects a node and binds the configuration panel to it.
func (s *Session) SelectNode(id string) error {
	if err := s.requireReady("select node"); err != nil {
		return err
	}
	return s.canvas.SelectNode(id)
}

// SelectEdge selects an edge and hides the configuration panel.
func (s *Session) SelectEdge(id string) error {
	if err := s.requireReady("select edge"); err != nil {
		return err
	}
	return s.canvas.SelectEdge(id)
}

// ClearSelection deselects everything and hides the configuration panel.
func (s *Session) ClearSelection() {
	if s.state == StateReady {
		s.canvas.ClearSelection()
	}
}

// Panel returns the configuration form of the selected node.
func (s *Session) Panel() (configpanel.Form, bool) {
	if s.binding == nil {
		return configpanel.Form{}, false
	}
	return s.binding.Form(), true
}

// PanelNodeID returns the id of the node the panel is bound to, or "".
func (s *Session) PanelNodeID() string {
	if s.binding == nil {
		return ""
	}
	return s.binding.NodeID()
}

// ChangeField applies one panel field change to the selected node.
func (s *Session) ChangeField(field string, value any) (schema.NodeData, error) {
	if err := s.requireReady("change field"); err != nil {
		return nil, err
	}
	if s.binding == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "change field: no node selected")
	}
	if s.canvas.ReadOnly() {
		return nil, schema.NewError(schema.ErrCodeReadOnly, "change field: canvas is read-only").
			WithNode(s.binding.NodeID())
	}
	return s.binding.Change(field, value), nil
}
