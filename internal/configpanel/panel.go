// Package configpanel maps a node's (type, subtype) to a fixed form and turns
// field edits into full-replacement data patches.
package configpanel

import (
	"slices"

	"github.com/rendis/flowedit/pkg/schema"
)

// UnavailableMessage is shown for node types or subtypes without a form.
const UnavailableMessage = "No configuration available for this node type."

// FieldValue is a field together with the value to display.
type FieldValue struct {
	Field
	Value any  `json:"value,omitempty"`
	Set   bool `json:"set"`
}

// Form is the rendered configuration form of one node.
type Form struct {
	NodeID    string          `json:"node_id"`
	NodeType  schema.NodeType `json:"node_type"`
	Available bool            `json:"available"`
	Message   string          `json:"message,omitempty"`
	Fields    []FieldValue    `json:"fields"`
}

// Field returns the named field of the form.
func (f Form) Field(name string) (FieldValue, bool) {
	i := slices.IndexFunc(f.Fields, func(fv FieldValue) bool { return fv.Name == name })
	if i < 0 {
		return FieldValue{}, false
	}
	return f.Fields[i], true
}

// FieldsFor returns the field set for a node type and subtype: name first,
// then the subtype selector and variant fields, then description. ok is
// false when the combination has no configuration.
func FieldsFor(t schema.NodeType, subtype string) (fields []Field, ok bool) {
	fields = []Field{nameField}
	selector, known := subtypeFields[t]
	if !known {
		return append(fields, descriptionField), false
	}
	fields = append(fields, selector)

	variant, ok := variantFields[schema.Variant{Type: t, Subtype: subtype}]
	if !ok {
		return append(fields, descriptionField), false
	}
	fields = append(fields, variant...)
	return append(fields, descriptionField), true
}

// BuildForm renders the form of n. Defaults fill absent values for display
// only.
func BuildForm(n schema.Node) Form {
	fields, ok := FieldsFor(n.Type, n.Data.Subtype())
	form := Form{NodeID: n.ID, NodeType: n.Type, Available: ok}
	if !ok {
		form.Message = UnavailableMessage
	}
	for _, f := range fields {
		fv := FieldValue{Field: f}
		if v, set := n.Data[f.Name]; set {
			fv.Value, fv.Set = v, true
		} else {
			fv.Value = f.Default
		}
		form.Fields = append(form.Fields, fv)
	}
	return form
}

// Sink receives every merged data patch.
type Sink func(nodeID string, data schema.NodeData)

// Binding ties the panel to one node. It is not safe for concurrent use.
type Binding struct {
	nodeID   string
	nodeType schema.NodeType
	current  schema.NodeData
	sink     Sink
}

// Bind starts editing n. Patches go to sink.
func Bind(n schema.Node, sink Sink) *Binding {
	return &Binding{nodeID: n.ID, nodeType: n.Type, current: n.Data.Clone(), sink: sink}
}

// NodeID is the bound node.
func (b *Binding) NodeID() string { return b.nodeID }

// Data returns a copy of the data as last emitted.
func (b *Binding) Data() schema.NodeData { return b.current.Clone() }

// Form renders the bound node's current form.
func (b *Binding) Form() Form {
	return BuildForm(schema.Node{ID: b.nodeID, Type: b.nodeType, Data: b.current})
}

// Change sets field to value and emits {...current, field: value} right
// away. Nothing is validated; switching data.type leaves fields of other
// subtypes in place.
func (b *Binding) Change(field string, value any) schema.NodeData {
	b.current = b.current.With(field, value)
	if b.sink != nil {
		b.sink(b.nodeID, b.current.Clone())
	}
	return b.current.Clone()
}
