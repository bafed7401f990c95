package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known NodeData keys shared by every node type.
const (
	KeyLabel       = "label"
	KeyName        = "name"
	KeySubtype     = "type"
	KeyDescription = "description"
)

// NodeData is the open configuration map of a node. Keys that no form or
// payload knows about are carried through edits and serialization unchanged.
type NodeData map[string]any

// Clone returns a deep copy of d. Nested maps and slices are copied so the
// clone never shares mutable state with the original.
func (d NodeData) Clone() NodeData {
	if d == nil {
		return NodeData{}
	}
	out := make(NodeData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case NodeData:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, vv := range t {
			m[k] = vv
		}
		return m
	default:
		return v
	}
}

// With returns a copy of d with key set to value.
func (d NodeData) With(key string, value any) NodeData {
	out := d.Clone()
	out[key] = cloneValue(value)
	return out
}

// Merge returns a copy of d overlaid with patch.
func (d NodeData) Merge(patch NodeData) NodeData {
	out := d.Clone()
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the value at key as a string. Non-string scalars are
// formatted; missing keys yield "".
func (d NodeData) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value at key as an int. Numeric strings are accepted since
// form inputs report numbers as text.
func (d NodeData) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Label is the display label, falling back to name.
func (d NodeData) Label() string {
	if l := d.String(KeyLabel); l != "" {
		return l
	}
	return d.String(KeyName)
}

// DisplayName is what renderers show: the name, falling back to the label.
func (d NodeData) DisplayName() string {
	if n := d.String(KeyName); n != "" {
		return n
	}
	return d.String(KeyLabel)
}

// Name returns data.name.
func (d NodeData) Name() string { return d.String(KeyName) }

// Subtype returns data.type, the subtype within the node's NodeType.
func (d NodeData) Subtype() string { return d.String(KeySubtype) }
