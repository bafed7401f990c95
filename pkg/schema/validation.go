package schema

import "fmt"

// ValidationSeverity tells blocking problems from advisory ones.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem found in a graph. NodeID or EdgeID names
// the element it concerns; both are empty for graph-wide issues. Field is a
// dotted path inside the element, e.g. "data.cronExpression".
type ValidationIssue struct {
	NodeID   string             `json:"node_id,omitempty"`
	EdgeID   string             `json:"edge_id,omitempty"`
	Field    string             `json:"field,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// Path renders the location as nodes[id].field, edges[id].field, or the
// bare field for graph-wide issues.
func (i ValidationIssue) Path() string {
	var base string
	switch {
	case i.NodeID != "":
		base = "nodes[" + i.NodeID + "]"
	case i.EdgeID != "":
		base = "edges[" + i.EdgeID + "]"
	default:
		return i.Field
	}
	if i.Field == "" {
		return base
	}
	return base + "." + i.Field
}

func (i ValidationIssue) String() string {
	if p := i.Path(); p != "" {
		return p + ": " + i.Message
	}
	return i.Message
}

// ValidationResult collects what a validator found in one graph.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid reports whether there are no errors. Warnings do not count.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) add(i ValidationIssue) {
	if i.Severity == SeverityError {
		r.Errors = append(r.Errors, i)
		return
	}
	r.Warnings = append(r.Warnings, i)
}

// NodeError records an error on a node's field ("" for the node itself).
func (r *ValidationResult) NodeError(nodeID, field, code, message string) {
	r.add(ValidationIssue{NodeID: nodeID, Field: field, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) NodeWarning(nodeID, field, code, message string) {
	r.add(ValidationIssue{NodeID: nodeID, Field: field, Code: code, Message: message, Severity: SeverityWarning})
}

// EdgeError records an error on an edge; field is typically "source" or
// "target" when an endpoint is at fault.
func (r *ValidationResult) EdgeError(edgeID, field, code, message string) {
	r.add(ValidationIssue{EdgeID: edgeID, Field: field, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) EdgeWarning(edgeID, field, code, message string) {
	r.add(ValidationIssue{EdgeID: edgeID, Field: field, Code: code, Message: message, Severity: SeverityWarning})
}

// GraphError records an error about the graph as a whole, e.g. on "edges".
func (r *ValidationResult) GraphError(field, code, message string) {
	r.add(ValidationIssue{Field: field, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) GraphWarning(field, code, message string) {
	r.add(ValidationIssue{Field: field, Code: code, Message: message, Severity: SeverityWarning})
}

// Merge appends other's issues. A nil other is ignored.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ForNode returns the issues anchored on node id, errors first.
func (r *ValidationResult) ForNode(id string) []ValidationIssue {
	var out []ValidationIssue
	for _, list := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for _, i := range list {
			if i.NodeID == id {
				out = append(out, i)
			}
		}
	}
	return out
}

// ForEdge returns the issues anchored on edge id, errors first.
func (r *ValidationResult) ForEdge(id string) []ValidationIssue {
	var out []ValidationIssue
	for _, list := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for _, i := range list {
			if i.EdgeID == id {
				out = append(out, i)
			}
		}
	}
	return out
}

// ErrorNodes lists the nodes carrying at least one error, in first-seen
// order.
func (r *ValidationResult) ErrorNodes() []string {
	var out []string
	seen := map[string]bool{}
	for _, i := range r.Errors {
		if i.NodeID != "" && !seen[i.NodeID] {
			seen[i.NodeID] = true
			out = append(out, i.NodeID)
		}
	}
	return out
}

// ToError returns a VALIDATION_ERROR FlowError when there are errors, nil
// otherwise. A single node error is attributed to that node.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	first := r.Errors[0]
	msg := first.Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("graph has %d validation errors", len(r.Errors))
	}

	err := NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
			"nodes":         r.ErrorNodes(),
		})
	if len(r.Errors) == 1 && first.NodeID != "" {
		err = err.WithNode(first.NodeID)
	}
	return err
}
