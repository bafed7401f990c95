package schema

// DefaultWorkflowName is the placeholder name of a workflow that has not
// been saved yet.
const DefaultWorkflowName = "New Workflow"

// Workflow is a named, persisted workflow graph plus its metadata.
// Timestamps are kept as the server sends them.
type Workflow struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsActive    bool     `json:"is_active"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags,omitempty"`
	Version     int      `json:"version,omitempty"`
	CreatedBy   int64    `json:"created_by,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	Nodes       []Node   `json:"nodes,omitempty"`
	Edges       []Edge   `json:"edges,omitempty"`

	// Definition is the graph as stored on a workflow version. Servers may
	// return the graph here instead of in Nodes/Edges.
	Definition *Graph `json:"definition,omitempty"`
}

// NewWorkflow returns the synthesized default for a new editing session.
func NewWorkflow() *Workflow {
	return &Workflow{
		Name:     DefaultWorkflowName,
		IsActive: true,
		IsPublic: false,
	}
}

// Graph returns the workflow's graph, preferring Nodes/Edges and falling back
// to Definition.
func (w *Workflow) Graph() Graph {
	if len(w.Nodes) > 0 || len(w.Edges) > 0 || w.Definition == nil {
		return Graph{Nodes: w.Nodes, Edges: w.Edges}.Clone()
	}
	return w.Definition.Clone()
}

// SetGraph replaces the workflow's graph with a copy of g.
func (w *Workflow) SetGraph(g Graph) {
	c := g.Clone()
	w.Nodes, w.Edges = c.Nodes, c.Edges
	w.Definition = nil
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	out := *w
	out.Tags = append([]string(nil), w.Tags...)
	g := w.Graph()
	out.Nodes, out.Edges = g.Nodes, g.Edges
	out.Definition = nil
	return &out
}

// WorkflowVersion is a stored revision of a workflow's definition.
type WorkflowVersion struct {
	ID         int64  `json:"id"`
	WorkflowID int64  `json:"workflow_id"`
	Version    int    `json:"version"`
	Definition Graph  `json:"definition"`
	CreatedBy  int64  `json:"created_by,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
