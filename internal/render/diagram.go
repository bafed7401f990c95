package render

import (
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// Diagram is the intermediate representation shared by the whole-graph
// renderers.
type Diagram struct {
	Title  string
	Nodes  []*DiagramNode
	Edges  []DiagramEdge
	Levels [][]string
}

// DiagramNode is one workflow node in a diagram.
type DiagramNode struct {
	ID      string
	Label   string
	Type    schema.NodeType
	Subtype string
	Status  *StatusOverlay
}

// StatusOverlay carries the last recorded execution state of a node.
type StatusOverlay struct {
	Status schema.NodeStatus
	Error  string
}

// DiagramEdge is a directed connection between two diagram nodes.
type DiagramEdge struct {
	From string
	To   string
}

// Build converts a workflow graph into a Diagram. When logs are given, each
// node carries the status of its latest log entry. Edges that reference
// missing nodes are dropped.
func Build(title string, g schema.Graph, logs []schema.ExecutionLog) *Diagram {
	d := &Diagram{Title: title}

	index := make(map[string]*DiagramNode, len(g.Nodes))
	for _, n := range g.Nodes {
		dn := &DiagramNode{
			ID:      n.ID,
			Label:   n.Data.DisplayName(),
			Type:    n.Type,
			Subtype: n.Data.Subtype(),
		}
		if dn.Label == "" {
			dn.Label = n.ID
		}
		d.Nodes = append(d.Nodes, dn)
		index[n.ID] = dn
	}

	for _, e := range g.Edges {
		if index[e.Source] == nil || index[e.Target] == nil {
			continue
		}
		d.Edges = append(d.Edges, DiagramEdge{From: e.Source, To: e.Target})
	}

	for _, l := range logs {
		if dn := index[l.NodeID]; dn != nil {
			dn.Status = &StatusOverlay{Status: l.Status, Error: l.ErrorMessage}
		}
	}

	d.Levels = levels(d.Nodes, d.Edges)
	return d
}

// levels groups nodes by longest distance from a root using Kahn's
// algorithm. Nodes trapped in cycles never reach in-degree zero; they are
// placed on one trailing level so every node is drawn.
func levels(nodes []*DiagramNode, edges []DiagramEdge) [][]string {
	inDegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
		inDegree[e.To]++
	}

	depth := make(map[string]int, len(nodes))
	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	placed := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		placed[id] = true
		for _, next := range adj[id] {
			if depth[id]+1 > depth[next] {
				depth[next] = depth[id] + 1
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	var out [][]string
	var stuck []string
	for _, n := range nodes {
		if !placed[n.ID] {
			stuck = append(stuck, n.ID)
			continue
		}
		lv := depth[n.ID]
		for len(out) <= lv {
			out = append(out, nil)
		}
		out[lv] = append(out[lv], n.ID)
	}
	if len(stuck) > 0 {
		out = append(out, stuck)
	}
	return out
}

// Node looks up a diagram node by id.
func (d *Diagram) Node(id string) *DiagramNode {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Format names an output format accepted by Render.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
	FormatPNG     Format = "png"
)

// Render renders d in the given text format. PNG output goes through
// RenderImage.
func Render(d *Diagram, f Format) (string, error) {
	switch f {
	case FormatMermaid, "":
		return RenderMermaid(d), nil
	case FormatASCII:
		return RenderASCII(d), nil
	default:
		return "", fmt.Errorf("render: unsupported text format %q", f)
	}
}
