package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/flowedit/pkg/schema"
)

var accentFill = map[schema.NodeType]string{
	schema.NodeTrigger:  "#dbeafe",
	schema.NodeFunction: "#dcfce7",
	schema.NodeAI:       "#f3e8ff",
	schema.NodeAction:   "#fee2e2",
}

// RenderImage renders a Diagram as a PNG image using graphviz.
func RenderImage(ctx context.Context, d *Diagram) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("render: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if d.Title != "" {
		graph.SetLabel(d.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(d.Nodes))
	for _, n := range d.Nodes {
		gvNode, nErr := graph.CreateNodeByName(n.ID)
		if nErr != nil {
			return nil, fmt.Errorf("render: create node %s: %w", n.ID, nErr)
		}
		gvNode.SetLabel(firstLine(n.Label))
		applyNodeStyle(gvNode, n)
		gvNodes[n.ID] = gvNode
	}

	for _, e := range d.Edges {
		from, to := gvNodes[e.From], gvNodes[e.To]
		if from == nil || to == nil {
			continue
		}
		if _, eErr := graph.CreateEdgeByName(schema.EdgeID(e.From, e.To), from, to); eErr != nil {
			return nil, fmt.Errorf("render: create edge %s->%s: %w", e.From, e.To, eErr)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func applyNodeStyle(gvNode *cgraph.Node, n *DiagramNode) {
	switch n.Type {
	case schema.NodeTrigger:
		gvNode.SetShape(cgraph.EllipseShape)
	case schema.NodeAI:
		gvNode.SetShape(cgraph.HexagonShape)
	case schema.NodeAction:
		gvNode.SetShape(cgraph.ParallelogramShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	gvNode.SetStyle(cgraph.FilledNodeStyle)
	if fill, ok := accentFill[n.Type]; ok {
		gvNode.SetFillColor(fill)
	} else {
		gvNode.SetFillColor("#f3f4f6")
	}

	if n.Status == nil {
		return
	}
	switch n.Status.Status {
	case schema.NodeCompleted:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case schema.NodeFailed:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case schema.NodeRunning:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case schema.NodePending:
		gvNode.SetFillColor("#d3d3d3")
	case schema.NodeSkipped:
		gvNode.SetFillColor("#e8e8e8")
		gvNode.SetFontColor("#888888")
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	}
}
