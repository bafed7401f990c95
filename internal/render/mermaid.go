package render

import (
	"fmt"
	"strings"

	"github.com/rendis/flowedit/pkg/schema"
)

// RenderMermaid renders a Diagram as a left-to-right Mermaid flowchart.
func RenderMermaid(d *Diagram) string {
	var b strings.Builder

	b.WriteString("graph LR\n")
	if d.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", d.Title)
	}

	for _, n := range d.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(n))
	}
	for _, e := range d.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", mermaidSafeID(e.From), mermaidSafeID(e.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef trigger stroke:#2563eb,stroke-width:2px\n")
	b.WriteString("    classDef function stroke:#16a34a,stroke-width:2px\n")
	b.WriteString("    classDef ai stroke:#9333ea,stroke-width:2px\n")
	b.WriteString("    classDef action stroke:#dc2626,stroke-width:2px\n")
	b.WriteString("    classDef completed fill:#2d6a2d,color:#fff\n")
	b.WriteString("    classDef failed fill:#8b1a1a,color:#fff\n")
	b.WriteString("    classDef running fill:#1a5276,color:#fff\n")
	b.WriteString("    classDef pending fill:#6b6b6b,color:#fff\n")
	b.WriteString("    classDef skipped fill:#4a4a4a,color:#aaa,stroke-dasharray:5 5\n")

	for _, n := range d.Nodes {
		id := mermaidSafeID(n.ID)
		if n.Type.Valid() {
			fmt.Fprintf(&b, "    class %s %s\n", id, n.Type)
		}
		if n.Status != nil && n.Status.Status != "" {
			fmt.Fprintf(&b, "    class %s %s\n", id, n.Status.Status)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a node definition whose shape follows the node type.
func mermaidNodeDef(n *DiagramNode) string {
	id := mermaidSafeID(n.ID)
	label := firstLine(n.Label)
	if n.Subtype != "" {
		label += " (" + n.Subtype + ")"
	}

	switch n.Type {
	case schema.NodeTrigger:
		return fmt.Sprintf("%s([%q])", id, label)
	case schema.NodeAI:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case schema.NodeAction:
		return fmt.Sprintf("%s[/%q/]", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
