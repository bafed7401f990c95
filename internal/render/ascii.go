package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rendis/flowedit/pkg/schema"
)

// statusTag returns a short indicator for a node status.
func statusTag(s schema.NodeStatus) string {
	switch s {
	case schema.NodeCompleted:
		return "[OK]"
	case schema.NodeFailed:
		return "[FAIL]"
	case schema.NodeRunning:
		return "[RUN]"
	case schema.NodeSkipped:
		return "[SKIP]"
	case schema.NodePending:
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a Diagram as rows of boxes, one row per level, followed
// by the edge list.
func RenderASCII(d *Diagram) string {
	var b strings.Builder

	if d.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", d.Title)
	}

	for i, level := range d.Levels {
		var boxes []asciiBox
		for _, id := range level {
			if n := d.Node(id); n != nil {
				boxes = append(boxes, makeBox(n))
			}
		}
		renderBoxRow(&b, boxes)
		if i < len(d.Levels)-1 && len(boxes) > 0 {
			b.WriteString("       │\n")
			b.WriteString("       ▼\n")
		}
	}

	if len(d.Edges) > 0 {
		b.WriteString("\nedges:\n")
		for _, e := range d.Edges {
			fmt.Fprintf(&b, "  %s ─→ %s\n", e.From, e.To)
		}
	}

	return b.String()
}

type asciiBox struct {
	lines []string
	width int
}

func makeBox(n *DiagramNode) asciiBox {
	content := []string{StyleOf(n.Type).Tag + " " + firstLine(n.Label)}
	if n.Subtype != "" {
		content = append(content, n.Subtype)
	}
	if n.Status != nil {
		if tag := statusTag(n.Status.Status); tag != "" {
			content = append(content, tag)
		}
	}

	maxLen := 0
	for _, line := range content {
		maxLen = max(maxLen, utf8.RuneCountInString(line))
	}
	width := maxLen + 4

	lines := []string{"┌" + strings.Repeat("─", width-2) + "┐"}
	for _, line := range content {
		pad := strings.Repeat(" ", maxLen-utf8.RuneCountInString(line))
		lines = append(lines, "│ "+line+pad+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")

	return asciiBox{lines: lines, width: width}
}

func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	height := 0
	for _, box := range boxes {
		height = max(height, len(box.lines))
	}

	for row := 0; row < height; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}
