package render

import (
	"strconv"

	"github.com/rendis/flowedit/pkg/schema"
)

// Style is the visual treatment of a node type.
type Style struct {
	Accent string `json:"accent"`
	Tag    string `json:"tag"`
}

var styles = map[schema.NodeType]Style{
	schema.NodeTrigger:  {Accent: "blue", Tag: "TRG"},
	schema.NodeFunction: {Accent: "green", Tag: "FN"},
	schema.NodeAI:       {Accent: "purple", Tag: "AI"},
	schema.NodeAction:   {Accent: "red", Tag: "ACT"},
}

var neutralStyle = Style{Accent: "gray", Tag: "?"}

// StyleOf returns the style for t, or a neutral style for unknown types.
func StyleOf(t schema.NodeType) Style {
	if s, ok := styles[t]; ok {
		return s
	}
	return neutralStyle
}

// NodeView is the render output of one node.
type NodeView struct {
	ID       string          `json:"id"`
	Type     schema.NodeType `json:"type"`
	Label    string          `json:"label"`
	Subtitle string          `json:"subtitle,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	Style    Style           `json:"style"`
	Selected bool            `json:"selected"`
	Handles  []Handle        `json:"handles"`
}

// RenderNode is a pure function of the node's type, data and the selected flag.
func RenderNode(n schema.Node, selected bool) NodeView {
	return NodeView{
		ID:       n.ID,
		Type:     n.Type,
		Label:    n.Data.DisplayName(),
		Subtitle: n.Data.Subtype(),
		Detail:   detail(n),
		Style:    StyleOf(n.Type),
		Selected: selected,
		Handles:  Handles(n.Type),
	}
}

func detail(n schema.Node) string {
	p, ok := schema.DecodePayload(n.Type, n.Data)
	if !ok {
		return ""
	}
	switch v := p.(type) {
	case schema.LLMNode:
		return v.Model
	case schema.ScheduleTrigger:
		return v.CronExpression
	case schema.WebhookTrigger:
		return v.Path
	case schema.HTTPAction:
		if v.Method == "" {
			return v.URL
		}
		return v.Method + " " + v.URL
	case schema.AgentNode:
		if v.MaxSteps > 0 {
			return "max " + strconv.Itoa(v.MaxSteps) + " steps"
		}
	}
	return ""
}
