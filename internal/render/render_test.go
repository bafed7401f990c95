package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func TestHandles_Topology(t *testing.T) {
	tests := []struct {
		typ       schema.NodeType
		canSource bool
		canTarget bool
	}{
		{schema.NodeTrigger, true, false},
		{schema.NodeFunction, true, true},
		{schema.NodeAI, true, true},
		{schema.NodeAction, false, true},
		{schema.NodeType("unknown"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.canSource, CanSource(tt.typ))
			assert.Equal(t, tt.canTarget, CanTarget(tt.typ))

			for _, h := range Handles(tt.typ) {
				switch h.Kind {
				case HandleSource:
					assert.Equal(t, SideRight, h.Side)
				case HandleTarget:
					assert.Equal(t, SideLeft, h.Side)
				}
			}
		})
	}
}

func TestHandles_TriggerAndActionNeverBoth(t *testing.T) {
	for _, typ := range []schema.NodeType{schema.NodeTrigger, schema.NodeAction} {
		hs := Handles(typ)
		require.Len(t, hs, 1, typ)
	}
	assert.False(t, CanConnect(schema.NodeFunction, schema.NodeTrigger))
	assert.False(t, CanConnect(schema.NodeAction, schema.NodeFunction))
	assert.True(t, CanConnect(schema.NodeTrigger, schema.NodeAction))
}

func TestHandles_ReturnsCopy(t *testing.T) {
	hs := Handles(schema.NodeFunction)
	hs[0].Side = SideRight
	assert.Equal(t, SideLeft, Handles(schema.NodeFunction)[0].Side)
}

func TestRenderNode(t *testing.T) {
	n := schema.Node{
		ID:   "ai-1",
		Type: schema.NodeAI,
		Data: schema.NodeData{"name": "LLM", "type": "llm", "model": "gpt-4"},
	}

	v := RenderNode(n, true)
	assert.Equal(t, "LLM", v.Label)
	assert.Equal(t, "llm", v.Subtitle)
	assert.Equal(t, "gpt-4", v.Detail)
	assert.Equal(t, "purple", v.Style.Accent)
	assert.True(t, v.Selected)
	assert.Len(t, v.Handles, 2)

	assert.Equal(t, v, RenderNode(n, true), "rendering is deterministic")
	assert.False(t, RenderNode(n, false).Selected)
}

func TestRenderNode_LabelFollowsName(t *testing.T) {
	tests := []struct {
		name string
		data schema.NodeData
		want string
	}{
		{"renamed after creation", schema.NodeData{"label": "Filter", "name": "Drop refunds"}, "Drop refunds"},
		{"label only", schema.NodeData{"label": "Imported"}, "Imported"},
		{"name only", schema.NodeData{"name": "Start"}, "Start"},
		{"neither", schema.NodeData{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := RenderNode(schema.Node{ID: "f1", Type: schema.NodeFunction, Data: tt.data}, false)
			assert.Equal(t, tt.want, v.Label)
		})
	}
}

func TestRenderNode_UnknownType(t *testing.T) {
	v := RenderNode(schema.Node{ID: "x", Type: "mystery", Data: schema.NodeData{"label": "X"}}, false)
	assert.Equal(t, "gray", v.Style.Accent)
	assert.Empty(t, v.Handles)
	assert.Empty(t, v.Detail)
}

func sampleGraph() schema.Graph {
	return schema.Graph{
		Nodes: []schema.Node{
			{ID: "trigger-1", Type: schema.NodeTrigger, Data: schema.NodeData{"name": "Every hour", "type": "schedule"}},
			{ID: "fn-1", Type: schema.NodeFunction, Data: schema.NodeData{"name": "Filter", "type": "filter"}},
			{ID: "ai-1", Type: schema.NodeAI, Data: schema.NodeData{"name": "Summarize", "type": "llm"}},
			{ID: "act-1", Type: schema.NodeAction, Data: schema.NodeData{"name": "Notify", "type": "email"}},
		},
		Edges: []schema.Edge{
			{ID: "e1", Source: "trigger-1", Target: "fn-1"},
			{ID: "e2", Source: "fn-1", Target: "ai-1"},
			{ID: "e3", Source: "ai-1", Target: "act-1"},
			{ID: "e4", Source: "trigger-1", Target: "act-1"},
			{ID: "e5", Source: "ghost", Target: "act-1"},
		},
	}
}

func TestBuild_Levels(t *testing.T) {
	d := Build("Pipeline", sampleGraph(), nil)

	require.Len(t, d.Nodes, 4)
	assert.Len(t, d.Edges, 4, "edge to a missing node is dropped")
	assert.Equal(t, [][]string{{"trigger-1"}, {"fn-1"}, {"ai-1"}, {"act-1"}}, d.Levels)
}

func TestBuild_CycleGoesToTrailingLevel(t *testing.T) {
	g := schema.Graph{
		Nodes: []schema.Node{
			{ID: "t", Type: schema.NodeTrigger},
			{ID: "a", Type: schema.NodeFunction},
			{ID: "b", Type: schema.NodeFunction},
		},
		Edges: []schema.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}
	d := Build("", g, nil)
	assert.Equal(t, [][]string{{"t"}, {"a", "b"}}, d.Levels)
	assert.Equal(t, "a", d.Node("a").Label, "label falls back to id")
}

func TestBuild_StatusOverlay(t *testing.T) {
	logs := []schema.ExecutionLog{
		{NodeID: "fn-1", Status: schema.NodeRunning},
		{NodeID: "fn-1", Status: schema.NodeCompleted},
		{NodeID: "act-1", Status: schema.NodeFailed, ErrorMessage: "smtp down"},
	}
	d := Build("", sampleGraph(), logs)

	assert.Equal(t, schema.NodeCompleted, d.Node("fn-1").Status.Status)
	assert.Equal(t, "smtp down", d.Node("act-1").Status.Error)
	assert.Nil(t, d.Node("ai-1").Status)
}

func TestRenderMermaid(t *testing.T) {
	d := Build("Pipeline", sampleGraph(), []schema.ExecutionLog{{NodeID: "fn-1", Status: schema.NodeCompleted}})
	out := RenderMermaid(d)

	assert.Contains(t, out, "graph LR")
	assert.Contains(t, out, "%% Pipeline")
	assert.Contains(t, out, `trigger_1(["Every hour (schedule)"])`)
	assert.Contains(t, out, `ai_1{{"Summarize (llm)"}}`)
	assert.Contains(t, out, `act_1[/"Notify (email)"/]`)
	assert.Contains(t, out, "trigger_1 --> fn_1")
	assert.Contains(t, out, "class fn_1 completed")
	assert.Contains(t, out, "class ai_1 ai")
}

func TestRenderASCII(t *testing.T) {
	d := Build("Pipeline", sampleGraph(), []schema.ExecutionLog{{NodeID: "act-1", Status: schema.NodeFailed}})
	out := RenderASCII(d)

	assert.Contains(t, out, "=== Pipeline ===")
	assert.Contains(t, out, "TRG Every hour")
	assert.Contains(t, out, "ACT Notify")
	assert.Contains(t, out, "[FAIL]")
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "▼")
	assert.Contains(t, out, "trigger-1 ─→ fn-1")
}

func TestRender_Formats(t *testing.T) {
	d := Build("", sampleGraph(), nil)

	out, err := Render(d, FormatASCII)
	require.NoError(t, err)
	assert.Contains(t, out, "FN Filter")

	_, err = Render(d, FormatPNG)
	assert.Error(t, err)
}

func TestRenderImage(t *testing.T) {
	d := Build("Pipeline", sampleGraph(), []schema.ExecutionLog{{NodeID: "fn-1", Status: schema.NodeSkipped}})

	png, err := RenderImage(context.Background(), d)
	require.NoError(t, err)
	require.True(t, len(png) > 8)
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}
