package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/pkg/schema"
)

func TestAIRequest(t *testing.T) {
	tests := []struct {
		name     string
		node     schema.Node
		wantKind api.AIKind
		wantBody map[string]any
		wantErr  string
	}{
		{
			name:     "llm defaults",
			node:     schema.Node{ID: "a", Type: schema.NodeAI, Data: schema.NodeData{"type": "llm", "model": "GPT-4", "prompt": "hi"}},
			wantKind: api.AILLM,
			wantBody: map[string]any{"model": "gpt-4", "provider": "openai", "prompt": "hi", "max_tokens": 1000},
		},
		{
			name:     "llm numeric string",
			node:     schema.Node{ID: "a", Type: schema.NodeAI, Data: schema.NodeData{"type": "llm", "model": "claude-3-opus", "prompt": "hi", "maxTokens": "256"}},
			wantKind: api.AILLM,
			wantBody: map[string]any{"model": "claude-3-opus", "provider": "openai", "prompt": "hi", "max_tokens": 256},
		},
		{
			name:    "llm blank prompt",
			node:    schema.Node{ID: "a", Type: schema.NodeAI, Data: schema.NodeData{"type": "llm", "prompt": "   "}},
			wantErr: MsgLLMPrompt,
		},
		{
			name:     "agent",
			node:     schema.Node{ID: "g", Type: schema.NodeAI, Data: schema.NodeData{"type": "agent", "goal": "triage", "maxSteps": 3.0}},
			wantKind: api.AIAgent,
			wantBody: map[string]any{"agent_type": "general", "goal": "triage", "model": "gpt-4", "provider": "openai", "max_steps": 3},
		},
		{
			name:    "agent without goal",
			node:    schema.Node{ID: "g", Type: schema.NodeAI, Data: schema.NodeData{"type": "agent"}},
			wantErr: MsgAgentGoal,
		},
		{
			name:     "content",
			node:     schema.Node{ID: "c", Type: schema.NodeAI, Data: schema.NodeData{"type": "content-gen", "prompt": "tagline", "contentType": "marketing"}},
			wantKind: api.AIContent,
			wantBody: map[string]any{"content_type": "marketing", "prompt": "tagline", "model": "gpt-4", "provider": "openai"},
		},
		{
			name:    "content without prompt",
			node:    schema.Node{ID: "c", Type: schema.NodeAI, Data: schema.NodeData{"type": "content-gen"}},
			wantErr: MsgContentPrompt,
		},
		{
			name:    "not ai",
			node:    schema.Node{ID: "h", Type: schema.NodeAction, Data: schema.NodeData{"type": "http"}},
			wantErr: "not a testable AI node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, body, err := AIRequest(tt.node)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestTestNode(t *testing.T) {
	deps, backend := newBackend(t)
	s := openSession(t, deps, Options{IsNew: true})

	id, err := s.AddNodeFromTemplate("llm-node", schema.Position{})
	require.NoError(t, err)

	_, err = s.TestNode(context.Background(), id)
	assert.ErrorContains(t, err, MsgLLMPrompt)
	assert.Empty(t, backend.RequestsTo("POST /ai/llm/process"))

	require.NoError(t, s.SelectNode(id))
	_, err = s.ChangeField("prompt", "classify this order")
	require.NoError(t, err)

	out, err := s.TestNode(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, string(out), "classify this order")

	body := backend.LastRequest("POST /ai/llm/process").Body
	assert.Equal(t, "gpt-4", body["model"])
	assert.Equal(t, "openai", body["provider"])
	assert.Equal(t, 1000.0, body["max_tokens"])

	backend.Fail("POST /ai/llm/process", http.StatusInternalServerError, "model overloaded")
	_, err = s.TestNode(context.Background(), id)
	assert.Equal(t, "model overloaded", api.Message(err, FallbackTestNode))

	_, err = s.TestNode(context.Background(), "missing")
	assert.True(t, schema.HasCode(err, schema.ErrCodeNotFound))
}

func TestSuggestAndApply(t *testing.T) {
	deps, backend := newBackend(t)
	s := openSession(t, deps, Options{IsNew: true})

	_, err := s.Suggest(context.Background(), "  ")
	assert.ErrorContains(t, err, MsgSuggestPrompt)

	backend.Respond("POST /ai/workflow/suggest", http.StatusOK, map[string]any{
		"message": "Workflow suggestion generated",
		"workflow": map[string]any{
			"nodes": []map[string]any{
				{"id": "node_0", "type": "trigger", "position": map[string]any{"x": 100, "y": 100}, "data": map[string]any{"name": "Email Trigger", "type": "email"}},
				{"id": "node_1", "type": "ai", "position": map[string]any{"x": 300, "y": 100}, "data": map[string]any{"name": "Summarize", "type": "llm"}},
				{"id": "node_2", "type": "widget", "data": map[string]any{}},
			},
			"edges": []map[string]any{
				{"id": "edge_node_0_1", "source": "node_0", "target": "node_1"},
				{"id": "edge_node_1_0", "source": "node_1", "target": "node_0"},
			},
		},
	})

	sg, err := s.Suggest(context.Background(), "summarize incoming email")
	require.NoError(t, err)
	assert.Len(t, sg.Graph.Nodes, 3)
	assert.Equal(t, "summarize incoming email", backend.LastRequest("POST /ai/workflow/suggest").Body["prompt"])

	added, err := s.ApplySuggestion(sg, schema.Position{X: 10})
	require.NoError(t, err)
	require.Len(t, added, 2, "unknown node types are skipped")
	edges := s.Canvas().Edges()
	require.Len(t, edges, 1, "edges into a trigger are rejected")
	assert.Equal(t, added[0], edges[0].Source)
	assert.Equal(t, added[1], edges[0].Target)

	n, _ := s.Canvas().Node(added[0])
	assert.Equal(t, 110.0, n.Position.X)
}

func TestParseSuggestionTopLevelGraph(t *testing.T) {
	raw := json.RawMessage(`{"nodes":[{"id":"a","type":"trigger","data":{"type":"manual"}}],"edges":[]}`)
	sg, err := ParseSuggestion(raw)
	require.NoError(t, err)
	require.Len(t, sg.Graph.Nodes, 1)
	assert.Equal(t, "a", sg.Graph.Nodes[0].ID)

	_, err = ParseSuggestion(json.RawMessage(`[1,2]`))
	assert.True(t, schema.HasCode(err, schema.ErrCodeAPI))
}
