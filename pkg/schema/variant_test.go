package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name string
		typ  NodeType
		data NodeData
		want Payload
	}{
		{"schedule", NodeTrigger, NodeData{"type": "schedule", "cronExpression": "0 * * * *"}, ScheduleTrigger{CronExpression: "0 * * * *"}},
		{"webhook", NodeTrigger, NodeData{"type": "webhook", "path": "/hook"}, WebhookTrigger{Path: "/hook"}},
		{"filter", NodeFunction, NodeData{"type": "filter", "condition": "item.value > 10"}, FilterFunction{Condition: "item.value > 10"}},
		{"llm numeric string", NodeAI, NodeData{"type": "llm", "model": "gpt-4", "maxTokens": "1000"}, LLMNode{Model: "gpt-4", MaxTokens: 1000}},
		{"agent", NodeAI, NodeData{"type": "agent", "goal": "g", "maxSteps": 5.0}, AgentNode{Goal: "g", MaxSteps: 5}},
		{"http", NodeAction, NodeData{"type": "http", "url": "https://x", "method": "POST"}, HTTPAction{URL: "https://x", Method: "POST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodePayload(tt.typ, tt.data)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Variant().Known())
		})
	}
}

func TestDecodePayload_Unknown(t *testing.T) {
	_, ok := DecodePayload(NodeTrigger, NodeData{"type": "llm"})
	assert.False(t, ok)
	_, ok = DecodePayload(NodeType("bogus"), NodeData{"type": "manual"})
	assert.False(t, ok)
}

func TestSubtypeSwitchKeepsSiblingFields(t *testing.T) {
	d := NodeData{"name": "Start", "type": "schedule", "cronExpression": "*/5 * * * *"}

	d = ApplyPayload(d, WebhookTrigger{Path: "/in"})
	assert.Equal(t, "webhook", d.Subtype())
	assert.Equal(t, "*/5 * * * *", d["cronExpression"], "stale sibling field survives")

	p, ok := DecodePayload(NodeTrigger, d)
	require.True(t, ok)
	assert.Equal(t, WebhookTrigger{Path: "/in"}, p)

	d = d.With("type", "schedule")
	p, ok = DecodePayload(NodeTrigger, d)
	require.True(t, ok)
	assert.Equal(t, ScheduleTrigger{CronExpression: "*/5 * * * *"}, p)
}

func TestVariantOf(t *testing.T) {
	v := VariantOf(Node{Type: NodeAI, Data: NodeData{"type": "content-gen"}})
	assert.Equal(t, "ai/content-gen", v.String())
	assert.True(t, v.Known())
	assert.False(t, Variant{NodeAction, "smoke-signal"}.Known())
}
