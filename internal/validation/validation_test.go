package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func node(id string, typ schema.NodeType, data schema.NodeData) schema.Node {
	return schema.Node{ID: id, Type: typ, Data: data}
}

func edge(src, dst string) schema.Edge {
	return schema.Edge{ID: schema.EdgeID(src, dst), Source: src, Target: dst}
}

func codes(issues []schema.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestTopology_Valid(t *testing.T) {
	g := &schema.Graph{
		Nodes: []schema.Node{
			node("t1", schema.NodeTrigger, nil),
			node("f1", schema.NodeFunction, nil),
			node("a1", schema.NodeAction, nil),
		},
		Edges: []schema.Edge{edge("t1", "f1"), edge("f1", "a1")},
	}
	r := Topology().Validate(g)
	assert.True(t, r.Valid())
	assert.Empty(t, r.Warnings)
}

func TestTopology_Violations(t *testing.T) {
	g := &schema.Graph{
		Nodes: []schema.Node{
			node("t1", schema.NodeTrigger, nil),
			node("t1", schema.NodeTrigger, nil),
			node("a1", schema.NodeAction, nil),
			node("x", "mystery", nil),
		},
		Edges: []schema.Edge{
			edge("a1", "t1"),
			edge("t1", "ghost"),
			{ID: "p1", Source: "t1", Target: "a1"},
			{ID: "p2", Source: "t1", Target: "a1"},
		},
	}
	r := Topology().Validate(g)

	assert.ElementsMatch(t, []string{
		schema.ErrCodeConflict,
		schema.ErrCodeTopology, schema.ErrCodeTopology,
		schema.ErrCodeNotFound,
		schema.ErrCodeDuplicateEdge,
	}, codes(r.Errors))
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "x", r.Warnings[0].NodeID)
	assert.Equal(t, "nodes[x]", r.Warnings[0].Path())

	ghost := r.ForEdge(schema.EdgeID("t1", "ghost"))
	require.Len(t, ghost, 1)
	assert.Equal(t, "target", ghost[0].Field)
	assert.Equal(t, schema.ErrCodeNotFound, ghost[0].Code)
	assert.Empty(t, r.ErrorNodes(), "only the duplicate id is a node error")
}

func TestAcyclic(t *testing.T) {
	t.Run("dag with unreachable node", func(t *testing.T) {
		g := &schema.Graph{
			Nodes: []schema.Node{
				node("t1", schema.NodeTrigger, nil),
				node("f1", schema.NodeFunction, nil),
				node("orphan", schema.NodeAI, nil),
			},
			Edges: []schema.Edge{edge("t1", "f1"), edge("t1", "missing")},
		}
		r := Acyclic().Validate(g)
		assert.True(t, r.Valid())
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, "orphan", r.Warnings[0].NodeID)
		assert.Equal(t, "nodes[orphan]", r.Warnings[0].Path())
	})

	t.Run("cycle", func(t *testing.T) {
		g := &schema.Graph{
			Nodes: []schema.Node{
				node("t1", schema.NodeTrigger, nil),
				node("f1", schema.NodeFunction, nil),
				node("f2", schema.NodeFunction, nil),
			},
			Edges: []schema.Edge{edge("t1", "f1"), edge("f1", "f2"), edge("f2", "f1")},
		}
		r := Acyclic().Validate(g)
		assert.False(t, r.Valid())
		assert.Equal(t, schema.ErrCodeCycleDetected, r.Errors[0].Code)
		assert.Equal(t, "edges", r.Errors[0].Path())
		assert.Len(t, r.Errors, 3)
		assert.Equal(t, []string{"f1", "f2"}, r.ErrorNodes())
	})

	t.Run("self loop", func(t *testing.T) {
		g := &schema.Graph{
			Nodes: []schema.Node{node("f1", schema.NodeFunction, nil)},
			Edges: []schema.Edge{edge("f1", "f1")},
		}
		assert.False(t, Acyclic().Validate(g).Valid())
	})

	t.Run("no trigger", func(t *testing.T) {
		g := &schema.Graph{Nodes: []schema.Node{node("f1", schema.NodeFunction, nil)}}
		r := Acyclic().Validate(g)
		assert.True(t, r.Valid())
		require.Len(t, r.Warnings, 1)
		assert.Contains(t, r.Warnings[0].Message, "no trigger")
	})
}

func TestConfigValidator(t *testing.T) {
	v, err := NewConfigValidator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		node      schema.Node
		wantValid bool
		wantMsg   string
	}{
		{"manual", node("n", schema.NodeTrigger, schema.NodeData{"type": "manual"}), true, ""},
		{"cron ok", node("n", schema.NodeTrigger, schema.NodeData{"type": "schedule", "cronExpression": "*/5 * * * *"}), true, ""},
		{"cron missing", node("n", schema.NodeTrigger, schema.NodeData{"type": "schedule"}), false, "cronExpression"},
		{"cron bad", node("n", schema.NodeTrigger, schema.NodeData{"type": "schedule", "cronExpression": "99 * * * * *"}), false, "invalid cron"},
		{"webhook bad path", node("n", schema.NodeTrigger, schema.NodeData{"type": "webhook", "path": "no-slash"}), false, "/path"},
		{"filter ok", node("n", schema.NodeFunction, schema.NodeData{"type": "filter", "condition": "item.value > 10"}), true, ""},
		{"filter bad", node("n", schema.NodeFunction, schema.NodeData{"type": "filter", "condition": "item.value >"}), false, "expr compile error"},
		{"transform ok", node("n", schema.NodeFunction, schema.NodeData{"type": "transform", "expression": ". + {processed: true}"}), true, ""},
		{"transform bad", node("n", schema.NodeFunction, schema.NodeData{"type": "transform", "expression": ". +"}), false, "jq compile error"},
		{"condition ok", node("n", schema.NodeFunction, schema.NodeData{"type": "condition", "expression": "input.amount > 100"}), true, ""},
		{"condition not bool", node("n", schema.NodeFunction, schema.NodeData{"type": "condition", "expression": "1 + 2"}), false, "want bool"},
		{"loop bad", node("n", schema.NodeFunction, schema.NodeData{"type": "loop", "items": "input.items["}), false, "cel compile error"},
		{"llm ok with string tokens", node("n", schema.NodeAI, schema.NodeData{"type": "llm", "prompt": "hi", "maxTokens": "1000"}), true, ""},
		{"llm bad tokens", node("n", schema.NodeAI, schema.NodeData{"type": "llm", "prompt": "hi", "maxTokens": "lots"}), false, "maxTokens"},
		{"llm zero tokens", node("n", schema.NodeAI, schema.NodeData{"type": "llm", "prompt": "hi", "maxTokens": 0.0}), false, "maxTokens"},
		{"llm zero string tokens", node("n", schema.NodeAI, schema.NodeData{"type": "llm", "prompt": "hi", "maxTokens": "0"}), false, "maxTokens"},
		{"llm padded string tokens", node("n", schema.NodeAI, schema.NodeData{"type": "llm", "prompt": "hi", "maxTokens": "007"}), false, "maxTokens"},
		{"agent zero string steps", node("n", schema.NodeAI, schema.NodeData{"type": "agent", "goal": "triage", "maxSteps": "0"}), false, "maxSteps"},
		{"loop zero string iterations", node("n", schema.NodeFunction, schema.NodeData{"type": "loop", "items": "input.items", "maxIterations": "0"}), false, "maxIterations"},
		{"agent missing goal", node("n", schema.NodeAI, schema.NodeData{"type": "agent"}), false, "goal"},
		{"http ok", node("n", schema.NodeAction, schema.NodeData{"type": "http", "url": "https://api.example.com/x", "method": "POST"}), true, ""},
		{"http bad method", node("n", schema.NodeAction, schema.NodeData{"type": "http", "url": "https://api.example.com", "method": "PATCH"}), false, "method"},
		{"stale sibling ignored", node("n", schema.NodeTrigger, schema.NodeData{"type": "webhook", "path": "/in", "cronExpression": 42.0}), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := v.ValidateNode(tt.node)
			assert.Equal(t, tt.wantValid, r.Valid(), "%+v", r.Errors)
			if tt.wantMsg != "" {
				require.NotEmpty(t, r.Errors)
				assert.Contains(t, r.Errors[0].String(), tt.wantMsg)
				assert.Equal(t, "n", r.Errors[0].NodeID)
			}
		})
	}
}

func TestConfigValidator_UnknownVariantWarns(t *testing.T) {
	v, err := NewConfigValidator()
	require.NoError(t, err)

	r := v.Validate(&schema.Graph{Nodes: []schema.Node{node("n", schema.NodeAI, schema.NodeData{"type": "oracle"})}})
	assert.True(t, r.Valid())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0].Message, "ai/oracle")
}

func TestChainAndByName(t *testing.T) {
	g := &schema.Graph{
		Nodes: []schema.Node{node("f1", schema.NodeFunction, schema.NodeData{"type": "filter"})},
		Edges: []schema.Edge{edge("f1", "f1")},
	}

	strict, err := Strict()
	require.NoError(t, err)
	r := strict.Validate(g)
	assert.Contains(t, codes(r.Errors), schema.ErrCodeCycleDetected)
	assert.Contains(t, codes(r.Errors), schema.ErrCodeValidation)

	none, err := ByName()
	require.NoError(t, err)
	assert.Nil(t, none)

	topo, err := ByName("topology", "none")
	require.NoError(t, err)
	assert.True(t, topo.Validate(g).Valid())

	_, err = ByName("bogus")
	assert.Error(t, err)
}
