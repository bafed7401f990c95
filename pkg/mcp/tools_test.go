package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/apitest"
	"github.com/rendis/flowedit/internal/auth"
	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/pkg/schema"
)

// --- helpers ---

func counterIDs() canvas.IDGenerator {
	n := 0
	return func(t schema.NodeType) string {
		n++
		return fmt.Sprintf("%s-%d", t, n)
	}
}

func newTestServer(t *testing.T) (*FlowServer, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	client := api.New(backend.URL(), auth.New(apitest.DefaultToken))
	s := NewFlowServer(ServerDeps{
		Editor:      editor.Deps{Backend: client},
		IDGenerator: counterIDs(),
	})
	return s, backend
}

func buildRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func call(t *testing.T, s *FlowServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.mcpServer.GetTool(name)
	require.NotNil(t, tool, "tool %s", name)
	result, err := tool.Handler(context.Background(), buildRequest(name, args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", extractText(t, result))
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &m))
	return m
}

func requireToolError(t *testing.T, result *mcp.CallToolResult, contains string) {
	t.Helper()
	require.True(t, result.IsError, "expected tool error, got: %s", extractText(t, result))
	assert.Contains(t, extractText(t, result), contains)
}

func ordersWorkflow() *schema.Workflow {
	w := &schema.Workflow{Name: "Orders", Description: "order intake", IsActive: true}
	w.SetGraph(schema.Graph{Nodes: []schema.Node{
		{ID: "t1", Type: schema.NodeTrigger, Data: schema.NodeData{"name": "Start", "type": "manual"}},
		{ID: "f1", Type: schema.NodeFunction, Position: schema.Position{X: 250}, Data: schema.NodeData{"name": "Filter", "type": "filter"}},
	}})
	return w
}

// --- open ---

func TestToolsRequireOpenSession(t *testing.T) {
	s, _ := newTestServer(t)

	for _, name := range []string{"flowedit.state", "flowedit.save", "flowedit.execute"} {
		requireToolError(t, call(t, s, name, nil), "call flowedit.open first")
	}
	requireToolError(t, call(t, s, "flowedit.diagram", map[string]any{"format": "ascii"}), "call flowedit.open first")
}

func TestHandleOpen_ArgumentValidation(t *testing.T) {
	s, _ := newTestServer(t)

	requireToolError(t, call(t, s, "flowedit.open", nil), "exactly one of")
	requireToolError(t, call(t, s, "flowedit.open", map[string]any{"new": true, "workflow_id": 3}), "exactly one of")
	assert.Nil(t, s.Session())
}

func TestHandleOpen_ExistingWorkflow(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())

	view := unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))
	assert.Equal(t, "ready", view["state"])
	assert.Equal(t, false, view["is_new"])
	assert.Len(t, view["nodes"], 2)
	wf := view["workflow"].(map[string]any)
	assert.Equal(t, "Orders", wf["name"])
}

func TestHandleOpen_LoadFailure(t *testing.T) {
	s, _ := newTestServer(t)

	requireToolError(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": 404}), "Workflow not found")

	view := unmarshalResult(t, call(t, s, "flowedit.state", nil))
	assert.Equal(t, "error", view["state"])
	assert.Equal(t, "Workflow not found", view["error"])
}

func TestHandleOpen_ReadOnlyRejectsEdits(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())

	view := unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id), "read_only": true}))
	assert.Equal(t, true, view["read_only"])

	requireToolError(t, call(t, s, "flowedit.add_node", map[string]any{"template_id": "email-action"}), schema.ErrCodeReadOnly)
	requireToolError(t, call(t, s, "flowedit.move_node", map[string]any{"node_id": "t1", "x": 1.0, "y": 2.0}), schema.ErrCodeReadOnly)
	requireToolError(t, call(t, s, "flowedit.save", nil), schema.ErrCodeReadOnly)
}

func TestHandleOpen_Execution(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())
	execID := backend.SeedExecution(
		&schema.Execution{WorkflowID: id, Status: schema.ExecutionFailed},
		&schema.ExecutionLog{NodeID: "f1", Status: schema.NodeFailed, ErrorMessage: "bad condition"},
	)

	view := unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"execution_id": float64(execID)}))
	assert.Equal(t, true, view["read_only"])
	exec := view["execution"].(map[string]any)
	assert.Equal(t, "failed", exec["status"])
	assert.Len(t, view["logs"], 1)

	ascii := extractText(t, call(t, s, "flowedit.diagram", map[string]any{"format": "ascii"}))
	assert.Contains(t, ascii, "Filter")

	requireToolError(t, call(t, s, "flowedit.open", map[string]any{"execution_id": 999}), "Execution not found")
}

// --- palette ---

func TestHandlePalette(t *testing.T) {
	s, _ := newTestServer(t)

	all := unmarshalResult(t, call(t, s, "flowedit.palette", nil))
	assert.EqualValues(t, 12, all["total"])

	ai := unmarshalResult(t, call(t, s, "flowedit.palette", map[string]any{"category": "ai"}))
	assert.EqualValues(t, 3, ai["total"])

	found := unmarshalResult(t, call(t, s, "flowedit.palette", map[string]any{"query": "email"}))
	require.EqualValues(t, 1, found["total"])
	tpl := found["templates"].([]any)[0].(map[string]any)
	assert.Equal(t, "email-action", tpl["id"])
}

// --- editing ---

func TestEditAndSaveNewWorkflow(t *testing.T) {
	s, backend := newTestServer(t)

	view := unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"new": true, "tags": "draft, intake"}))
	assert.Equal(t, true, view["is_new"])
	assert.Empty(t, view["nodes"], "new workflows start with an empty canvas")

	requireToolError(t, call(t, s, "flowedit.add_node", map[string]any{"template_id": "nope"}), schema.ErrCodeNotFound)
	start := unmarshalResult(t, call(t, s, "flowedit.add_node", map[string]any{"template_id": "manual-trigger"}))
	startID := start["node_id"].(string)
	added := unmarshalResult(t, call(t, s, "flowedit.add_node", map[string]any{"template_id": "filter-function", "x": 250.0, "y": 0.0}))
	filterID := added["node_id"].(string)
	assert.Equal(t, "function-2", filterID)

	connected := unmarshalResult(t, call(t, s, "flowedit.connect", map[string]any{"source": startID, "target": filterID}))
	assert.Equal(t, true, connected["connected"])
	assert.NotEmpty(t, connected["edge_id"])

	again := unmarshalResult(t, call(t, s, "flowedit.connect", map[string]any{"source": startID, "target": filterID}))
	assert.Equal(t, false, again["connected"], "duplicate edges are refused silently")

	backwards := unmarshalResult(t, call(t, s, "flowedit.connect", map[string]any{"source": filterID, "target": startID}))
	assert.Equal(t, false, backwards["connected"], "triggers have no input")

	renamed := unmarshalResult(t, call(t, s, "flowedit.rename", map[string]any{"name": "Intake"}))
	assert.Equal(t, "Intake", renamed["name"])
	requireToolError(t, call(t, s, "flowedit.rename", nil), "at least one of")

	saved := unmarshalResult(t, call(t, s, "flowedit.save", nil))
	assert.NotZero(t, saved["workflow_id"])
	assert.Equal(t, "ready", saved["state"])

	body := backend.LastRequest("POST /workflows").Body
	assert.Equal(t, "Intake", body["name"])
	assert.Equal(t, []any{"draft", "intake"}, body["tags"])
	def := body["definition"].(map[string]any)
	assert.Len(t, def["nodes"], 2)
	assert.Len(t, def["edges"], 1)

	state := unmarshalResult(t, call(t, s, "flowedit.state", nil))
	assert.Equal(t, false, state["is_new"])
	assert.Equal(t, false, state["dirty"])
}

func TestHandleSave_FailureKeepsEdits(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))

	unmarshalResult(t, call(t, s, "flowedit.move_node", map[string]any{"node_id": "f1", "x": 400.0, "y": 80.0}))
	backend.Fail("PUT /workflows/{id}", http.StatusInternalServerError, "database is locked")

	requireToolError(t, call(t, s, "flowedit.save", nil), "database is locked")

	state := unmarshalResult(t, call(t, s, "flowedit.state", nil))
	assert.Equal(t, "ready", state["state"])
	assert.Equal(t, true, state["dirty"])
	assert.Equal(t, "database is locked", state["error"])
}

func TestHandleRemove(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))

	edge := unmarshalResult(t, call(t, s, "flowedit.connect", map[string]any{"source": "t1", "target": "f1"}))

	requireToolError(t, call(t, s, "flowedit.remove", nil), "exactly one of")
	out := unmarshalResult(t, call(t, s, "flowedit.remove", map[string]any{"edge_id": edge["edge_id"]}))
	assert.EqualValues(t, 0, out["edges"])

	out = unmarshalResult(t, call(t, s, "flowedit.remove", map[string]any{"node_id": "f1"}))
	assert.EqualValues(t, 1, out["nodes"])

	requireToolError(t, call(t, s, "flowedit.remove", map[string]any{"node_id": "f1"}), schema.ErrCodeNotFound)
}

func TestSelectAndConfigure(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))

	requireToolError(t, call(t, s, "flowedit.configure", map[string]any{"field": "name", "value": "x"}), schema.ErrCodeValidation)

	sel := unmarshalResult(t, call(t, s, "flowedit.select", map[string]any{"node_id": "f1"}))
	panel := sel["panel"].(map[string]any)
	assert.Equal(t, "f1", panel["node_id"])

	out := unmarshalResult(t, call(t, s, "flowedit.configure", map[string]any{"field": "condition", "value": "item.total > 10"}))
	assert.Equal(t, "f1", out["node_id"])
	data := out["data"].(map[string]any)
	assert.Equal(t, "item.total > 10", data["condition"])
	assert.Equal(t, "Filter", data["name"])

	out = unmarshalResult(t, call(t, s, "flowedit.configure", map[string]any{"node_id": "t1", "field": "name", "value": "Kickoff"}))
	assert.Equal(t, "t1", out["node_id"])

	cleared := unmarshalResult(t, call(t, s, "flowedit.select", nil))
	assert.Nil(t, cleared["panel"])
	assert.Equal(t, true, unmarshalResult(t, call(t, s, "flowedit.state", nil))["dirty"])
}

// --- validate / execute / diagram ---

func TestHandleValidate(t *testing.T) {
	s, backend := newTestServer(t)
	w := &schema.Workflow{Name: "Broken"}
	w.SetGraph(schema.Graph{
		Nodes: []schema.Node{
			{ID: "t1", Type: schema.NodeTrigger, Data: schema.NodeData{"type": "manual"}},
			{ID: "a1", Type: schema.NodeAction, Data: schema.NodeData{"type": "email"}},
		},
		Edges: []schema.Edge{{ID: "e-a1-t1", Source: "a1", Target: "t1"}},
	})
	id := backend.SeedWorkflow(w)
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))

	noPolicy := unmarshalResult(t, call(t, s, "flowedit.validate", nil))
	assert.Equal(t, true, noPolicy["valid"], "sessions have no policy by default")

	topo := unmarshalResult(t, call(t, s, "flowedit.validate", map[string]any{"policies": "topology"}))
	assert.Equal(t, false, topo["valid"])
	issue := topo["errors"].([]any)[0].(map[string]any)
	assert.Equal(t, schema.ErrCodeTopology, issue["code"])
	assert.Equal(t, "e-a1-t1", issue["edge_id"])
	assert.NotContains(t, issue, "node_id")

	requireToolError(t, call(t, s, "flowedit.validate", map[string]any{"policies": "nonsense"}), "nonsense")
}

func TestHandleExecute(t *testing.T) {
	s, backend := newTestServer(t)

	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"new": true}))
	requireToolError(t, call(t, s, "flowedit.execute", nil), "save the workflow first")

	id := backend.SeedWorkflow(ordersWorkflow())
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))
	exec := unmarshalResult(t, call(t, s, "flowedit.execute", nil))
	assert.Equal(t, "pending", exec["status"])
	assert.EqualValues(t, id, exec["workflow_id"])

	unmarshalResult(t, call(t, s, "flowedit.move_node", map[string]any{"node_id": "f1", "x": float64(300), "y": float64(0)}))
	requireToolError(t, call(t, s, "flowedit.execute", nil), "unsaved changes")
	unmarshalResult(t, call(t, s, "flowedit.save", nil))
	unmarshalResult(t, call(t, s, "flowedit.execute", nil))

	backend.Fail("POST /workflows/{id}/execute", http.StatusBadGateway, "runner offline")
	requireToolError(t, call(t, s, "flowedit.execute", nil), "runner offline")
}

func TestHandleDiagram(t *testing.T) {
	s, backend := newTestServer(t)
	id := backend.SeedWorkflow(ordersWorkflow())
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"workflow_id": float64(id)}))

	requireToolError(t, call(t, s, "flowedit.diagram", map[string]any{"format": "svg"}), "format must be")

	mermaid := extractText(t, call(t, s, "flowedit.diagram", map[string]any{"format": "mermaid"}))
	assert.Contains(t, mermaid, "graph LR")
	assert.Contains(t, mermaid, "Orders")

	image := call(t, s, "flowedit.diagram", map[string]any{"format": "image"})
	require.False(t, image.IsError, extractText(t, image))
	png, err := base64.StdEncoding.DecodeString(extractText(t, image))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

// --- ai ---

func TestHandleAI_TestNodeWithQuery(t *testing.T) {
	s, _ := newTestServer(t)
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"new": true}))

	added := unmarshalResult(t, call(t, s, "flowedit.add_node", map[string]any{"template_id": "llm-node"}))
	nodeID := added["node_id"].(string)

	requireToolError(t, call(t, s, "flowedit.ai", map[string]any{"action": "test", "node_id": nodeID}), editor.MsgLLMPrompt)

	unmarshalResult(t, call(t, s, "flowedit.configure", map[string]any{"node_id": nodeID, "field": "prompt", "value": "summarize"}))
	out := call(t, s, "flowedit.ai", map[string]any{"action": "test", "node_id": nodeID, "query": ".input.prompt"})
	require.False(t, out.IsError, extractText(t, out))
	assert.JSONEq(t, `"summarize"`, extractText(t, out))

	requireToolError(t, call(t, s, "flowedit.ai", map[string]any{"action": "test", "node_id": nodeID, "query": ".[["}), "jq compile error")
	requireToolError(t, call(t, s, "flowedit.ai", map[string]any{"action": "dance"}), "action must be")
}

func TestHandleAI_SuggestAndApply(t *testing.T) {
	s, backend := newTestServer(t)
	unmarshalResult(t, call(t, s, "flowedit.open", map[string]any{"new": true}))

	requireToolError(t, call(t, s, "flowedit.ai", map[string]any{"action": "suggest"}), editor.MsgSuggestPrompt)

	backend.Respond("POST /ai/workflow/suggest", http.StatusOK, map[string]any{
		"workflow": map[string]any{
			"nodes": []map[string]any{
				{"id": "n1", "type": "trigger", "position": map[string]any{"x": 0, "y": 0}, "data": map[string]any{"type": "webhook"}},
				{"id": "n2", "type": "action", "position": map[string]any{"x": 200, "y": 0}, "data": map[string]any{"type": "email"}},
			},
			"edges": []map[string]any{{"id": "x", "source": "n1", "target": "n2"}},
		},
	})

	out := call(t, s, "flowedit.ai", map[string]any{
		"action": "suggest", "prompt": "email me on webhook", "apply": true, "query": ".workflow.nodes | length",
	})
	require.False(t, out.IsError, extractText(t, out))
	assert.Equal(t, "2", extractText(t, out))

	state := unmarshalResult(t, call(t, s, "flowedit.state", nil))
	assert.Len(t, state["nodes"], 2)
	assert.Len(t, state["edges"], 1)

	backend.Fail("POST /ai/workflow/suggest", http.StatusInternalServerError, "")
	requireToolError(t, call(t, s, "flowedit.ai", map[string]any{"action": "suggest", "prompt": "x"}), editor.FallbackSuggest)
}
