package editscript

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/apitest"
	"github.com/rendis/flowedit/internal/auth"
	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/pkg/schema"
)

func counterIDs() canvas.IDGenerator {
	n := 0
	return func(t schema.NodeType) string {
		n++
		return fmt.Sprintf("%s-%d", t, n)
	}
}

func newDeps(t *testing.T) (editor.Deps, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	return editor.Deps{Backend: api.New(backend.URL(), auth.New(apitest.DefaultToken))}, backend
}

const intakeScript = `
new: true
name: Intake
tags: [email]
steps:
  - add: {id: start, template: webhook-trigger}
  - add: {id: ask, template: llm-node, x: 250}
  - add: {id: mail, template: email-action, x: 500}
  - configure: {node: start, field: path, value: /hooks/intake}
  - configure: {node: ask, field: maxTokens, value: 500}
  - connect: {source: start, target: ask}
  - connect: {source: ask, target: mail}
  - connect: {source: mail, target: start}
validate: [topology, acyclic]
save: true
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(intakeScript))
	require.NoError(t, err)
	assert.True(t, s.New)
	require.NotNil(t, s.Name)
	assert.Equal(t, "Intake", *s.Name)
	require.Len(t, s.Steps, 8)
	assert.Equal(t, "add", s.Steps[0].Kind())
	assert.Equal(t, "configure", s.Steps[3].Kind())
	assert.Equal(t, 500, s.Steps[4].Configure.Value)
	assert.Equal(t, []string{"topology", "acyclic"}, s.Validate)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"no target", "steps: []", "exactly one of workflow or new"},
		{"both targets", "new: true\nworkflow: 3", "exactly one of workflow or new"},
		{"unknown key", "new: true\nsave_as: x", "invalid edit script"},
		{"two edits in a step", "new: true\nsteps:\n  - add: {template: llm-node}\n    move: {node: a}", "exactly one edit per step"},
		{"empty step", "new: true\nsteps:\n  - {}", "exactly one edit per step"},
		{"add without template", "new: true\nsteps:\n  - add: {id: a}", "template required"},
		{"alias reused", "new: true\nsteps:\n  - add: {id: a, template: llm-node}\n  - add: {id: a, template: llm-node}", "alias \"a\" reused"},
		{"remove needs one target", "new: true\nsteps:\n  - remove: {}", "exactly one of node or edge required"},
		{"configure without field", "new: true\nsteps:\n  - configure: {node: a}", "node and field required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(intakeScript), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 8)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_NewWorkflow(t *testing.T) {
	deps, backend := newDeps(t)
	s, err := Parse([]byte(intakeScript))
	require.NoError(t, err)

	rep, err := Run(context.Background(), deps, s, Options{IDGenerator: counterIDs()})
	require.NoError(t, err)

	assert.Equal(t, 8, rep.Applied)
	assert.Equal(t, map[string]string{"start": "trigger-1", "ask": "ai-2", "mail": "action-3"}, rep.Nodes)
	assert.Equal(t, []string{"action-3 -> trigger-1"}, rep.Rejected, "actions have no output")
	assert.True(t, rep.Saved)
	assert.NotZero(t, rep.WorkflowID)
	require.NotNil(t, rep.Validation)
	assert.True(t, rep.Validation.Valid())

	body := backend.LastRequest("POST /workflows").Body
	assert.Equal(t, "Intake", body["name"])
	def := body["definition"].(map[string]any)
	assert.Len(t, def["nodes"], 3)
	assert.Len(t, def["edges"], 2)

	n, ok := rep.Session.Canvas().Node("trigger-1")
	require.True(t, ok)
	assert.Equal(t, "/hooks/intake", n.Data["path"])
}

func TestRun_ExistingWorkflowAndExecute(t *testing.T) {
	deps, backend := newDeps(t)
	w := &schema.Workflow{Name: "Orders"}
	w.SetGraph(schema.Graph{Nodes: []schema.Node{
		{ID: "t1", Type: schema.NodeTrigger, Data: schema.NodeData{"type": "manual"}},
		{ID: "f1", Type: schema.NodeFunction, Data: schema.NodeData{"type": "filter"}},
	}})
	id := backend.SeedWorkflow(w)

	s, err := Parse([]byte(fmt.Sprintf(`
workflow: %d
steps:
  - connect: {source: t1, target: f1}
  - move: {node: f1, x: 300, y: 20}
save: true
execute: true
`, id)))
	require.NoError(t, err)

	rep, err := Run(context.Background(), deps, s, Options{})
	require.NoError(t, err)
	assert.Empty(t, rep.Rejected)
	require.NotNil(t, rep.Execution)
	assert.Equal(t, schema.ExecutionPending, rep.Execution.Status)

	put := backend.LastRequest("PUT /workflows/{id}")
	require.NotNil(t, put)
	assert.Contains(t, put.Body, "definition")
	assert.Len(t, backend.Versions(id), 2)
}

func TestRun_DryRunSkipsSave(t *testing.T) {
	deps, backend := newDeps(t)
	s, err := Parse([]byte("new: true\nsteps:\n  - add: {template: manual-trigger}\nsave: true"))
	require.NoError(t, err)

	rep, err := Run(context.Background(), deps, s, Options{DryRun: true})
	require.NoError(t, err)
	assert.False(t, rep.Saved)
	assert.Equal(t, 1, rep.Session.Canvas().NodeCount())
	assert.Empty(t, backend.RequestsTo("POST /workflows"))
}

func TestRun_StopsAtFailingStep(t *testing.T) {
	deps, _ := newDeps(t)
	s, err := Parse([]byte("new: true\nsteps:\n  - add: {template: manual-trigger}\n  - move: {node: ghost}\n  - add: {template: email-action}"))
	require.NoError(t, err)

	rep, err := Run(context.Background(), deps, s, Options{DryRun: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (move)")
	assert.True(t, schema.HasCode(err, schema.ErrCodeNotFound))
	assert.Equal(t, 1, rep.Applied)
}

func TestRun_ValidationBlocksSave(t *testing.T) {
	deps, backend := newDeps(t)
	w := &schema.Workflow{Name: "Loop"}
	w.SetGraph(schema.Graph{
		Nodes: []schema.Node{
			{ID: "f1", Type: schema.NodeFunction, Data: schema.NodeData{"type": "filter"}},
			{ID: "f2", Type: schema.NodeFunction, Data: schema.NodeData{"type": "filter"}},
		},
		Edges: []schema.Edge{{ID: "e-f1-f2", Source: "f1", Target: "f2"}},
	})
	id := backend.SeedWorkflow(w)

	s, err := Parse([]byte(fmt.Sprintf("workflow: %d\nsteps:\n  - connect: {source: f2, target: f1}\nvalidate: [acyclic]\nsave: true", id)))
	require.NoError(t, err)

	rep, err := Run(context.Background(), deps, s, Options{})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
	assert.False(t, rep.Validation.Valid())
	assert.False(t, rep.Saved)
	assert.Empty(t, backend.RequestsTo("PUT /workflows/{id}"))
}

func TestRun_LoadAndSaveFailures(t *testing.T) {
	deps, backend := newDeps(t)

	s, err := Parse([]byte("workflow: 99"))
	require.NoError(t, err)
	_, err = Run(context.Background(), deps, s, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Workflow not found")

	backend.Fail("POST /workflows", http.StatusConflict, "Name already taken")
	s, err = Parse([]byte("new: true\nsave: true"))
	require.NoError(t, err)
	rep, err := Run(context.Background(), deps, s, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name already taken")
	assert.False(t, rep.Saved)

	_, err = Run(context.Background(), deps, &Script{New: true, Validate: []string{"bogus"}}, Options{})
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}
