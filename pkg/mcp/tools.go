package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/configpanel"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/palette"
	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// errNoSession is returned by every tool except open and palette until a
// session exists.
const errNoSession = "no open session: call flowedit.open first"

// sessionView is the JSON description of the open session.
type sessionView struct {
	SessionID string                 `json:"session_id"`
	State     editor.State           `json:"state"`
	Error     string                 `json:"error,omitempty"`
	IsNew     bool                   `json:"is_new"`
	ReadOnly  bool                   `json:"read_only"`
	Dirty     bool                   `json:"dirty"`
	Workflow  *schema.Workflow       `json:"workflow"`
	Nodes     []render.NodeView      `json:"nodes"`
	Edges     []schema.Edge          `json:"edges"`
	Selection canvas.Selection       `json:"selection"`
	Panel     *configpanel.Form      `json:"panel,omitempty"`
	Execution *schema.Execution      `json:"execution,omitempty"`
	Logs      []*schema.ExecutionLog `json:"logs,omitempty"`
}

func describe(sess *editor.Session) sessionView {
	c := sess.Canvas()
	v := sessionView{
		SessionID: sess.ID(),
		State:     sess.State(),
		Error:     sess.Err(),
		IsNew:     sess.IsNew(),
		ReadOnly:  c.ReadOnly(),
		Dirty:     sess.Dirty(),
		Workflow:  sess.Workflow(),
		Nodes:     c.Views(),
		Edges:     c.Edges(),
		Selection: c.Selection(),
		Execution: sess.Execution(),
		Logs:      sess.ExecutionLogs(),
	}
	if form, ok := sess.Panel(); ok {
		v.Panel = &form
	}
	return v
}

// withSession runs fn against the open session under the server lock.
func (s *FlowServer) withSession(fn func(sess *editor.Session) (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return mcp.NewToolResultError(errNoSession), nil
	}
	return fn(s.session)
}

// replace installs sess as the open session and routes its events to the
// calling client.
func (s *FlowServer) replace(ctx context.Context, sess *editor.Session) {
	if s.session != nil {
		s.clients.Forget(s.session.ID())
	}
	s.session = sess
	s.captureClient(ctx, sess)
}

// captureClient registers the calling client as the owner of sess.
func (s *FlowServer) captureClient(ctx context.Context, sess *editor.Session) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		s.clients.Register(sess.ID(), cs.SessionID())
	}
}

// handleOpen opens a new, existing or execution-backed session.
func (s *FlowServer) handleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	isNew := req.GetBool("new", false)
	workflowID := int64(req.GetFloat("workflow_id", 0))
	executionID := int64(req.GetFloat("execution_id", 0))

	chosen := 0
	for _, set := range []bool{isNew, workflowID > 0, executionID > 0} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return mcp.NewToolResultError("exactly one of new, workflow_id or execution_id is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if executionID > 0 {
		sess, err := editor.OpenExecution(ctx, s.deps, executionID)
		if sess == nil {
			return mcp.NewToolResultError(editor.ExecutionMessage(err)), nil
		}
		s.replace(ctx, sess)
		if err != nil {
			return mcp.NewToolResultError(sess.Err()), nil
		}
		return marshalResult(describe(sess))
	}

	sess := editor.NewSession(s.deps, editor.Options{
		WorkflowID:  workflowID,
		IsNew:       isNew,
		ReadOnly:    req.GetBool("read_only", false),
		Tags:        splitList(req.GetString("tags", "")),
		Validator:   s.validator,
		IDGenerator: s.idGen,
	})
	s.replace(ctx, sess)
	if err := sess.Load(ctx); err != nil {
		return mcp.NewToolResultError(sess.Err()), nil
	}
	s.logger.Info("session opened", "session_id", sess.ID(), "workflow_id", workflowID, "new", isNew)
	return marshalResult(describe(sess))
}

// handlePalette lists templates. It works without an open session.
func (s *FlowServer) handlePalette(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := palette.Category(req.GetString("category", string(palette.CategoryAll)))
	query := req.GetString("query", "")

	s.mu.Lock()
	p := s.deps.Palette
	if s.session != nil {
		p = s.session.Palette()
	}
	s.mu.Unlock()
	if p == nil {
		p = palette.Default()
	}

	templates := p.Filter(category, query)
	return marshalResult(map[string]any{
		"templates": templates,
		"total":     len(templates),
	})
}

// handleAddNode creates a node from a template.
func (s *FlowServer) handleAddNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id is required"), nil
	}
	pos := schema.Position{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		id, err := sess.AddNodeFromTemplate(templateID, pos)
		if err != nil {
			return errorResult(err), nil
		}
		n, _ := sess.Canvas().Node(id)
		return marshalResult(map[string]any{"node_id": id, "node": n})
	})
}

// handleConnect adds an edge. A refused connection is not an error.
func (s *FlowServer) handleConnect(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError("target is required"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		id, ok := sess.Connect(source, target)
		result := map[string]any{"connected": ok}
		if ok {
			result["edge_id"] = id
		}
		return marshalResult(result)
	})
}

// handleMoveNode repositions a node.
func (s *FlowServer) handleMoveNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id is required"), nil
	}
	x, errX := req.RequireFloat("x")
	y, errY := req.RequireFloat("y")
	if errX != nil || errY != nil {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		if err := sess.MoveNode(nodeID, schema.Position{X: x, Y: y}); err != nil {
			return errorResult(err), nil
		}
		return marshalResult(map[string]any{"node_id": nodeID, "x": x, "y": y})
	})
}

// handleRemove deletes a node or an edge.
func (s *FlowServer) handleRemove(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := req.GetString("node_id", "")
	edgeID := req.GetString("edge_id", "")
	if (nodeID == "") == (edgeID == "") {
		return mcp.NewToolResultError("exactly one of node_id or edge_id is required"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		var err error
		if nodeID != "" {
			err = sess.RemoveNode(nodeID)
		} else {
			err = sess.RemoveEdge(edgeID)
		}
		if err != nil {
			return errorResult(err), nil
		}
		return marshalResult(map[string]any{
			"removed": nodeID + edgeID,
			"nodes":   sess.Canvas().NodeCount(),
			"edges":   len(sess.Canvas().Edges()),
		})
	})
}

// handleSelect changes the selection and returns the bound form.
func (s *FlowServer) handleSelect(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := req.GetString("node_id", "")
	edgeID := req.GetString("edge_id", "")
	if nodeID != "" && edgeID != "" {
		return mcp.NewToolResultError("node_id and edge_id are mutually exclusive"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		var err error
		switch {
		case nodeID != "":
			err = sess.SelectNode(nodeID)
		case edgeID != "":
			err = sess.SelectEdge(edgeID)
		default:
			sess.ClearSelection()
		}
		if err != nil {
			return errorResult(err), nil
		}
		result := map[string]any{"selection": sess.Canvas().Selection()}
		if form, ok := sess.Panel(); ok {
			result["panel"] = form
		}
		return marshalResult(result)
	})
}

// handleConfigure writes one field of the selected node.
func (s *FlowServer) handleConfigure(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("field is required"), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value is required"), nil
	}
	nodeID := req.GetString("node_id", "")
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		if nodeID != "" && nodeID != sess.PanelNodeID() {
			if err := sess.SelectNode(nodeID); err != nil {
				return errorResult(err), nil
			}
		}
		data, err := sess.ChangeField(field, value)
		if err != nil {
			return errorResult(err), nil
		}
		result := map[string]any{"node_id": sess.PanelNodeID(), "data": data}
		if form, ok := sess.Panel(); ok {
			result["panel"] = form
		}
		return marshalResult(result)
	})
}

// handleRename sets workflow metadata.
func (s *FlowServer) handleRename(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, hasName := args["name"]
	_, hasDesc := args["description"]
	if !hasName && !hasDesc {
		return mcp.NewToolResultError("at least one of name or description is required"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		if hasName {
			if err := sess.SetName(req.GetString("name", "")); err != nil {
				return errorResult(err), nil
			}
		}
		if hasDesc {
			if err := sess.SetDescription(req.GetString("description", "")); err != nil {
				return errorResult(err), nil
			}
		}
		wf := sess.Workflow()
		return marshalResult(map[string]any{"name": wf.Name, "description": wf.Description})
	})
}

// handleSave persists the session.
func (s *FlowServer) handleSave(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		if err := sess.Save(ctx); err != nil {
			if msg := sess.Err(); msg != "" {
				return mcp.NewToolResultError(msg), nil
			}
			return errorResult(err), nil
		}
		wf := sess.Workflow()
		return marshalResult(map[string]any{
			"workflow_id": wf.ID,
			"version":     wf.Version,
			"state":       sess.State(),
		})
	})
}

// handleValidate runs the session policy or the named policies.
func (s *FlowServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var policy validation.Validator
	if names := splitList(req.GetString("policies", "")); len(names) > 0 {
		v, err := validation.ByName(names...)
		if err != nil {
			return errorResult(err), nil
		}
		policy = v
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		var res *schema.ValidationResult
		if policy != nil {
			g := sess.Canvas().Graph()
			res = policy.Validate(&g)
		} else {
			res = sess.Validate()
		}
		return marshalResult(map[string]any{
			"valid":         res.Valid(),
			"errors":        res.Errors,
			"warnings":      res.Warnings,
			"invalid_nodes": res.ErrorNodes(),
		})
	})
}

// handleExecute starts a run of the saved workflow.
func (s *FlowServer) handleExecute(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		exec, err := sess.Execute(ctx)
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && sess.Err() != "" {
				return mcp.NewToolResultError(sess.Err()), nil
			}
			return errorResult(err), nil
		}
		return marshalResult(exec)
	})
}

// handleDiagram renders the current graph in the requested format.
func (s *FlowServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		d := sess.Diagram()
		if format == "image" {
			png, imgErr := render.RenderImage(ctx, d)
			if imgErr != nil {
				return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
			}
			return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
		}
		out, renderErr := render.Render(d, render.Format(format))
		if renderErr != nil {
			return mcp.NewToolResultError(renderErr.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})
}

// handleState describes the open session.
func (s *FlowServer) handleState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		return marshalResult(describe(sess))
	})
}

// handleAI tests an AI node or drafts a workflow. Results are opaque JSON,
// optionally narrowed by a jq query.
func (s *FlowServer) handleAI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}
	query := req.GetString("query", "")
	if query != "" {
		if err := s.jq.Check(query); err != nil {
			return errorResult(err), nil
		}
	}

	return s.withSession(func(sess *editor.Session) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		switch action {
		case "test":
			nodeID, err := req.RequireString("node_id")
			if err != nil {
				return mcp.NewToolResultError("node_id is required for test"), nil
			}
			out, err := sess.TestNode(ctx, nodeID)
			if err != nil {
				return aiError(err, editor.FallbackTestNode), nil
			}
			raw = out
		case "suggest":
			sg, err := sess.Suggest(ctx, req.GetString("prompt", ""))
			if err != nil {
				return aiError(err, editor.FallbackSuggest), nil
			}
			raw = sg.Raw
			if req.GetBool("apply", false) {
				added, err := sess.ApplySuggestion(sg, schema.Position{})
				if err != nil {
					return errorResult(err), nil
				}
				s.logger.Info("suggestion applied", "session_id", sess.ID(), "nodes", len(added))
			}
		default:
			return mcp.NewToolResultError("action must be test or suggest"), nil
		}

		if query != "" {
			filtered, err := s.jq.QueryJSON(ctx, query, raw)
			if err != nil {
				return errorResult(err), nil
			}
			raw = filtered
		}
		return mcp.NewToolResultJSON(raw)
	})
}

// aiError reports validation problems verbatim and server failures with
// the server's message or fallback.
func aiError(err error, fallback string) *mcp.CallToolResult {
	if schema.HasCode(err, schema.ErrCodeValidation) {
		return errorResult(err)
	}
	return mcp.NewToolResultError(api.Message(err, fallback))
}

// errorResult converts an error into a tool error, keeping the error code
// of flow errors visible to the caller.
func errorResult(err error) *mcp.CallToolResult {
	var fe *schema.FlowError
	if errors.As(err, &fe) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", fe.Code, fe.Message))
	}
	return mcp.NewToolResultError(err.Error())
}

// splitList splits a comma-separated argument, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// marshalResult serializes v to JSON and wraps it in a CallToolResult.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
