package mcp

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/validation"
)

// ServerDeps holds the dependencies for creating a FlowServer.
type ServerDeps struct {
	Editor      editor.Deps
	Validator   validation.Validator
	IDGenerator canvas.IDGenerator
	Logger      *slog.Logger
}

// FlowServer exposes one workflow editing session as MCP tools. Tool calls
// are serialized: the session underneath is single-owner.
type FlowServer struct {
	mu        sync.Mutex
	deps      editor.Deps
	validator validation.Validator
	idGen     canvas.IDGenerator
	logger    *slog.Logger
	session   *editor.Session
	jq        *expressions.GoJQEngine
	clients   *SessionRegistry
	mcpServer *server.MCPServer
}

// NewFlowServer creates a FlowServer with every tool registered.
func NewFlowServer(deps ServerDeps) *FlowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	editorDeps := deps.Editor
	if editorDeps.Logger == nil {
		editorDeps.Logger = logger
	}

	s := &FlowServer{
		deps:      editorDeps,
		validator: deps.Validator,
		idGen:     deps.IDGenerator,
		logger:    logger,
		jq:        expressions.NewGoJQEngine(),
		clients:   NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"flowedit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("flowedit edits workflow graphs stored behind a workflow API. "+
			"Call flowedit.open first, then add nodes from flowedit.palette with flowedit.add_node, "+
			"wire them with flowedit.connect, set fields with flowedit.configure and persist with flowedit.save. "+
			"flowedit.state and flowedit.diagram show the current graph."),
	)
	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or
// stdin closes. Session events are forwarded to the client when a hub is
// configured.
func (s *FlowServer) Serve(ctx context.Context) error {
	if s.deps.Hub != nil {
		fwd := NewEventForwarder(s.mcpServer, s.clients, s.deps.Hub, s.logger)
		go func() {
			if err := fwd.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("event forwarder stopped", "error", err)
			}
		}()
	}
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Session returns the open editing session, or nil.
func (s *FlowServer) Session() *editor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *FlowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: openTool(), Handler: s.handleOpen},
		{Tool: paletteTool(), Handler: s.handlePalette},
		{Tool: addNodeTool(), Handler: s.handleAddNode},
		{Tool: connectTool(), Handler: s.handleConnect},
		{Tool: moveNodeTool(), Handler: s.handleMoveNode},
		{Tool: removeTool(), Handler: s.handleRemove},
		{Tool: selectTool(), Handler: s.handleSelect},
		{Tool: configureTool(), Handler: s.handleConfigure},
		{Tool: renameTool(), Handler: s.handleRename},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: executeTool(), Handler: s.handleExecute},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: stateTool(), Handler: s.handleState},
		{Tool: aiTool(), Handler: s.handleAI},
	}
}

// --- Tool definitions ---

func openTool() mcp.Tool {
	return mcp.NewTool("flowedit.open",
		mcp.WithDescription("Open an editing session on a new workflow, an existing workflow, or a past execution (read-only)"),
		mcp.WithBoolean("new", mcp.Description("Start a new, unsaved workflow")),
		mcp.WithNumber("workflow_id", mcp.Description("ID of an existing workflow to edit")),
		mcp.WithNumber("execution_id", mcp.Description("ID of an execution to inspect; opens its workflow read-only")),
		mcp.WithBoolean("read_only", mcp.Description("Open the workflow without allowing edits")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags for a new workflow")),
	)
}

func paletteTool() mcp.Tool {
	return mcp.NewTool("flowedit.palette",
		mcp.WithDescription("List node templates, optionally filtered by category and search text"),
		mcp.WithString("category",
			mcp.Enum("all", "triggers", "functions", "ai", "actions"),
			mcp.Description("Template category (default: all)"),
		),
		mcp.WithString("query", mcp.Description("Case-insensitive text matched against name and description")),
	)
}

func addNodeTool() mcp.Tool {
	return mcp.NewTool("flowedit.add_node",
		mcp.WithDescription("Create a node from a palette template"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template ID from flowedit.palette")),
		mcp.WithNumber("x", mcp.Description("Canvas x position")),
		mcp.WithNumber("y", mcp.Description("Canvas y position")),
	)
}

func connectTool() mcp.Tool {
	return mcp.NewTool("flowedit.connect",
		mcp.WithDescription("Connect two nodes. Triggers only have outputs and actions only have inputs; duplicate edges are refused"),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
	)
}

func moveNodeTool() mcp.Tool {
	return mcp.NewTool("flowedit.move_node",
		mcp.WithDescription("Move a node on the canvas"),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("New x position")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("New y position")),
	)
}

func removeTool() mcp.Tool {
	return mcp.NewTool("flowedit.remove",
		mcp.WithDescription("Remove a node (with its edges) or an edge"),
		mcp.WithString("node_id", mcp.Description("Node ID to remove")),
		mcp.WithString("edge_id", mcp.Description("Edge ID to remove")),
	)
}

func selectTool() mcp.Tool {
	return mcp.NewTool("flowedit.select",
		mcp.WithDescription("Select a node (showing its configuration form) or an edge; with no arguments clears the selection"),
		mcp.WithString("node_id", mcp.Description("Node ID to select")),
		mcp.WithString("edge_id", mcp.Description("Edge ID to select")),
	)
}

func configureTool() mcp.Tool {
	return mcp.NewTool("flowedit.configure",
		mcp.WithDescription("Set one configuration field of the selected node. Switching the subtype keeps fields of other subtypes"),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field name, e.g. name, type, prompt, cronExpression")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value; numbers are accepted as digits")),
		mcp.WithString("node_id", mcp.Description("Select this node first")),
	)
}

func renameTool() mcp.Tool {
	return mcp.NewTool("flowedit.rename",
		mcp.WithDescription("Set the workflow name and/or description"),
		mcp.WithString("name", mcp.Description("Workflow name")),
		mcp.WithString("description", mcp.Description("Workflow description")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("flowedit.save",
		mcp.WithDescription("Save the workflow. New workflows are created and adopt the server-assigned ID"),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("flowedit.validate",
		mcp.WithDescription("Validate the graph with the session's policy, or with the named policies"),
		mcp.WithString("policies", mcp.Description("Comma-separated policies: topology, acyclic, config, strict")),
	)
}

func executeTool() mcp.Tool {
	return mcp.NewTool("flowedit.execute",
		mcp.WithDescription("Start a run of the saved workflow"),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("flowedit.diagram",
		mcp.WithDescription("Render the graph. Returns ASCII art, Mermaid flowchart syntax, or a base64-encoded PNG image"),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format"),
		),
	)
}

func stateTool() mcp.Tool {
	return mcp.NewTool("flowedit.state",
		mcp.WithDescription("Describe the session: lifecycle state, workflow, nodes, selection and configuration form"),
	)
}

func aiTool() mcp.Tool {
	return mcp.NewTool("flowedit.ai",
		mcp.WithDescription("Test an AI node against its model endpoint, or draft a workflow from a description"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("test", "suggest"),
			mcp.Description("test runs node_id; suggest drafts a workflow from prompt"),
		),
		mcp.WithString("node_id", mcp.Description("AI node to test")),
		mcp.WithString("prompt", mcp.Description("Workflow description for suggest")),
		mcp.WithBoolean("apply", mcp.Description("Add the suggested nodes and edges to the canvas")),
		mcp.WithString("query", mcp.Description("jq expression applied to the result")),
	)
}
