// Package editor composes the canvas, palette and configuration panel into
// an editing session for one workflow, and drives its load, save and
// execute lifecycle against the workflow API.
package editor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/configpanel"
	"github.com/rendis/flowedit/internal/events"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/palette"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// Messages shown when the server does not provide one.
const (
	FallbackFetch    = "Failed to fetch workflow"
	FallbackSave     = "Failed to save workflow"
	FallbackExecute  = "Failed to execute workflow"
	FallbackTestNode = "Failed to test AI node"
	FallbackSuggest  = "Failed to generate workflow suggestion"
	FallbackLoadRun  = "Failed to fetch execution"
)

// Backend is the subset of the workflow API a session uses.
type Backend interface {
	GetWorkflow(ctx context.Context, id int64) (*schema.Workflow, error)
	GetVersion(ctx context.Context, id int64, version int) (*schema.WorkflowVersion, error)
	CreateWorkflow(ctx context.Context, req api.CreateWorkflowRequest) (*schema.Workflow, error)
	UpdateWorkflow(ctx context.Context, id int64, req api.UpdateWorkflowRequest) (*schema.Workflow, error)
	ExecuteWorkflow(ctx context.Context, id int64) (*schema.Execution, error)
	GetExecution(ctx context.Context, id int64) (*schema.Execution, error)
	ExecutionLogs(ctx context.Context, id int64) ([]*schema.ExecutionLog, error)
	ProcessAI(ctx context.Context, kind api.AIKind, body any) (json.RawMessage, error)
	SuggestWorkflow(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Deps are the collaborators shared by sessions.
type Deps struct {
	Backend Backend
	Palette *palette.Palette // nil uses palette.Default()
	Hub     events.Hub       // optional
	Logger  *slog.Logger     // optional
}

// Options configure one session.
type Options struct {
	WorkflowID int64
	IsNew      bool
	ReadOnly   bool
	Tags       []string

	// Validator is the graph validation hook. Nil applies no policy.
	Validator validation.Validator

	// IDGenerator overrides canvas node id generation.
	IDGenerator canvas.IDGenerator
}

// Session is one editing session. It is single-owner and not safe for
// concurrent use.
type Session struct {
	id      string
	backend Backend
	palette *palette.Palette
	hub     events.Hub
	logger  *slog.Logger
	opts    Options

	state    State
	errMsg   string
	isNew    bool
	workflow *schema.Workflow
	canvas   *canvas.Canvas
	binding  *configpanel.Binding
	dirty    bool

	execution *schema.Execution
	logs      []*schema.ExecutionLog
}

// NewSession creates a session in the loading state. Call Load next.
func NewSession(deps Deps, opts Options) *Session {
	s := &Session{
		id:      uuid.NewString(),
		backend: deps.Backend,
		palette: deps.Palette,
		hub:     deps.Hub,
		logger:  deps.Logger,
		opts:    opts,
		state:   StateLoading,
		isNew:   opts.IsNew,
	}
	if s.palette == nil {
		s.palette = palette.Default()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	canvasOpts := []canvas.Option{canvas.WithReadOnly(opts.ReadOnly)}
	if opts.IDGenerator != nil {
		canvasOpts = append(canvasOpts, canvas.WithIDGenerator(opts.IDGenerator))
	}
	s.canvas = canvas.New(schema.Graph{}, canvasOpts...)
	s.canvas.Observe(s.onCanvasEvent)
	return s
}

// ID returns the session id used in logs and events.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the message of the last failed fetch, save or execute, or "".
func (s *Session) Err() string { return s.errMsg }

// IsNew reports whether the workflow has not been created on the server yet.
func (s *Session) IsNew() bool { return s.isNew }

// WorkflowID returns the server id of the workflow, or 0 while new.
func (s *Session) WorkflowID() int64 {
	if s.workflow == nil {
		return 0
	}
	return s.workflow.ID
}

// Dirty reports whether the graph changed since the last load or save.
func (s *Session) Dirty() bool { return s.dirty }

// Canvas exposes the session's graph surface for rendering.
func (s *Session) Canvas() *canvas.Canvas { return s.canvas }

// Palette returns the node palette offered by this session.
func (s *Session) Palette() *palette.Palette { return s.palette }

// Workflow returns a copy of the workflow with the current graph, or nil
// when nothing is loaded.
func (s *Session) Workflow() *schema.Workflow {
	if s.workflow == nil {
		return nil
	}
	w := s.workflow.Clone()
	w.SetGraph(s.canvas.Graph())
	return w
}

func (s *Session) ctx(ctx context.Context) context.Context {
	ctx = logging.WithSessionID(ctx, s.id)
	if id := s.WorkflowID(); id != 0 {
		ctx = logging.WithWorkflowID(ctx, formatID(id))
	}
	return ctx
}

func (s *Session) log(ctx context.Context) *slog.Logger {
	return logging.LogWith(s.ctx(ctx), s.logger)
}

func (s *Session) publish(ctx context.Context, ev events.Event) {
	if s.hub == nil {
		return
	}
	ev.SessionID = s.id
	ev.WorkflowID = s.WorkflowID()
	if err := s.hub.Publish(ctx, ev); err != nil {
		s.log(ctx).DebugContext(ctx, "publish session event", "type", ev.Type, "error", err)
	}
}

// Load fetches the workflow, or synthesizes a default one for new sessions.
// A failed fetch leaves the session in the terminal error state.
func (s *Session) Load(ctx context.Context) error {
	if s.state != StateLoading {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition, "load: session is %s", s.state)
	}

	if s.isNew {
		w := schema.NewWorkflow()
		w.Tags = append([]string(nil), s.opts.Tags...)
		s.adopt(w)
		return s.loaded(ctx)
	}

	w, err := s.fetch(ctx)
	if err != nil {
		s.errMsg = api.Message(err, FallbackFetch)
		s.log(ctx).WarnContext(ctx, "fetch workflow failed",
			"workflow_id", s.opts.WorkflowID, "error", err)
		if terr := s.transition(ctx, StateError); terr != nil {
			return terr
		}
		return err
	}
	s.adopt(w)
	return s.loaded(ctx)
}

// fetch reads the workflow metadata and, since the server keeps graphs on
// versions only, the definition of its current version. A workflow created
// without a definition has no version row and loads with an empty graph.
func (s *Session) fetch(ctx context.Context) (*schema.Workflow, error) {
	w, err := s.backend.GetWorkflow(s.ctx(ctx), s.opts.WorkflowID)
	if err != nil {
		return nil, err
	}
	if !w.Graph().Empty() || w.Version <= 0 {
		return w, nil
	}

	v, err := s.backend.GetVersion(s.ctx(ctx), s.opts.WorkflowID, w.Version)
	switch {
	case api.StatusCode(err) == http.StatusNotFound:
		s.log(ctx).DebugContext(ctx, "workflow has no stored version", "version", w.Version)
		return w, nil
	case err != nil:
		return nil, err
	case v != nil:
		w.SetGraph(v.Definition)
	}
	return w, nil
}

func (s *Session) loaded(ctx context.Context) error {
	if err := s.transition(ctx, StateReady); err != nil {
		return err
	}
	s.publish(ctx, events.Event{Type: events.TypeLoaded})
	return nil
}

// adopt replaces the workflow metadata and graph.
func (s *Session) adopt(w *schema.Workflow) {
	g := w.Graph()
	meta := w.Clone()
	meta.Nodes, meta.Edges, meta.Definition = nil, nil, nil
	s.workflow = meta
	s.binding = nil
	s.canvas.Load(g)
	s.dirty = false
}

// SetName edits the workflow name.
func (s *Session) SetName(name string) error {
	if err := s.requireReady("set name"); err != nil {
		return err
	}
	s.workflow.Name = name
	return nil
}

// SetDescription edits the workflow description.
func (s *Session) SetDescription(desc string) error {
	if err := s.requireReady("set description"); err != nil {
		return err
	}
	s.workflow.Description = desc
	return nil
}

// Save persists the session. New workflows are created with their graph and
// the session adopts the server id; existing ones send name and description,
// plus the graph when it changed. Failures return to ready with edits intact
// and the message available from Err.
func (s *Session) Save(ctx context.Context) error {
	if s.canvas.ReadOnly() {
		return schema.NewError(schema.ErrCodeReadOnly, "save: session is read-only")
	}
	if err := s.transition(ctx, StateSaving); err != nil {
		return err
	}

	graph := s.canvas.Graph()
	var (
		saved *schema.Workflow
		err   error
	)
	if s.isNew {
		saved, err = s.backend.CreateWorkflow(s.ctx(ctx), api.CreateWorkflowRequest{
			Name:        s.workflow.Name,
			Description: s.workflow.Description,
			IsActive:    true,
			IsPublic:    false,
			Tags:        s.workflow.Tags,
			Definition:  &graph,
		})
	} else {
		req := api.UpdateWorkflowRequest{
			Name:        &s.workflow.Name,
			Description: &s.workflow.Description,
		}
		if s.dirty {
			req.Definition = &graph
		}
		saved, err = s.backend.UpdateWorkflow(s.ctx(ctx), s.workflow.ID, req)
	}

	if err != nil {
		s.errMsg = api.Message(err, FallbackSave)
		s.log(ctx).WarnContext(ctx, "save workflow failed", "error", err)
		_ = s.transition(ctx, StateReady)
		s.publish(ctx, events.Event{Type: events.TypeSaveFailed, Payload: s.errMsg})
		return err
	}

	if saved != nil {
		if s.isNew {
			s.workflow.ID = saved.ID
			s.isNew = false
		}
		if saved.Version != 0 {
			s.workflow.Version = saved.Version
		}
		s.workflow.CreatedAt = saved.CreatedAt
		s.workflow.UpdatedAt = saved.UpdatedAt
	}
	s.errMsg = ""
	s.dirty = false
	if err := s.transition(ctx, StateReady); err != nil {
		return err
	}
	s.log(ctx).InfoContext(ctx, "workflow saved", "version", s.workflow.Version)
	s.publish(ctx, events.Event{Type: events.TypeSaved})
	return nil
}

// Validate runs the configured graph validation hook against the current
// graph. Without a hook the result is always valid.
func (s *Session) Validate() *schema.ValidationResult {
	if s.opts.Validator == nil {
		return &schema.ValidationResult{}
	}
	g := s.canvas.Graph()
	res := s.opts.Validator.Validate(&g)
	if res == nil {
		return &schema.ValidationResult{}
	}
	return res
}

// Execute starts a run of the saved workflow. The server runs the latest
// saved version, so a session with unsaved graph edits is refused. The
// validation hook, when configured, must pass first.
func (s *Session) Execute(ctx context.Context) (*schema.Execution, error) {
	if err := s.requireReady("execute"); err != nil {
		return nil, err
	}
	if s.isNew {
		return nil, schema.NewError(schema.ErrCodeValidation, "execute: save the workflow first")
	}
	if s.dirty {
		s.log(ctx).WarnContext(ctx, "execute refused with unsaved graph edits")
		return nil, schema.NewError(schema.ErrCodeConflict, "execute: the graph has unsaved changes, save first")
	}
	if res := s.Validate(); !res.Valid() {
		return nil, res.ToError()
	}

	exec, err := s.backend.ExecuteWorkflow(s.ctx(ctx), s.workflow.ID)
	if err != nil {
		s.errMsg = api.Message(err, FallbackExecute)
		s.log(ctx).WarnContext(ctx, "execute workflow failed", "error", err)
		return nil, err
	}
	if exec == nil {
		exec = &schema.Execution{WorkflowID: s.workflow.ID, Status: schema.ExecutionPending}
	}
	s.errMsg = ""
	s.log(ctx).InfoContext(ctx, "workflow execution started", "execution_id", exec.ID)
	s.publish(ctx, events.Event{Type: events.TypeExecuted, Payload: exec})
	return exec, nil
}
