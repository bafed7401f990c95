package editor

import (
	"context"
	"strconv"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/pkg/schema"
)

// OpenExecution loads a recorded run with its node logs and opens the
// workflow it ran as a read-only session.
func OpenExecution(ctx context.Context, deps Deps, executionID int64) (*Session, error) {
	exec, err := deps.Backend.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	logs, err := deps.Backend.ExecutionLogs(ctx, executionID)
	if err != nil {
		return nil, err
	}

	s := NewSession(deps, Options{WorkflowID: exec.WorkflowID, ReadOnly: true})
	s.execution = exec
	s.logs = logs
	if err := s.Load(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Execution returns the run this session inspects, or nil.
func (s *Session) Execution() *schema.Execution { return s.execution }

// ExecutionLogs returns the node logs of the inspected run.
func (s *Session) ExecutionLogs() []*schema.ExecutionLog { return s.logs }

// Diagram builds the diagram of the current graph, overlaid with node
// statuses when the session inspects a run.
func (s *Session) Diagram() *render.Diagram {
	title := schema.DefaultWorkflowName
	if s.workflow != nil && s.workflow.Name != "" {
		title = s.workflow.Name
	}
	logs := make([]schema.ExecutionLog, 0, len(s.logs))
	for _, l := range s.logs {
		if l != nil {
			logs = append(logs, *l)
		}
	}
	return render.Build(title, s.canvas.Graph(), logs)
}

// ExecutionMessage is the fallback shown when a run cannot be opened.
func ExecutionMessage(err error) string { return api.Message(err, FallbackLoadRun) }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
