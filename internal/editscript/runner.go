package editscript

import (
	"context"
	"fmt"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/canvas"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// Options control how a script is applied.
type Options struct {
	// DryRun applies the edits in memory and skips save and execute.
	DryRun bool

	IDGenerator canvas.IDGenerator
}

// Report summarizes an applied script.
type Report struct {
	SessionID  string                   `json:"session_id"`
	WorkflowID int64                    `json:"workflow_id,omitempty"`
	Nodes      map[string]string        `json:"nodes,omitempty"`
	Applied    int                      `json:"applied"`
	Rejected   []string                 `json:"rejected,omitempty"`
	Validation *schema.ValidationResult `json:"validation,omitempty"`
	Saved      bool                     `json:"saved"`
	Execution  *schema.Execution        `json:"execution,omitempty"`

	// Session is the session the script ran in, for rendering afterwards.
	Session *editor.Session `json:"-"`
}

// Run applies s in a fresh session. Edits stop at the first failing step;
// refused connections are reported, not failed. A failing validation
// policy stops the script before save.
func Run(ctx context.Context, deps editor.Deps, s *Script, opts Options) (*Report, error) {
	var policy validation.Validator
	if len(s.Validate) > 0 {
		v, err := validation.ByName(s.Validate...)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
		}
		policy = v
	}

	sess := editor.NewSession(deps, editor.Options{
		WorkflowID:  s.Workflow,
		IsNew:       s.New,
		Tags:        s.Tags,
		Validator:   policy,
		IDGenerator: opts.IDGenerator,
	})
	rep := &Report{SessionID: sess.ID(), Nodes: make(map[string]string), Session: sess}

	if err := sess.Load(ctx); err != nil {
		return rep, fmt.Errorf("load workflow: %s: %w", sess.Err(), err)
	}
	if s.Name != nil {
		if err := sess.SetName(*s.Name); err != nil {
			return rep, err
		}
	}
	if s.Description != nil {
		if err := sess.SetDescription(*s.Description); err != nil {
			return rep, err
		}
	}

	for i, st := range s.Steps {
		if err := rep.apply(sess, st); err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Kind(), err)
		}
		rep.Applied++
	}
	sess.ClearSelection()

	if policy != nil {
		rep.Validation = sess.Validate()
		if err := rep.Validation.ToError(); err != nil {
			return rep, err
		}
	}
	if opts.DryRun {
		rep.WorkflowID = sess.WorkflowID()
		return rep, nil
	}

	if err := sess.Save(ctx); err != nil {
		return rep, fmt.Errorf("save: %s: %w", api.Message(err, editor.FallbackSave), err)
	}
	rep.Saved = true
	rep.WorkflowID = sess.WorkflowID()

	if s.Execute {
		exec, err := sess.Execute(ctx)
		if err != nil {
			return rep, fmt.Errorf("execute: %s: %w", api.Message(err, editor.FallbackExecute), err)
		}
		rep.Execution = exec
	}
	return rep, nil
}

func (r *Report) resolve(ref string) string {
	if id, ok := r.Nodes[ref]; ok {
		return id
	}
	return ref
}

func (r *Report) apply(sess *editor.Session, st Step) error {
	switch {
	case st.Add != nil:
		id, err := sess.AddNodeFromTemplate(st.Add.Template, schema.Position{X: st.Add.X, Y: st.Add.Y})
		if err != nil {
			return err
		}
		alias := st.Add.ID
		if alias == "" {
			alias = id
		}
		r.Nodes[alias] = id
	case st.Connect != nil:
		src, dst := r.resolve(st.Connect.Source), r.resolve(st.Connect.Target)
		if _, ok := sess.Connect(src, dst); !ok {
			r.Rejected = append(r.Rejected, src+" -> "+dst)
		}
	case st.Configure != nil:
		if err := sess.SelectNode(r.resolve(st.Configure.Node)); err != nil {
			return err
		}
		if _, err := sess.ChangeField(st.Configure.Field, st.Configure.Value); err != nil {
			return err
		}
	case st.Move != nil:
		return sess.MoveNode(r.resolve(st.Move.Node), schema.Position{X: st.Move.X, Y: st.Move.Y})
	case st.Remove != nil:
		if st.Remove.Node != "" {
			return sess.RemoveNode(r.resolve(st.Remove.Node))
		}
		return sess.RemoveEdge(st.Remove.Edge)
	}
	return nil
}
