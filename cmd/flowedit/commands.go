package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/palette"
	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/internal/validation"
	flowmcp "github.com/rendis/flowedit/pkg/mcp"
	"github.com/rendis/flowedit/pkg/schema"
)

func runPalette(_ context.Context, a *app, args []string) error {
	fs := a.flagSet("palette")
	category := fs.String("category", string(palette.CategoryAll), "category: all, triggers, functions, ai, actions")
	query := fs.String("query", "", "search text")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	templates := a.palette.Filter(palette.Category(*category), *query)
	if *asJSON {
		return writeJSON(a, templates)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tNAME\tDESCRIPTION")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Category, t.Name, t.Description)
	}
	return tw.Flush()
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("list")
	active := fs.String("active", "", "filter by active flag: true or false")
	tag := fs.String("tag", "", "filter by tag")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := api.WorkflowFilter{Tag: *tag}
	if *active != "" {
		v, err := strconv.ParseBool(*active)
		if err != nil {
			return fmt.Errorf("--active: %w", err)
		}
		filter.IsActive = &v
	}
	workflows, err := a.client.ListWorkflows(ctx, filter)
	if err != nil {
		return userError(err, "Failed to fetch workflows")
	}
	if *asJSON {
		return writeJSON(a, workflows)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tVERSION\tUPDATED")
	for _, w := range workflows {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%d\t%s\n", w.ID, w.Name, w.IsActive, w.Version, w.UpdatedAt)
	}
	return tw.Flush()
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("show")
	id := fs.Int64("workflow", 0, "workflow ID (required)")
	format := fs.String("format", "ascii", "output: ascii, mermaid, png, json")
	out := fs.String("out", "", "write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("--workflow is required")
	}

	sess, err := a.openWorkflow(ctx, *id, true)
	if err != nil {
		return err
	}
	if *format == "json" {
		return writeJSON(a, sess.Workflow())
	}
	return a.writeDiagram(ctx, sess.Diagram(), *format, *out)
}

func runExecute(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("execute")
	id := fs.Int64("workflow", 0, "workflow ID (required)")
	policies := fs.String("validate", "", "validation policies to pass first, comma-separated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("--workflow is required")
	}
	v, err := policy(*policies)
	if err != nil {
		return err
	}

	sess := editor.NewSession(a.deps(), editor.Options{WorkflowID: *id, Validator: v})
	if err := sess.Load(ctx); err != nil {
		return errors.New(sess.Err())
	}
	exec, err := sess.Execute(ctx)
	if err != nil {
		return userError(err, editor.FallbackExecute)
	}
	return writeJSON(a, exec)
}

func runExecution(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("execution")
	id := fs.Int64("id", 0, "execution ID (required)")
	format := fs.String("format", "ascii", "output: ascii, mermaid, png, json")
	out := fs.String("out", "", "write to file instead of stdout")
	cancel := fs.Bool("cancel", false, "cancel the run instead of showing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("--id is required")
	}

	if *cancel {
		exec, err := a.client.CancelExecution(ctx, *id)
		if err != nil {
			return userError(err, "Failed to cancel execution")
		}
		return writeJSON(a, exec)
	}

	sess, err := editor.OpenExecution(ctx, a.deps(), *id)
	if err != nil {
		return errors.New(editor.ExecutionMessage(err))
	}
	if *format == "json" {
		return writeJSON(a, map[string]any{
			"execution": sess.Execution(),
			"logs":      sess.ExecutionLogs(),
		})
	}
	return a.writeDiagram(ctx, sess.Diagram(), *format, *out)
}

func runAI(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("ai")
	id := fs.Int64("workflow", 0, "workflow ID (required)")
	nodeID := fs.String("node", "", "AI node ID (required)")
	query := fs.String("query", "", "jq expression applied to the result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 || *nodeID == "" {
		return errors.New("--workflow and --node are required")
	}

	sess, err := a.openWorkflow(ctx, *id, true)
	if err != nil {
		return err
	}
	raw, err := sess.TestNode(ctx, *nodeID)
	if err != nil {
		return userError(err, editor.FallbackTestNode)
	}
	return a.emitRaw(ctx, raw, *query)
}

func runSuggest(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("suggest")
	query := fs.String("query", "", "jq expression applied to the result")
	save := fs.Bool("save", false, "create a workflow from the suggestion")
	name := fs.String("name", "", "name of the saved workflow")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess := editor.NewSession(a.deps(), editor.Options{IsNew: true})
	if err := sess.Load(ctx); err != nil {
		return err
	}
	sg, err := sess.Suggest(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return userError(err, editor.FallbackSuggest)
	}
	if !*save {
		return a.emitRaw(ctx, sg.Raw, *query)
	}

	added, err := sess.ApplySuggestion(sg, schema.Position{})
	if err != nil {
		return err
	}
	if *name != "" {
		if err := sess.SetName(*name); err != nil {
			return err
		}
	}
	if err := sess.Save(ctx); err != nil {
		return errors.New(sess.Err())
	}
	return writeJSON(a, map[string]any{"workflow_id": sess.WorkflowID(), "nodes": added})
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email (instead of username)")
	password := fs.String("password", "", "password (default: $FLOWEDIT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = a.getenv("FLOWEDIT_PASSWORD")
	}

	user, err := a.client.Login(ctx, api.LoginRequest{Username: *username, Email: *email, Password: *password})
	if err != nil {
		return userError(err, "Login failed")
	}
	token, _ := a.creds.Token()
	path, err := saveToken(a.getenv, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s; token stored in %s\n", user.Username, path)
	return nil
}

func runMCP(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("mcp")
	policies := fs.String("validate", "", "default validation policies, comma-separated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := policy(*policies)
	if err != nil {
		return err
	}

	srv := flowmcp.NewFlowServer(flowmcp.ServerDeps{
		Editor:    a.deps(),
		Validator: v,
		Logger:    a.logger,
	})
	a.logger.Info("mcp server starting", "api_url", a.cfg.APIURL)
	return srv.Serve(ctx)
}

// --- helpers ---

func (a *app) openWorkflow(ctx context.Context, id int64, readOnly bool) (*editor.Session, error) {
	sess := editor.NewSession(a.deps(), editor.Options{WorkflowID: id, ReadOnly: readOnly})
	if err := sess.Load(ctx); err != nil {
		return nil, errors.New(sess.Err())
	}
	return sess, nil
}

func (a *app) writeDiagram(ctx context.Context, d *render.Diagram, format, out string) error {
	var data []byte
	switch format {
	case "png":
		png, err := render.RenderImage(ctx, d)
		if err != nil {
			return err
		}
		data = png
	default:
		text, err := render.Render(d, render.Format(format))
		if err != nil {
			return err
		}
		data = []byte(text)
	}

	if out == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", out, err)
	}
	fmt.Fprintf(a.stdout, "Wrote %s\n", out)
	return nil
}

// emitRaw prints an opaque JSON result, narrowed by a jq query when given.
func (a *app) emitRaw(ctx context.Context, raw json.RawMessage, query string) error {
	if query != "" {
		filtered, err := a.jq.QueryJSON(ctx, query, raw)
		if err != nil {
			return err
		}
		raw = filtered
	}
	return writeJSON(a, raw)
}

func writeJSON(a *app, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

// userError replaces API failures with the server message or fallback.
func userError(err error, fallback string) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return errors.New(api.Message(err, fallback))
	}
	return err
}

func policy(names string) (validation.Validator, error) {
	var list []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			list = append(list, n)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	return validation.ByName(list...)
}
