package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rendis/flowedit/pkg/schema"
)

// The node catalog, AI, template and trigger endpoints carry payloads this
// module does not interpret. They are passed through as raw JSON.

// AIKind selects an AI processing endpoint.
type AIKind string

const (
	AILLM     AIKind = "llm"
	AIAgent   AIKind = "agent"
	AIContent AIKind = "content"
)

var aiPaths = map[AIKind]string{
	AILLM:     "/ai/llm/process",
	AIAgent:   "/ai/agent/process",
	AIContent: "/ai/content/generate",
}

func (c *Client) raw(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, request{method: method, path: path, query: query, body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Nodes returns the server's node type catalog.
func (c *Client) Nodes(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/nodes", nil, nil)
}

// NodeCategories returns the server's node categories.
func (c *Client) NodeCategories(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/nodes/categories", nil, nil)
}

// AIModels lists available models, optionally of one type ("llm", ...).
func (c *Client) AIModels(ctx context.Context, modelType string) (json.RawMessage, error) {
	var q url.Values
	if modelType != "" {
		q = url.Values{"type": {modelType}}
	}
	return c.raw(ctx, http.MethodGet, "/ai/models", q, nil)
}

// ProcessAI posts body to the endpoint for kind.
func (c *Client) ProcessAI(ctx context.Context, kind AIKind, body any) (json.RawMessage, error) {
	path, ok := aiPaths[kind]
	if !ok {
		return nil, &Error{Method: http.MethodPost, Path: "/ai/" + string(kind),
			Cause: schema.NewErrorf(schema.ErrCodeValidation, "unknown AI kind %q", kind)}
	}
	return c.raw(ctx, http.MethodPost, path, nil, body)
}

// SuggestWorkflow asks the server to draft a workflow from a prompt.
func (c *Client) SuggestWorkflow(ctx context.Context, prompt string) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/ai/workflow/suggest", nil, map[string]string{"prompt": prompt})
}

// Templates lists workflow templates.
func (c *Client) Templates(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/templates", nil, nil)
}

// Template fetches one workflow template.
func (c *Client) Template(ctx context.Context, id string) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, nil)
}

// UseTemplate instantiates a template as a new workflow.
func (c *Client) UseTemplate(ctx context.Context, id string, body any) (json.RawMessage, error) {
	if body == nil {
		body = struct{}{}
	}
	return c.raw(ctx, http.MethodPost, "/templates/"+url.PathEscape(id)+"/use", nil, body)
}

// Webhooks lists webhook triggers.
func (c *Client) Webhooks(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/triggers/webhooks", nil, nil)
}

// CreateWebhook registers a webhook trigger.
func (c *Client) CreateWebhook(ctx context.Context, body any) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/triggers/webhooks", nil, body)
}

// Schedules lists schedule triggers.
func (c *Client) Schedules(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/triggers/schedules", nil, nil)
}

// CreateSchedule registers a schedule trigger.
func (c *Client) CreateSchedule(ctx context.Context, body any) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/triggers/schedules", nil, body)
}
