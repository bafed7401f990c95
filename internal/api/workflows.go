package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rendis/flowedit/pkg/schema"
)

// WorkflowFilter narrows GET /workflows. Nil fields are not sent.
type WorkflowFilter struct {
	IsActive *bool
	IsPublic *bool
	Tag      string
}

func (f WorkflowFilter) query() url.Values {
	q := url.Values{}
	if f.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*f.IsActive))
	}
	if f.IsPublic != nil {
		q.Set("is_public", strconv.FormatBool(*f.IsPublic))
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	return q
}

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsActive    bool          `json:"is_active"`
	IsPublic    bool          `json:"is_public"`
	Tags        []string      `json:"tags"`
	Definition  *schema.Graph `json:"definition,omitempty"`
}

// UpdateWorkflowRequest is the body of PUT /workflows/{id}. Nil fields are
// left unchanged by the server. A Definition creates a new version.
type UpdateWorkflowRequest struct {
	Name         *string       `json:"name,omitempty"`
	Description  *string       `json:"description,omitempty"`
	IsActive     *bool         `json:"is_active,omitempty"`
	IsPublic     *bool         `json:"is_public,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Definition   *schema.Graph `json:"definition,omitempty"`
	VersionNotes string        `json:"version_notes,omitempty"`
}

type workflowEnvelope struct {
	Workflow *schema.Workflow `json:"workflow"`
}

func workflowPath(id int64, suffix string) string {
	return fmt.Sprintf("/workflows/%d%s", id, suffix)
}

// ListWorkflows returns the workflows visible to the caller.
func (c *Client) ListWorkflows(ctx context.Context, f WorkflowFilter) ([]*schema.Workflow, error) {
	var resp struct {
		Workflows []*schema.Workflow `json:"workflows"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/workflows", query: f.query()}, &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

// GetWorkflow fetches one workflow.
func (c *Client) GetWorkflow(ctx context.Context, id int64) (*schema.Workflow, error) {
	var resp workflowEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: workflowPath(id, "")}, &resp); err != nil {
		return nil, err
	}
	if resp.Workflow == nil {
		return nil, &Error{Method: http.MethodGet, Path: workflowPath(id, ""), StatusCode: http.StatusOK,
			Cause: schema.NewError(schema.ErrCodeAPI, "response has no workflow")}
	}
	return resp.Workflow, nil
}

// CreateWorkflow creates a workflow and returns the server's copy.
func (c *Client) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*schema.Workflow, error) {
	if req.Tags == nil {
		req.Tags = []string{}
	}
	var resp workflowEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: "/workflows", body: req}, &resp); err != nil {
		return nil, err
	}
	if resp.Workflow == nil {
		return nil, &Error{Method: http.MethodPost, Path: "/workflows", StatusCode: http.StatusCreated,
			Cause: schema.NewError(schema.ErrCodeAPI, "response has no workflow")}
	}
	return resp.Workflow, nil
}

// UpdateWorkflow applies a partial update.
func (c *Client) UpdateWorkflow(ctx context.Context, id int64, req UpdateWorkflowRequest) (*schema.Workflow, error) {
	var resp workflowEnvelope
	if err := c.do(ctx, request{method: http.MethodPut, path: workflowPath(id, ""), body: req}, &resp); err != nil {
		return nil, err
	}
	return resp.Workflow, nil
}

// DeleteWorkflow removes a workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: workflowPath(id, "")}, nil)
}

// ListVersions returns the stored revisions of a workflow, newest first.
func (c *Client) ListVersions(ctx context.Context, id int64) ([]*schema.WorkflowVersion, error) {
	var resp struct {
		Versions []*schema.WorkflowVersion `json:"versions"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: workflowPath(id, "/versions")}, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// GetVersion fetches one revision.
func (c *Client) GetVersion(ctx context.Context, id int64, version int) (*schema.WorkflowVersion, error) {
	var resp struct {
		Version *schema.WorkflowVersion `json:"version"`
	}
	path := workflowPath(id, "/versions/"+strconv.Itoa(version))
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	return resp.Version, nil
}

// ExecuteWorkflow starts a run of the workflow's latest version.
func (c *Client) ExecuteWorkflow(ctx context.Context, id int64) (*schema.Execution, error) {
	var resp executionEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: workflowPath(id, "/execute"), body: struct{}{}}, &resp); err != nil {
		return nil, err
	}
	return resp.Execution, nil
}
