package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rendis/flowedit/pkg/schema"
)

// ExecutionFilter narrows GET /executions.
type ExecutionFilter struct {
	WorkflowID int64
	Status     schema.ExecutionStatus
}

func (f ExecutionFilter) query() url.Values {
	q := url.Values{}
	if f.WorkflowID != 0 {
		q.Set("workflow_id", strconv.FormatInt(f.WorkflowID, 10))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

type executionEnvelope struct {
	Execution *schema.Execution `json:"execution"`
}

func executionPath(id int64, suffix string) string {
	return fmt.Sprintf("/executions/%d%s", id, suffix)
}

// ListExecutions returns recorded runs, newest first.
func (c *Client) ListExecutions(ctx context.Context, f ExecutionFilter) ([]*schema.Execution, error) {
	var resp struct {
		Executions []*schema.Execution `json:"executions"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/executions", query: f.query()}, &resp); err != nil {
		return nil, err
	}
	return resp.Executions, nil
}

// GetExecution fetches one run.
func (c *Client) GetExecution(ctx context.Context, id int64) (*schema.Execution, error) {
	var resp executionEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: executionPath(id, "")}, &resp); err != nil {
		return nil, err
	}
	return resp.Execution, nil
}

// ExecutionLogs returns the per-node log records of a run.
func (c *Client) ExecutionLogs(ctx context.Context, id int64) ([]*schema.ExecutionLog, error) {
	var resp struct {
		Logs []*schema.ExecutionLog `json:"logs"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: executionPath(id, "/logs")}, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// CancelExecution stops a pending or running run.
func (c *Client) CancelExecution(ctx context.Context, id int64) (*schema.Execution, error) {
	var resp executionEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: executionPath(id, "/cancel"), body: struct{}{}}, &resp); err != nil {
		return nil, err
	}
	return resp.Execution, nil
}
