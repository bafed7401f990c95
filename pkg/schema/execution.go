package schema

import "encoding/json"

// ExecutionStatus is the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the run has finished.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// NodeStatus is the per-node state recorded in an execution log.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
	NodeSkipped   NodeStatus = "skipped"
)

// Execution is a recorded run of a workflow. It is read-only here.
type Execution struct {
	ID                int64           `json:"id"`
	WorkflowID        int64           `json:"workflow_id"`
	WorkflowVersionID int64           `json:"workflow_version_id,omitempty"`
	Status            ExecutionStatus `json:"status"`
	TriggerType       string          `json:"trigger_type,omitempty"`
	TriggeredBy       int64           `json:"triggered_by,omitempty"`
	StartedAt         string          `json:"started_at,omitempty"`
	FinishedAt        string          `json:"finished_at,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// ExecutionLog is one node's record within an execution.
type ExecutionLog struct {
	ID           int64           `json:"id"`
	ExecutionID  int64           `json:"execution_id"`
	NodeID       string          `json:"node_id"`
	Status       NodeStatus      `json:"status"`
	StartedAt    string          `json:"started_at,omitempty"`
	FinishedAt   string          `json:"finished_at,omitempty"`
	InputData    json.RawMessage `json:"input_data,omitempty"`
	OutputData   json.RawMessage `json:"output_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
