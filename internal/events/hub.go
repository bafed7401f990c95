// Package events is the publish/subscribe channel for editing session
// activity.
package events

import "context"

// Event types published by editing sessions.
const (
	TypeStateChanged = "session.state_changed"
	TypeLoaded       = "session.loaded"
	TypeSaved        = "session.saved"
	TypeSaveFailed   = "session.save_failed"
	TypeExecuted     = "session.executed"
	TypeGraphChanged = "graph.changed"
	TypeSelection    = "graph.selection"
	TypeInvalidated  = "auth.invalidated"
)

// Event is one notification about an editing session.
type Event struct {
	SessionID  string `json:"session_id"`
	WorkflowID int64  `json:"workflow_id,omitempty"`
	Type       string `json:"type"`
	NodeID     string `json:"node_id,omitempty"`
	EdgeID     string `json:"edge_id,omitempty"`
	Payload    any    `json:"payload,omitempty"`
}

// Filter selects the events a subscriber receives. Zero fields match all.
type Filter struct {
	SessionID string   `json:"session_id,omitempty"`
	Types     []string `json:"types,omitempty"`
}

// Hub provides pub/sub for session events.
type Hub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}
