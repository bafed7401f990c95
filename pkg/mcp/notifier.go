package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowedit/internal/events"
)

// ClientNotifier pushes session events to the client that owns the session.
type ClientNotifier interface {
	Notify(ctx context.Context, ev events.Event) error
}

// EventForwarder implements ClientNotifier over MCP notifications and can
// drain a hub subscription into it.
type EventForwarder struct {
	mcpServer *server.MCPServer
	clients   *SessionRegistry
	hub       events.Hub
	logger    *slog.Logger
}

// NewEventForwarder creates a forwarder for events published on hub.
func NewEventForwarder(mcpServer *server.MCPServer, clients *SessionRegistry, hub events.Hub, logger *slog.Logger) *EventForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventForwarder{mcpServer: mcpServer, clients: clients, hub: hub, logger: logger}
}

// Notify sends ev to the client that opened its session.
// Best-effort: returns nil if no client owns the session.
func (f *EventForwarder) Notify(_ context.Context, ev events.Event) error {
	clientID, ok := f.clients.SessionFor(ev.SessionID)
	if !ok {
		return nil
	}
	err := f.mcpServer.SendNotificationToSpecificClient(clientID, "notifications/message", map[string]any{
		"level":  "info",
		"logger": "flowedit",
		"data":   ev,
	})
	if errors.Is(err, server.ErrSessionNotFound) {
		// Client went away between lookup and send.
		f.clients.Remove(clientID)
		return nil
	}
	return err
}

// Run forwards hub events until ctx is cancelled.
func (f *EventForwarder) Run(ctx context.Context) error {
	ch, cancel, err := f.hub.Subscribe(ctx, events.Filter{})
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := f.Notify(ctx, ev); err != nil {
				f.logger.Debug("notify failed", "session_id", ev.SessionID, "type", ev.Type, "error", err)
			}
		}
	}
}
