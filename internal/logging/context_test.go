package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", WorkflowID(ctx))
	assert.Equal(t, "", NodeID(ctx))

	ctx = WithSessionID(ctx, "s-1")
	ctx = WithWorkflowID(ctx, "42")
	ctx = WithNodeID(ctx, "trigger-a")

	assert.Equal(t, "s-1", SessionID(ctx))
	assert.Equal(t, "42", WorkflowID(ctx))
	assert.Equal(t, "trigger-a", NodeID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithWorkflowID(context.Background(), "7")
	LogWith(ctx, logger).Info("saved")

	out := buf.String()
	assert.Contains(t, out, "workflow_id=7")
	assert.NotContains(t, out, "session_id")
	assert.NotContains(t, out, "node_id")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "text")

	ctx := WithSessionID(context.Background(), "s-9")
	ctx = WithNodeID(ctx, "ai-1")
	logger.DebugContext(ctx, "connect rejected", "reason", "topology")

	out := buf.String()
	assert.Contains(t, out, "session_id=s-9")
	assert.Contains(t, out, "node_id=ai-1")
	assert.Contains(t, out, "reason=topology")
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
