package editor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/pkg/schema"
)

// Messages for AI requests missing their required input.
const (
	MsgLLMPrompt     = "Please enter a prompt for the LLM node."
	MsgAgentGoal     = "Please enter a goal for the Agent node."
	MsgContentPrompt = "Please enter a prompt for content generation."
	MsgSuggestPrompt = "Please enter a description of the workflow you want to create."
)

const (
	defaultAIModel    = "gpt-4"
	defaultAIProvider = "openai"
)

// AIRequest maps an AI node to the endpoint and body that test it. It fails
// with a validation error carrying the user-facing message when the node's
// prompt or goal is empty.
func AIRequest(n schema.Node) (api.AIKind, map[string]any, error) {
	payload, ok := schema.DecodePayload(n.Type, n.Data)
	if !ok || n.Type != schema.NodeAI {
		return "", nil, schema.NewErrorf(schema.ErrCodeValidation,
			"node %s is not a testable AI node", n.ID).WithNode(n.ID)
	}

	switch p := payload.(type) {
	case schema.LLMNode:
		if strings.TrimSpace(p.Prompt) == "" {
			return "", nil, schema.NewError(schema.ErrCodeValidation, MsgLLMPrompt).WithNode(n.ID)
		}
		return api.AILLM, map[string]any{
			"model":      strings.ToLower(or(p.Model, defaultAIModel)),
			"provider":   defaultAIProvider,
			"prompt":     p.Prompt,
			"max_tokens": orInt(p.MaxTokens, 1000),
		}, nil
	case schema.AgentNode:
		if strings.TrimSpace(p.Goal) == "" {
			return "", nil, schema.NewError(schema.ErrCodeValidation, MsgAgentGoal).WithNode(n.ID)
		}
		return api.AIAgent, map[string]any{
			"agent_type": or(p.AgentType, "general"),
			"goal":       p.Goal,
			"model":      defaultAIModel,
			"provider":   defaultAIProvider,
			"max_steps":  orInt(p.MaxSteps, 5),
		}, nil
	case schema.ContentGenNode:
		if strings.TrimSpace(p.Prompt) == "" {
			return "", nil, schema.NewError(schema.ErrCodeValidation, MsgContentPrompt).WithNode(n.ID)
		}
		return api.AIContent, map[string]any{
			"content_type": or(p.ContentType, "text"),
			"prompt":       p.Prompt,
			"model":        defaultAIModel,
			"provider":     defaultAIProvider,
		}, nil
	}
	return "", nil, schema.NewErrorf(schema.ErrCodeValidation,
		"node %s is not a testable AI node", n.ID).WithNode(n.ID)
}

// TestNode sends an AI node's configuration to its processing endpoint and
// returns the result verbatim.
func (s *Session) TestNode(ctx context.Context, nodeID string) (json.RawMessage, error) {
	n, ok := s.canvas.Node(nodeID)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID).WithNode(nodeID)
	}
	kind, body, err := AIRequest(n)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithNodeID(s.ctx(ctx), nodeID)
	out, err := s.backend.ProcessAI(ctx, kind, body)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "ai node test failed", "kind", kind, "error", err)
		return nil, err
	}
	return out, nil
}

// Suggestion is a drafted workflow returned by the suggestion endpoint.
type Suggestion struct {
	Graph schema.Graph
	Raw   json.RawMessage
}

// Suggest asks the server to draft a workflow for prompt.
func (s *Session) Suggest(ctx context.Context, prompt string) (*Suggestion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, MsgSuggestPrompt)
	}
	raw, err := s.backend.SuggestWorkflow(s.ctx(ctx), prompt)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "workflow suggestion failed", "error", err)
		return nil, err
	}
	return ParseSuggestion(raw)
}

// ParseSuggestion reads the drafted graph from a suggestion response. The
// graph is taken from "workflow" when present, otherwise from the top level.
func ParseSuggestion(raw json.RawMessage) (*Suggestion, error) {
	var env struct {
		Workflow *schema.Graph `json:"workflow"`
		schema.Graph
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, schema.NewError(schema.ErrCodeAPI, "suggestion is not a workflow").WithCause(err)
	}
	g := env.Graph
	if env.Workflow != nil {
		g = *env.Workflow
	}
	return &Suggestion{Graph: g, Raw: raw}, nil
}

// ApplySuggestion adds the suggested nodes with fresh ids, offset by origin,
// and connects the suggested edges between them. Nodes of unknown types and
// edges the canvas rejects are skipped. It returns the new node ids.
func (s *Session) ApplySuggestion(sg *Suggestion, origin schema.Position) ([]string, error) {
	if err := s.requireReady("apply suggestion"); err != nil {
		return nil, err
	}
	if s.canvas.ReadOnly() {
		return nil, schema.NewError(schema.ErrCodeReadOnly, "apply suggestion: canvas is read-only")
	}

	ids := make(map[string]string, len(sg.Graph.Nodes))
	var added []string
	for _, n := range sg.Graph.Nodes {
		pos := schema.Position{X: origin.X + n.Position.X, Y: origin.Y + n.Position.Y}
		id, err := s.canvas.AddNode(n.Type, n.Data, pos)
		if err != nil {
			continue
		}
		ids[n.ID] = id
		added = append(added, id)
	}
	for _, e := range sg.Graph.Edges {
		src, okS := ids[e.Source]
		dst, okT := ids[e.Target]
		if okS && okT {
			s.Connect(src, dst)
		}
	}
	return added, nil
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
