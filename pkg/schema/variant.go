package schema

import "slices"

// Subtypes per NodeType, in form display order.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerWebhook  = "webhook"
	TriggerEmail    = "email"

	FunctionFilter    = "filter"
	FunctionTransform = "transform"
	FunctionCondition = "condition"
	FunctionLoop      = "loop"

	AILLM        = "llm"
	AIAgent      = "agent"
	AIContentGen = "content-gen"

	ActionEmail        = "email"
	ActionNotification = "notification"
	ActionHTTP         = "http"
	ActionLog          = "log"
)

// Subtypes maps each NodeType to its valid data.type values.
var Subtypes = map[NodeType][]string{
	NodeTrigger:  {TriggerManual, TriggerSchedule, TriggerWebhook, TriggerEmail},
	NodeFunction: {FunctionFilter, FunctionTransform, FunctionCondition, FunctionLoop},
	NodeAI:       {AILLM, AIAgent, AIContentGen},
	NodeAction:   {ActionEmail, ActionNotification, ActionHTTP, ActionLog},
}

// Variant is the (NodeType, subtype) tag that selects a node's payload shape.
type Variant struct {
	Type    NodeType `json:"type"`
	Subtype string   `json:"subtype"`
}

// Known reports whether the subtype is valid for the type.
func (v Variant) Known() bool {
	return slices.Contains(Subtypes[v.Type], v.Subtype)
}

func (v Variant) String() string {
	return string(v.Type) + "/" + v.Subtype
}

// VariantOf returns the variant tag of a node.
func VariantOf(n Node) Variant {
	return Variant{Type: n.Type, Subtype: n.Data.Subtype()}
}

// Payload is the typed view of a node's data for one variant. Payloads read
// only the fields of their own variant: fields left behind by a previous
// subtype stay in NodeData and are ignored here. That tolerance lets a user
// flip between subtypes without losing input.
type Payload interface {
	Variant() Variant
	// Fields returns the payload as NodeData keys, omitting empty values.
	Fields() NodeData
}

type ManualTrigger struct{}

type ScheduleTrigger struct {
	CronExpression string
}

type WebhookTrigger struct {
	Path string
}

type EmailTrigger struct {
	Mailbox string
}

type FilterFunction struct {
	Condition string
}

// TransformFunction holds a jq expression applied to each item.
type TransformFunction struct {
	Expression string
}

type ConditionFunction struct {
	Expression string
}

type LoopFunction struct {
	Items         string
	MaxIterations int
}

type LLMNode struct {
	Model     string
	Prompt    string
	MaxTokens int
}

type AgentNode struct {
	AgentType string
	Goal      string
	MaxSteps  int
}

type ContentGenNode struct {
	ContentType string
	Prompt      string
}

type EmailAction struct {
	To      string
	Subject string
	Body    string
}

type NotificationAction struct {
	Message string
}

type HTTPAction struct {
	URL    string
	Method string
}

type LogAction struct {
	Message string
	Level   string
}

func (ManualTrigger) Variant() Variant      { return Variant{NodeTrigger, TriggerManual} }
func (ScheduleTrigger) Variant() Variant    { return Variant{NodeTrigger, TriggerSchedule} }
func (WebhookTrigger) Variant() Variant     { return Variant{NodeTrigger, TriggerWebhook} }
func (EmailTrigger) Variant() Variant       { return Variant{NodeTrigger, TriggerEmail} }
func (FilterFunction) Variant() Variant     { return Variant{NodeFunction, FunctionFilter} }
func (TransformFunction) Variant() Variant  { return Variant{NodeFunction, FunctionTransform} }
func (ConditionFunction) Variant() Variant  { return Variant{NodeFunction, FunctionCondition} }
func (LoopFunction) Variant() Variant       { return Variant{NodeFunction, FunctionLoop} }
func (LLMNode) Variant() Variant            { return Variant{NodeAI, AILLM} }
func (AgentNode) Variant() Variant          { return Variant{NodeAI, AIAgent} }
func (ContentGenNode) Variant() Variant     { return Variant{NodeAI, AIContentGen} }
func (EmailAction) Variant() Variant        { return Variant{NodeAction, ActionEmail} }
func (NotificationAction) Variant() Variant { return Variant{NodeAction, ActionNotification} }
func (HTTPAction) Variant() Variant         { return Variant{NodeAction, ActionHTTP} }
func (LogAction) Variant() Variant          { return Variant{NodeAction, ActionLog} }

func (ManualTrigger) Fields() NodeData { return NodeData{} }
func (p ScheduleTrigger) Fields() NodeData {
	return fields("cronExpression", p.CronExpression)
}
func (p WebhookTrigger) Fields() NodeData { return fields("path", p.Path) }
func (p EmailTrigger) Fields() NodeData   { return fields("mailbox", p.Mailbox) }
func (p FilterFunction) Fields() NodeData { return fields("condition", p.Condition) }
func (p TransformFunction) Fields() NodeData {
	return fields("expression", p.Expression)
}
func (p ConditionFunction) Fields() NodeData {
	return fields("expression", p.Expression)
}
func (p LoopFunction) Fields() NodeData {
	return fields("items", p.Items, "maxIterations", p.MaxIterations)
}
func (p LLMNode) Fields() NodeData {
	return fields("model", p.Model, "prompt", p.Prompt, "maxTokens", p.MaxTokens)
}
func (p AgentNode) Fields() NodeData {
	return fields("agentType", p.AgentType, "goal", p.Goal, "maxSteps", p.MaxSteps)
}
func (p ContentGenNode) Fields() NodeData {
	return fields("contentType", p.ContentType, "prompt", p.Prompt)
}
func (p EmailAction) Fields() NodeData {
	return fields("to", p.To, "subject", p.Subject, "body", p.Body)
}
func (p NotificationAction) Fields() NodeData { return fields("message", p.Message) }
func (p HTTPAction) Fields() NodeData {
	return fields("url", p.URL, "method", p.Method)
}
func (p LogAction) Fields() NodeData {
	return fields("message", p.Message, "level", p.Level)
}

// fields builds NodeData from alternating key/value pairs, skipping zero values.
func fields(kv ...any) NodeData {
	out := NodeData{}
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			if v != "" {
				out[key] = v
			}
		case int:
			if v != 0 {
				out[key] = v
			}
		}
	}
	return out
}

// DecodePayload reads the typed payload for the node's variant. It returns
// false for unknown (NodeType, subtype) combinations.
func DecodePayload(t NodeType, d NodeData) (Payload, bool) {
	intOf := func(key string) int {
		n, _ := d.Int(key)
		return n
	}

	switch (Variant{t, d.Subtype()}) {
	case Variant{NodeTrigger, TriggerManual}:
		return ManualTrigger{}, true
	case Variant{NodeTrigger, TriggerSchedule}:
		return ScheduleTrigger{CronExpression: d.String("cronExpression")}, true
	case Variant{NodeTrigger, TriggerWebhook}:
		return WebhookTrigger{Path: d.String("path")}, true
	case Variant{NodeTrigger, TriggerEmail}:
		return EmailTrigger{Mailbox: d.String("mailbox")}, true
	case Variant{NodeFunction, FunctionFilter}:
		return FilterFunction{Condition: d.String("condition")}, true
	case Variant{NodeFunction, FunctionTransform}:
		return TransformFunction{Expression: d.String("expression")}, true
	case Variant{NodeFunction, FunctionCondition}:
		return ConditionFunction{Expression: d.String("expression")}, true
	case Variant{NodeFunction, FunctionLoop}:
		return LoopFunction{Items: d.String("items"), MaxIterations: intOf("maxIterations")}, true
	case Variant{NodeAI, AILLM}:
		return LLMNode{Model: d.String("model"), Prompt: d.String("prompt"), MaxTokens: intOf("maxTokens")}, true
	case Variant{NodeAI, AIAgent}:
		return AgentNode{AgentType: d.String("agentType"), Goal: d.String("goal"), MaxSteps: intOf("maxSteps")}, true
	case Variant{NodeAI, AIContentGen}:
		return ContentGenNode{ContentType: d.String("contentType"), Prompt: d.String("prompt")}, true
	case Variant{NodeAction, ActionEmail}:
		return EmailAction{To: d.String("to"), Subject: d.String("subject"), Body: d.String("body")}, true
	case Variant{NodeAction, ActionNotification}:
		return NotificationAction{Message: d.String("message")}, true
	case Variant{NodeAction, ActionHTTP}:
		return HTTPAction{URL: d.String("url"), Method: d.String("method")}, true
	case Variant{NodeAction, ActionLog}:
		return LogAction{Message: d.String("message"), Level: d.String("level")}, true
	}
	return nil, false
}

// ApplyPayload writes p into a copy of d and sets data.type to the payload's
// subtype. Other keys, including fields of sibling subtypes, are kept.
func ApplyPayload(d NodeData, p Payload) NodeData {
	out := d.Merge(p.Fields())
	out[KeySubtype] = p.Variant().Subtype
	return out
}
