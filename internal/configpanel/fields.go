package configpanel

import "github.com/rendis/flowedit/pkg/schema"

// FieldKind is the input widget used for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindNumber   FieldKind = "number"
)

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one editable key of a node's data.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Options     []Option  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	HelpText    string    `json:"help_text,omitempty"`
	// Default is shown when the key is absent. It is never written to data
	// until the user changes the field.
	Default any `json:"default,omitempty"`
	Rows    int `json:"rows,omitempty"`
}

var (
	nameField = Field{Name: schema.KeyName, Label: "Name", Kind: KindText}

	descriptionField = Field{
		Name: schema.KeyDescription, Label: "Description", Kind: KindTextarea,
		Placeholder: "Node description...", Rows: 2,
	}
)

// subtypeFields is the subtype selector per node type.
var subtypeFields = map[schema.NodeType]Field{
	schema.NodeTrigger: {Name: schema.KeySubtype, Label: "Trigger Type", Kind: KindSelect, Options: []Option{
		{schema.TriggerManual, "Manual"},
		{schema.TriggerSchedule, "Schedule"},
		{schema.TriggerWebhook, "Webhook"},
		{schema.TriggerEmail, "Email"},
	}},
	schema.NodeFunction: {Name: schema.KeySubtype, Label: "Function Type", Kind: KindSelect, Options: []Option{
		{schema.FunctionFilter, "Filter"},
		{schema.FunctionTransform, "Transform"},
		{schema.FunctionCondition, "Condition"},
		{schema.FunctionLoop, "Loop"},
	}},
	schema.NodeAI: {Name: schema.KeySubtype, Label: "AI Type", Kind: KindSelect, Options: []Option{
		{schema.AILLM, "LLM"},
		{schema.AIAgent, "Agent"},
		{schema.AIContentGen, "Content Generator"},
	}},
	schema.NodeAction: {Name: schema.KeySubtype, Label: "Action Type", Kind: KindSelect, Options: []Option{
		{schema.ActionEmail, "Send Email"},
		{schema.ActionNotification, "Send Notification"},
		{schema.ActionHTTP, "HTTP Request"},
		{schema.ActionLog, "Log"},
	}},
}

// ModelOptions are the models offered for LLM nodes.
var ModelOptions = []Option{
	{"gpt-4", "GPT-4"},
	{"gpt-3.5-turbo", "GPT-3.5 Turbo"},
	{"claude-3-opus", "Claude 3 Opus"},
	{"claude-3-sonnet", "Claude 3 Sonnet"},
}

// variantFields is the fixed (NodeType, subtype) -> fields table.
var variantFields = map[schema.Variant][]Field{
	{Type: schema.NodeTrigger, Subtype: schema.TriggerManual}: nil,
	{Type: schema.NodeTrigger, Subtype: schema.TriggerSchedule}: {
		{Name: "cronExpression", Label: "Cron Expression", Kind: KindText,
			Placeholder: "* * * * *", HelpText: "Format: minute hour day month weekday"},
	},
	{Type: schema.NodeTrigger, Subtype: schema.TriggerWebhook}: {
		{Name: "path", Label: "Webhook Path", Kind: KindText, Placeholder: "/webhook/my-trigger"},
	},
	{Type: schema.NodeTrigger, Subtype: schema.TriggerEmail}: {
		{Name: "mailbox", Label: "Mailbox", Kind: KindText, Placeholder: "inbox@example.com"},
	},

	{Type: schema.NodeFunction, Subtype: schema.FunctionFilter}: {
		{Name: "condition", Label: "Filter Condition", Kind: KindTextarea, Placeholder: "item.value > 10", Rows: 3},
	},
	{Type: schema.NodeFunction, Subtype: schema.FunctionTransform}: {
		{Name: "expression", Label: "Transform Expression", Kind: KindTextarea,
			Placeholder: ". + {processed: true}", HelpText: "jq expression applied to each item", Rows: 3},
	},
	{Type: schema.NodeFunction, Subtype: schema.FunctionCondition}: {
		{Name: "expression", Label: "Branch Condition", Kind: KindTextarea,
			Placeholder: "input.amount > 100", HelpText: "CEL expression over input", Rows: 3},
	},
	{Type: schema.NodeFunction, Subtype: schema.FunctionLoop}: {
		{Name: "items", Label: "Items", Kind: KindText, Placeholder: "input.items", HelpText: "CEL expression yielding a list"},
		{Name: "maxIterations", Label: "Max Iterations", Kind: KindNumber, Default: 100},
	},

	{Type: schema.NodeAI, Subtype: schema.AILLM}: {
		{Name: "model", Label: "Model", Kind: KindSelect, Options: ModelOptions, Default: "gpt-4"},
		{Name: "prompt", Label: "Prompt", Kind: KindTextarea, Placeholder: "Enter your prompt here...", Rows: 5},
		{Name: "maxTokens", Label: "Max Tokens", Kind: KindNumber, Default: 1000},
	},
	{Type: schema.NodeAI, Subtype: schema.AIAgent}: {
		{Name: "agentType", Label: "Agent Type", Kind: KindSelect, Default: "general", Options: []Option{
			{"general", "General"},
			{"research", "Research"},
			{"data-analysis", "Data Analysis"},
		}},
		{Name: "goal", Label: "Goal", Kind: KindTextarea, Placeholder: "Describe the agent's goal...", Rows: 3},
		{Name: "maxSteps", Label: "Max Steps", Kind: KindNumber, Default: 5},
	},
	{Type: schema.NodeAI, Subtype: schema.AIContentGen}: {
		{Name: "contentType", Label: "Content Type", Kind: KindSelect, Default: "text", Options: []Option{
			{"text", "Text"},
			{"image", "Image"},
			{"code", "Code"},
		}},
		{Name: "prompt", Label: "Prompt", Kind: KindTextarea, Placeholder: "Describe the content to generate...", Rows: 5},
	},

	{Type: schema.NodeAction, Subtype: schema.ActionEmail}: {
		{Name: "to", Label: "To", Kind: KindText, Placeholder: "recipient@example.com"},
		{Name: "subject", Label: "Subject", Kind: KindText, Placeholder: "Email subject"},
		{Name: "body", Label: "Body", Kind: KindTextarea, Placeholder: "Email body...", Rows: 5},
	},
	{Type: schema.NodeAction, Subtype: schema.ActionNotification}: {
		{Name: "message", Label: "Message", Kind: KindTextarea, Placeholder: "Notification text...", Rows: 3},
	},
	{Type: schema.NodeAction, Subtype: schema.ActionHTTP}: {
		{Name: "url", Label: "URL", Kind: KindText, Placeholder: "https://example.com/api"},
		{Name: "method", Label: "Method", Kind: KindSelect, Default: "GET", Options: []Option{
			{"GET", "GET"},
			{"POST", "POST"},
			{"PUT", "PUT"},
			{"DELETE", "DELETE"},
		}},
	},
	{Type: schema.NodeAction, Subtype: schema.ActionLog}: {
		{Name: "message", Label: "Message", Kind: KindText},
		{Name: "level", Label: "Level", Kind: KindSelect, Default: "info", Options: []Option{
			{"debug", "Debug"},
			{"info", "Info"},
			{"warn", "Warning"},
			{"error", "Error"},
		}},
	},
}
