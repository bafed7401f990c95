package palette

import "github.com/rendis/flowedit/pkg/schema"

func tpl(id string, typ schema.NodeType, cat Category, name, desc string, data schema.NodeData) Template {
	d := schema.NodeData{schema.KeyName: name}
	for k, v := range data {
		d[k] = v
	}
	return Template{ID: id, Type: typ, Category: cat, Name: name, Description: desc, Data: d}
}

func defaultTemplates() []Template {
	return []Template{
		tpl("manual-trigger", schema.NodeTrigger, CategoryTriggers, "Manual Trigger", "Start workflow manually",
			schema.NodeData{"type": schema.TriggerManual}),
		tpl("schedule-trigger", schema.NodeTrigger, CategoryTriggers, "Schedule", "Run on a schedule",
			schema.NodeData{"type": schema.TriggerSchedule}),
		tpl("webhook-trigger", schema.NodeTrigger, CategoryTriggers, "Webhook", "Trigger via HTTP request",
			schema.NodeData{"type": schema.TriggerWebhook}),

		tpl("filter-function", schema.NodeFunction, CategoryFunctions, "Filter", "Filter data based on conditions",
			schema.NodeData{"type": schema.FunctionFilter}),
		tpl("transform-function", schema.NodeFunction, CategoryFunctions, "Transform", "Transform data format",
			schema.NodeData{"type": schema.FunctionTransform}),
		tpl("condition-function", schema.NodeFunction, CategoryFunctions, "Condition", "Branch based on conditions",
			schema.NodeData{"type": schema.FunctionCondition}),

		tpl("llm-node", schema.NodeAI, CategoryAI, "LLM", "Process text with language model",
			schema.NodeData{"type": schema.AILLM, "model": "GPT-4"}),
		tpl("agent-node", schema.NodeAI, CategoryAI, "Agent", "Execute autonomous tasks",
			schema.NodeData{"type": schema.AIAgent}),
		tpl("content-gen-node", schema.NodeAI, CategoryAI, "Content Generator", "Generate content with AI",
			schema.NodeData{"type": schema.AIContentGen}),

		tpl("email-action", schema.NodeAction, CategoryActions, "Send Email", "Send an email notification",
			schema.NodeData{"type": schema.ActionEmail}),
		tpl("notification-action", schema.NodeAction, CategoryActions, "Notification", "Send a notification",
			schema.NodeData{"type": schema.ActionNotification}),
		tpl("http-action", schema.NodeAction, CategoryActions, "HTTP Request", "Make an HTTP request",
			schema.NodeData{"type": schema.ActionHTTP}),
	}
}
