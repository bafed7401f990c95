package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/pkg/schema"
)

const schemaBaseURL = "https://flowedit.dev/schemas/nodes/"

// Positive integer that may arrive as a numeric string from a form input.
// minimum only constrains numbers, so the pattern carries the bound for
// strings.
const countSchema = `{"type": ["integer", "string"], "minimum": 1, "pattern": "^[1-9][0-9]*$"}`

// variantSchemas constrains the active variant's fields. Keys of other
// subtypes are allowed and ignored.
var variantSchemas = map[schema.Variant]string{
	{Type: schema.NodeTrigger, Subtype: schema.TriggerManual}: `{"type": "object"}`,
	{Type: schema.NodeTrigger, Subtype: schema.TriggerSchedule}: `{
		"type": "object",
		"required": ["cronExpression"],
		"properties": {"cronExpression": {"type": "string", "minLength": 9}}
	}`,
	{Type: schema.NodeTrigger, Subtype: schema.TriggerWebhook}: `{
		"type": "object",
		"required": ["path"],
		"properties": {"path": {"type": "string", "pattern": "^/[A-Za-z0-9_./-]*$"}}
	}`,
	{Type: schema.NodeTrigger, Subtype: schema.TriggerEmail}: `{
		"type": "object",
		"properties": {"mailbox": {"type": "string", "format": "email"}}
	}`,
	{Type: schema.NodeFunction, Subtype: schema.FunctionFilter}: `{
		"type": "object",
		"required": ["condition"],
		"properties": {"condition": {"type": "string", "minLength": 1}}
	}`,
	{Type: schema.NodeFunction, Subtype: schema.FunctionTransform}: `{
		"type": "object",
		"required": ["expression"],
		"properties": {"expression": {"type": "string", "minLength": 1}}
	}`,
	{Type: schema.NodeFunction, Subtype: schema.FunctionCondition}: `{
		"type": "object",
		"required": ["expression"],
		"properties": {"expression": {"type": "string", "minLength": 1}}
	}`,
	{Type: schema.NodeFunction, Subtype: schema.FunctionLoop}: `{
		"type": "object",
		"required": ["items"],
		"properties": {"items": {"type": "string", "minLength": 1}, "maxIterations": ` + countSchema + `}
	}`,
	{Type: schema.NodeAI, Subtype: schema.AILLM}: `{
		"type": "object",
		"required": ["prompt"],
		"properties": {
			"model": {"type": "string", "minLength": 1},
			"prompt": {"type": "string", "minLength": 1},
			"maxTokens": ` + countSchema + `
		}
	}`,
	{Type: schema.NodeAI, Subtype: schema.AIAgent}: `{
		"type": "object",
		"required": ["goal"],
		"properties": {
			"agentType": {"enum": ["general", "research", "data-analysis"]},
			"goal": {"type": "string", "minLength": 1},
			"maxSteps": ` + countSchema + `
		}
	}`,
	{Type: schema.NodeAI, Subtype: schema.AIContentGen}: `{
		"type": "object",
		"required": ["prompt"],
		"properties": {
			"contentType": {"enum": ["text", "image", "code"]},
			"prompt": {"type": "string", "minLength": 1}
		}
	}`,
	{Type: schema.NodeAction, Subtype: schema.ActionEmail}: `{
		"type": "object",
		"required": ["to"],
		"properties": {
			"to": {"type": "string", "minLength": 3},
			"subject": {"type": "string"},
			"body": {"type": "string"}
		}
	}`,
	{Type: schema.NodeAction, Subtype: schema.ActionNotification}: `{
		"type": "object",
		"properties": {"message": {"type": "string"}}
	}`,
	{Type: schema.NodeAction, Subtype: schema.ActionHTTP}: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "format": "uri"},
			"method": {"enum": ["GET", "POST", "PUT", "DELETE"]}
		}
	}`,
	{Type: schema.NodeAction, Subtype: schema.ActionLog}: `{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"level": {"enum": ["debug", "info", "warn", "error"]}
		}
	}`,
}

// ConfigValidator checks each node's data against its variant: a JSON Schema
// for shape, then a compile of any embedded cron, expr, CEL or jq expression.
// It is safe for concurrent use once built.
type ConfigValidator struct {
	schemas map[schema.Variant]*jsonschema.Schema
	cron    cron.Parser
	cel     *expressions.CELEngine
	expr    *expressions.ExprEngine
	jq      *expressions.GoJQEngine
}

// NewConfigValidator compiles every variant schema.
func NewConfigValidator() (*ConfigValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	compiled := make(map[schema.Variant]*jsonschema.Schema, len(variantSchemas))
	for v, src := range variantSchemas {
		url := schemaBaseURL + string(v.Type) + "/" + v.Subtype + ".json"
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s schema: %w", v, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s schema resource: %w", v, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", v, err)
		}
		compiled[v] = sch
	}

	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}

	return &ConfigValidator{
		schemas: compiled,
		cron:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		cel:     celEngine,
		expr:    expressions.NewExprEngine(),
		jq:      expressions.NewGoJQEngine(),
	}, nil
}

// Validate implements Validator.
func (v *ConfigValidator) Validate(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for _, n := range g.Nodes {
		result.Merge(v.ValidateNode(n))
	}
	return result
}

// ValidateNode checks a single node.
func (v *ConfigValidator) ValidateNode(n schema.Node) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	variant := schema.VariantOf(n)
	sch, ok := v.schemas[variant]
	if !ok {
		result.NodeWarning(n.ID, "data.type", schema.ErrCodeValidation,
			fmt.Sprintf("no configuration schema for %s", variant))
		return result
	}

	doc, err := toJSONValue(n.Data)
	if err != nil {
		result.NodeError(n.ID, "data", schema.ErrCodeValidation, "node data is not serializable: "+err.Error())
		return result
	}
	if err := sch.Validate(doc); err != nil {
		for _, msg := range violations(err) {
			result.NodeError(n.ID, "data", schema.ErrCodeValidation, msg)
		}
		return result
	}

	payload, _ := schema.DecodePayload(n.Type, n.Data)
	switch p := payload.(type) {
	case schema.ScheduleTrigger:
		if _, err := v.cron.Parse(p.CronExpression); err != nil {
			result.NodeError(n.ID, "data.cronExpression", schema.ErrCodeValidation,
				fmt.Sprintf("invalid cron expression %q: %s", p.CronExpression, err))
		}
	case schema.FilterFunction:
		addExprError(result, n.ID, "data.condition", v.expr.Check(p.Condition))
	case schema.TransformFunction:
		addExprError(result, n.ID, "data.expression", v.jq.Check(p.Expression))
	case schema.ConditionFunction:
		addExprError(result, n.ID, "data.expression", v.cel.CheckBool(p.Expression))
	case schema.LoopFunction:
		addExprError(result, n.ID, "data.items", v.cel.Check(p.Items))
	}

	return result
}

func addExprError(result *schema.ValidationResult, nodeID, field string, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var fe *schema.FlowError
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	result.NodeError(nodeID, field, schema.ErrCodeValidation, msg)
}

// toJSONValue round-trips a value through JSON so numbers become the
// json.Number values the schema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// violations flattens a schema validation error into leaf messages prefixed
// with their instance location.
func violations(err error) []string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	return collectViolations(verr)
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
