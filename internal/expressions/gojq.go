package expressions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/flowedit/pkg/schema"
)

// GoJQEngine checks jq programs and runs them over JSON documents, such as
// API results filtered for display.
// Safe for concurrent use.
type GoJQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewGoJQEngine creates a jq engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: make(map[string]*gojq.Code)}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string { return "jq" }

// Check parses and compiles expression.
func (e *GoJQEngine) Check(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

// Query runs expression over input and returns every output.
func (e *GoJQEngine) Query(ctx context.Context, expression string, input any) ([]any, error) {
	code, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, input)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"jq evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, v)
	}
	return results, nil
}

// QueryJSON runs expression over a JSON document. A single output is
// returned as is; zero or several outputs are returned as an array.
func (e *GoJQEngine) QueryJSON(ctx context.Context, expression string, doc json.RawMessage) (json.RawMessage, error) {
	var input any
	if err := json.Unmarshal(doc, &input); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "jq input is not JSON").WithCause(err)
	}
	results, err := e.Query(ctx, expression, input)
	if err != nil {
		return nil, err
	}

	var out any = results
	if len(results) == 1 {
		out = results[0]
	} else if results == nil {
		out = []any{}
	}
	return json.Marshal(out)
}

func (e *GoJQEngine) getOrCompile(expression string) (*gojq.Code, error) {
	if expression == "" {
		return nil, emptyError(e.Name())
	}

	e.mu.RLock()
	code, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, compileError(e.Name(), expression, err)
	}
	// Empty environ keeps $ENV from leaking the host environment.
	code, err = gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, compileError(e.Name(), expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = code
	e.mu.Unlock()
	return code, nil
}

var _ Checker = (*GoJQEngine)(nil)
