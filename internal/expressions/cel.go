package expressions

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rendis/flowedit/pkg/schema"
)

// CELEngine checks CEL expressions. The environment exposes the node input
// as "input" (map) and the current loop element as "item".
// Safe for concurrent use.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]*cel.Ast
}

// NewCELEngine creates the CEL environment.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("item", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, cache: make(map[string]*cel.Ast)}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string { return "cel" }

// Check compiles expression.
func (e *CELEngine) Check(expression string) error {
	_, err := e.compile(expression)
	return err
}

// CheckBool compiles expression and requires a boolean result type.
func (e *CELEngine) CheckBool(expression string) error {
	ast, err := e.compile(expression)
	if err != nil {
		return err
	}
	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q yields %s, want bool", expression, ast.OutputType()).
			WithDetails(map[string]any{"expression": expression, "engine": e.Name()})
	}
	return nil
}

func (e *CELEngine) compile(expression string) (*cel.Ast, error) {
	if expression == "" {
		return nil, emptyError(e.Name())
	}

	e.mu.RLock()
	ast, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return ast, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError(e.Name(), expression, issues.Err())
	}

	e.mu.Lock()
	e.cache[expression] = ast
	e.mu.Unlock()
	return ast, nil
}

var _ Checker = (*CELEngine)(nil)
