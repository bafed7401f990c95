package expressions

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEngine checks expr-lang expressions. The record under test is "item";
// other names are allowed and resolve at run time.
// Safe for concurrent use.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates an expr engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string { return "expr" }

// Check compiles expression.
func (e *ExprEngine) Check(expression string) error {
	if expression == "" {
		return emptyError(e.Name())
	}

	e.mu.RLock()
	_, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return nil
	}

	prg, err := expr.Compile(expression,
		expr.Env(map[string]any{"item": map[string]any{}}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return compileError(e.Name(), expression, err)
	}

	e.mu.Lock()
	e.cache[expression] = prg
	e.mu.Unlock()
	return nil
}

var _ Checker = (*ExprEngine)(nil)
