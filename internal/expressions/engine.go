// Package expressions compiles the expression languages embedded in node
// configuration: expr for filter conditions, CEL for branch conditions and
// loop items, jq for transforms. Compiled programs are cached per engine.
package expressions

import "github.com/rendis/flowedit/pkg/schema"

// Checker compiles an expression without evaluating it.
type Checker interface {
	Name() string
	Check(expression string) error
}

func compileError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "engine": engine})
}

func emptyError(engine string) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "empty %s expression", engine)
}
