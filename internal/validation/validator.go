// Package validation provides opt-in graph validation policies. The editor
// applies none by default; callers plug in the policies their execution
// engine requires.
package validation

import (
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// Validator checks a workflow graph and reports every issue it finds.
type Validator interface {
	Validate(g *schema.Graph) *schema.ValidationResult
}

// Func adapts a plain function to Validator.
type Func func(g *schema.Graph) *schema.ValidationResult

// Validate calls f.
func (f Func) Validate(g *schema.Graph) *schema.ValidationResult { return f(g) }

// Chain runs validators in order and merges their results.
func Chain(validators ...Validator) Validator {
	return Func(func(g *schema.Graph) *schema.ValidationResult {
		result := &schema.ValidationResult{}
		for _, v := range validators {
			if v != nil {
				result.Merge(v.Validate(g))
			}
		}
		return result
	})
}

// Strict chains every policy in this package: topology, acyclicity and
// per-node configuration.
func Strict() (Validator, error) {
	cfg, err := NewConfigValidator()
	if err != nil {
		return nil, err
	}
	return Chain(Topology(), Acyclic(), cfg), nil
}

// ByName builds a validator from policy names: "topology", "acyclic",
// "config" or "strict". An empty list yields nil.
func ByName(names ...string) (Validator, error) {
	var vs []Validator
	for _, name := range names {
		switch name {
		case "topology":
			vs = append(vs, Topology())
		case "acyclic":
			vs = append(vs, Acyclic())
		case "config":
			cfg, err := NewConfigValidator()
			if err != nil {
				return nil, err
			}
			vs = append(vs, cfg)
		case "strict":
			s, err := Strict()
			if err != nil {
				return nil, err
			}
			vs = append(vs, s)
		case "", "none":
		default:
			return nil, fmt.Errorf("unknown validation policy %q", name)
		}
	}
	if len(vs) == 0 {
		return nil, nil
	}
	return Chain(vs...), nil
}
