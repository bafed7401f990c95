// Package editscript applies YAML edit scripts to a workflow through an
// editing session.
//
// A script names its target, then lists steps:
//
//	workflow: 7
//	name: Orders
//	steps:
//	  - add: {id: start, template: manual-trigger}
//	  - add: {id: filter, template: filter-function, x: 250}
//	  - connect: {source: start, target: filter}
//	  - configure: {node: filter, field: condition, value: "item.total > 10"}
//	validate: [topology, acyclic]
//	save: true
//
// Node references resolve script aliases first, then existing node ids.
package editscript

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowedit/pkg/schema"
)

// Script is one parsed edit script.
type Script struct {
	Workflow    int64    `yaml:"workflow"`
	New         bool     `yaml:"new"`
	Name        *string  `yaml:"name"`
	Description *string  `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Steps       []Step   `yaml:"steps"`
	Validate    []string `yaml:"validate"`
	Save        bool     `yaml:"save"`
	Execute     bool     `yaml:"execute"`
}

// Step is one edit. Exactly one field is set.
type Step struct {
	Add       *AddStep       `yaml:"add,omitempty"`
	Connect   *ConnectStep   `yaml:"connect,omitempty"`
	Configure *ConfigureStep `yaml:"configure,omitempty"`
	Move      *MoveStep      `yaml:"move,omitempty"`
	Remove    *RemoveStep    `yaml:"remove,omitempty"`
}

// AddStep creates a node from a palette template. ID is a script-local alias.
type AddStep struct {
	ID       string  `yaml:"id"`
	Template string  `yaml:"template"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

type ConnectStep struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// ConfigureStep sets one field. Value keeps its YAML type.
type ConfigureStep struct {
	Node  string `yaml:"node"`
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

type MoveStep struct {
	Node string  `yaml:"node"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// RemoveStep deletes a node or an edge.
type RemoveStep struct {
	Node string `yaml:"node"`
	Edge string `yaml:"edge"`
}

// Kind names the edit a step performs.
func (s Step) Kind() string {
	switch {
	case s.Add != nil:
		return "add"
	case s.Connect != nil:
		return "connect"
	case s.Configure != nil:
		return "configure"
	case s.Move != nil:
		return "move"
	case s.Remove != nil:
		return "remove"
	}
	return ""
}

func (s Step) count() int {
	n := 0
	for _, set := range []bool{s.Add != nil, s.Connect != nil, s.Configure != nil, s.Move != nil, s.Remove != nil} {
		if set {
			n++
		}
	}
	return n
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edit script: %w", err)
	}
	return Parse(data)
}

// Parse decodes a script. Unknown keys are rejected.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid edit script").WithCause(err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if s.New == (s.Workflow > 0) {
		return schema.NewError(schema.ErrCodeValidation, "edit script needs exactly one of workflow or new")
	}
	aliases := make(map[string]bool)
	for i, st := range s.Steps {
		if st.count() != 1 {
			return schema.NewErrorf(schema.ErrCodeValidation, "step %d: exactly one edit per step", i+1)
		}
		var missing string
		switch {
		case st.Add != nil:
			if st.Add.Template == "" {
				missing = "template"
			}
			if st.Add.ID != "" {
				if aliases[st.Add.ID] {
					return schema.NewErrorf(schema.ErrCodeConflict, "step %d: alias %q reused", i+1, st.Add.ID)
				}
				aliases[st.Add.ID] = true
			}
		case st.Connect != nil:
			if st.Connect.Source == "" || st.Connect.Target == "" {
				missing = "source and target"
			}
		case st.Configure != nil:
			if st.Configure.Node == "" || st.Configure.Field == "" {
				missing = "node and field"
			}
		case st.Move != nil:
			if st.Move.Node == "" {
				missing = "node"
			}
		case st.Remove != nil:
			if (st.Remove.Node == "") == (st.Remove.Edge == "") {
				missing = "exactly one of node or edge"
			}
		}
		if missing != "" {
			return schema.NewErrorf(schema.ErrCodeValidation, "step %d (%s): %s required", i+1, st.Kind(), missing)
		}
	}
	return nil
}
