// Package palette holds the catalog of node templates new nodes are made from.
package palette

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/flowedit/pkg/schema"
)

// Category groups templates in the palette.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryTriggers  Category = "triggers"
	CategoryFunctions Category = "functions"
	CategoryAI        Category = "ai"
	CategoryActions   Category = "actions"
)

// Categories lists the palette categories in display order.
var Categories = []Category{CategoryAll, CategoryTriggers, CategoryFunctions, CategoryAI, CategoryActions}

func (c Category) valid() bool {
	switch c {
	case CategoryTriggers, CategoryFunctions, CategoryAI, CategoryActions:
		return true
	}
	return false
}

// Template describes the default shape of a newly created node.
type Template struct {
	ID          string          `json:"id" yaml:"id"`
	Type        schema.NodeType `json:"type" yaml:"type"`
	Category    Category        `json:"category" yaml:"category"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Data        schema.NodeData `json:"data" yaml:"data"`
}

// DefaultData returns a deep copy of the template's default data.
func (t Template) DefaultData() schema.NodeData {
	return t.Data.Clone()
}

func (t Template) validate() error {
	if t.ID == "" {
		return fmt.Errorf("template has no id")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("template %s: unknown node type %q", t.ID, t.Type)
	}
	if !t.Category.valid() {
		return fmt.Errorf("template %s: unknown category %q", t.ID, t.Category)
	}
	return nil
}

// Palette is an ordered, read-only catalog of templates.
type Palette struct {
	templates []Template
}

// New builds a palette from templates, keeping their order. Duplicate ids and
// unknown types or categories are rejected.
func New(templates []Template) (*Palette, error) {
	seen := make(map[string]bool, len(templates))
	p := &Palette{templates: make([]Template, 0, len(templates))}
	for _, t := range templates {
		if err := t.validate(); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
		}
		if seen[t.ID] {
			return nil, schema.NewErrorf(schema.ErrCodeConflict, "duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
		t.Data = t.Data.Clone()
		p.templates = append(p.templates, t)
	}
	return p, nil
}

// Default returns the built-in palette.
func Default() *Palette {
	p, err := New(defaultTemplates())
	if err != nil {
		panic(err)
	}
	return p
}

// Templates returns every template in declaration order.
func (p *Palette) Templates() []Template {
	return p.ListByCategory(CategoryAll)
}

// Get looks up a template by id.
func (p *Palette) Get(id string) (Template, bool) {
	for _, t := range p.templates {
		if t.ID == id {
			return copyTemplate(t), true
		}
	}
	return Template{}, false
}

// ListByCategory returns templates whose category matches exactly, or every
// template for CategoryAll. Order is declaration order.
func (p *Palette) ListByCategory(c Category) []Template {
	out := make([]Template, 0, len(p.templates))
	for _, t := range p.templates {
		if c == CategoryAll || t.Category == c {
			out = append(out, copyTemplate(t))
		}
	}
	return out
}

// Search returns templates whose name or description contains query,
// ignoring case. An empty query returns every template.
func (p *Palette) Search(query string) []Template {
	return p.Filter(CategoryAll, query)
}

// Filter combines ListByCategory and Search.
func (p *Palette) Filter(c Category, query string) []Template {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Template
	for _, t := range p.ListByCategory(c) {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

func copyTemplate(t Template) Template {
	t.Data = t.Data.Clone()
	return t
}

// DragPayload is the in-process drag format: the node type and the JSON
// encoding of the template's default data.
type DragPayload struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// BeginDrag builds the payload the canvas uses to materialize a node on drop.
func BeginDrag(t Template) DragPayload {
	raw, err := json.Marshal(t.DefaultData())
	if err != nil {
		// Only reachable with non-JSON values injected programmatically.
		raw = []byte("{}")
	}
	return DragPayload{Type: string(t.Type), Data: string(raw)}
}

// Decode parses the payload back into a node type and data. It fails when the
// type is missing or unknown, or the data is not a JSON object.
func (d DragPayload) Decode() (schema.NodeType, schema.NodeData, error) {
	if d.Type == "" {
		return "", nil, fmt.Errorf("drag payload has no type")
	}
	t := schema.NodeType(d.Type)
	if !t.Valid() {
		return "", nil, fmt.Errorf("drag payload has unknown type %q", d.Type)
	}
	data := schema.NodeData{}
	if d.Data != "" {
		if err := json.Unmarshal([]byte(d.Data), &data); err != nil {
			return "", nil, fmt.Errorf("drag payload data: %w", err)
		}
		if data == nil {
			data = schema.NodeData{}
		}
	}
	return t, data, nil
}
