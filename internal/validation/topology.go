package validation

import (
	"fmt"

	"github.com/rendis/flowedit/internal/render"
	"github.com/rendis/flowedit/pkg/schema"
)

// Topology checks structural integrity: unique ids, edges that reference
// existing nodes, handle topology and parallel edges. Graphs built through
// the canvas always pass; graphs loaded from elsewhere may not.
func Topology() Validator {
	return Func(validateTopology)
}

func validateTopology(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	types := make(map[string]schema.NodeType, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := types[n.ID]; dup {
			result.NodeError(n.ID, "", schema.ErrCodeConflict, fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		types[n.ID] = n.Type
		if !n.Type.Valid() {
			result.NodeWarning(n.ID, "", schema.ErrCodeValidation, fmt.Sprintf("unknown node type %q", n.Type))
		}
	}

	edgeIDs := make(map[string]bool, len(g.Edges))
	pairs := make(map[[2]string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if edgeIDs[e.ID] {
			result.EdgeError(e.ID, "", schema.ErrCodeConflict, fmt.Sprintf("duplicate edge id %q", e.ID))
		}
		edgeIDs[e.ID] = true

		src, okSrc := types[e.Source]
		dst, okDst := types[e.Target]
		if !okSrc {
			result.EdgeError(e.ID, "source", schema.ErrCodeNotFound, fmt.Sprintf("references non-existent node %q", e.Source))
		}
		if !okDst {
			result.EdgeError(e.ID, "target", schema.ErrCodeNotFound, fmt.Sprintf("references non-existent node %q", e.Target))
		}
		if !okSrc || !okDst {
			continue
		}

		if !render.CanSource(src) {
			result.EdgeError(e.ID, "source", schema.ErrCodeTopology, fmt.Sprintf("%s node %q has no outgoing handle", src, e.Source))
		}
		if !render.CanTarget(dst) {
			result.EdgeError(e.ID, "target", schema.ErrCodeTopology, fmt.Sprintf("%s node %q has no incoming handle", dst, e.Target))
		}

		pair := [2]string{e.Source, e.Target}
		if pairs[pair] {
			result.EdgeError(e.ID, "", schema.ErrCodeDuplicateEdge, fmt.Sprintf("parallel edge %s -> %s", e.Source, e.Target))
		}
		pairs[pair] = true
	}

	return result
}
