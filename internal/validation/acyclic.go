package validation

import (
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// Acyclic rejects graphs containing a cycle and warns about nodes that no
// trigger can reach.
func Acyclic() Validator {
	return Func(validateAcyclic)
}

func validateAcyclic(g *schema.Graph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}

	// Dangling edges are the topology check's concern.
	adj := make(map[string][]string, len(g.Nodes))
	inDegree := make(map[string]int, len(g.Nodes))
	seen := make(map[[2]string]bool, len(g.Edges))
	for _, e := range g.Edges {
		pair := [2]string{e.Source, e.Target}
		if !ids[e.Source] || !ids[e.Target] || seen[pair] {
			continue
		}
		seen[pair] = true
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	// Kahn's algorithm in node declaration order.
	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(ids) {
		var cyclic []string
		for _, n := range g.Nodes {
			if inDegree[n.ID] > 0 {
				cyclic = append(cyclic, n.ID)
			}
		}
		result.GraphError("edges", schema.ErrCodeCycleDetected, "workflow graph contains a cycle")
		for _, id := range cyclic {
			result.NodeError(id, "", schema.ErrCodeCycleDetected, fmt.Sprintf("node %q is part of or downstream of a cycle", id))
		}
		return result
	}

	// Reachability: BFS from every trigger.
	reachable := make(map[string]bool, len(ids))
	var bfs []string
	for _, n := range g.Nodes {
		if n.Type == schema.NodeTrigger {
			reachable[n.ID] = true
			bfs = append(bfs, n.ID)
		}
	}
	if len(bfs) == 0 && len(g.Nodes) > 0 {
		result.GraphWarning("nodes", schema.ErrCodeValidation, "workflow has no trigger node")
		return result
	}
	for len(bfs) > 0 {
		id := bfs[0]
		bfs = bfs[1:]
		for _, next := range adj[id] {
			if !reachable[next] {
				reachable[next] = true
				bfs = append(bfs, next)
			}
		}
	}

	for _, n := range g.Nodes {
		if !reachable[n.ID] {
			result.NodeWarning(n.ID, "", schema.ErrCodeValidation,
				fmt.Sprintf("node %q is unreachable from any trigger", n.ID))
		}
	}

	return result
}
