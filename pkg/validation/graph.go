package validation

import (
	"fmt"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

// FlowValidationOptions controls optional validation checks.
type FlowValidationOptions struct {
	// RejectCycles enables detection of directed cycles.
	RejectCycles bool
}

// ValidateFlow performs structural validation on an editor graph coming from
// outside (API payloads, generated flows, stored checkpoints): node IDs are
// well-formed and unique and edges point at existing nodes.
func ValidateFlow(s graph.Snapshot, opts ...FlowValidationOptions) error {
	if err := s.Validate(); err != nil {
		return err
	}

	var errs ValidationErrors
	for i, n := range s.Nodes {
		if !IsNodeID(n.ID) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%d].id", i),
				Value:   n.ID,
				Message: "must be a valid node identifier",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	var cfg FlowValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if cfg.RejectCycles && hasCycle(s) {
		return ErrCyclicFlow
	}
	return nil
}

// hasCycle detects any cycle in a directed graph using DFS with coloring.
func hasCycle(s graph.Snapshot) bool {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)
	color := make(map[string]int, len(s.Nodes))
	adj := make(map[string][]string, len(s.Nodes))
	for _, e := range s.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				return true // back-edge
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		color[u] = black
		return false
	}
	for _, n := range s.Nodes {
		if color[n.ID] == white && dfs(n.ID) {
			return true
		}
	}
	return false
}
