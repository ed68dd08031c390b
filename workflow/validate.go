package workflow

import (
	"fmt"

	"github.com/pangents/orchestrator/types"
)

// Validate checks a definition before it is stored. It rejects graphs a run
// could never execute sensibly: nodes without ids, duplicate node ids, and
// explicit capability references that no registered capability backs.
// Convention-based resolution stays lenient; only the explicit form is
// checked here because the author spelled out their intent.
func Validate(def *Definition, known []string) *types.Error {
	if def == nil {
		return types.NewError(types.ErrMalformedGraph, "workflow definition is required").WithHTTPStatus(422)
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(def.Nodes))
	for _, node := range def.Nodes {
		if node.ID == "" {
			return types.NewError(types.ErrMalformedGraph, "node is missing an id").WithHTTPStatus(422)
		}
		if _, dup := seen[node.ID]; dup {
			return types.NewError(types.ErrMalformedGraph, fmt.Sprintf("duplicate node id %q", node.ID)).WithHTTPStatus(422)
		}
		seen[node.ID] = struct{}{}

		if explicit, ok := node.Data["capability_id"].(string); ok && explicit != "" {
			if _, found := knownSet[explicit]; !found {
				return types.NewError(types.ErrMalformedGraph,
					fmt.Sprintf("node %q references unknown capability %q", node.ID, explicit)).
					WithNodeID(node.ID).
					WithHTTPStatus(422)
			}
		}
	}
	return nil
}
