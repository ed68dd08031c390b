package workflow

import (
	"sort"
	"strings"
)

// ResolveCapability determines which registered capability backs a node.
// Resolution order:
//  1. an explicit "capability_id" entry in the node's configuration,
//  2. for custom nodes, a registered id appearing inside the node id or the
//     normalized label (longer ids are tried first so "carrier_search" is
//     never shadowed by a shorter overlapping id),
//  3. otherwise the node's type taken as a direct capability alias.
//
// The ok result is false when nothing matches; callers skip such nodes.
func ResolveCapability(node Node, known []string) (string, bool) {
	isKnown := func(id string) bool {
		for _, k := range known {
			if k == id {
				return true
			}
		}
		return false
	}

	if explicit, ok := node.Data["capability_id"].(string); ok && explicit != "" {
		if isKnown(explicit) {
			return explicit, true
		}
		return "", false
	}

	if node.Type == NodeTypeCustom {
		label := normalizeLabel(node.Data)
		candidates := append([]string{}, known...)
		sort.Slice(candidates, func(i, j int) bool {
			if len(candidates[i]) != len(candidates[j]) {
				return len(candidates[i]) > len(candidates[j])
			}
			return candidates[i] < candidates[j]
		})
		for _, id := range candidates {
			if strings.Contains(node.ID, id) || strings.Contains(label, id) {
				return id, true
			}
		}
		return "", false
	}

	if isKnown(node.Type) {
		return node.Type, true
	}
	return "", false
}

func normalizeLabel(data map[string]any) string {
	label, _ := data["label"].(string)
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}
