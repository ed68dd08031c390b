package workflow

// Order produces a total execution order over the node set. For the portion
// of the graph whose edges form a partial order, every node is placed after
// all of its declared predecessors, with ties broken by node-list order.
// Edges that are cyclic or reference unknown ids never fail the compile:
// edges with an unknown endpoint are ignored, and nodes trapped in a cycle
// are appended at the end in node-list order. The order is therefore always
// total over the full node set; callers needing strict acyclicity must
// validate it before compiling.
func Order(nodes []Node, edges []Edge) []string {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		indegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	order := make([]string, 0, len(nodes))
	placed := make(map[string]bool, len(nodes))

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if placed[id] {
			continue
		}
		order = append(order, id)
		placed[id] = true
		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	// Anything left sits on a cycle; degrade to node-list order.
	for _, n := range nodes {
		if !placed[n.ID] {
			order = append(order, n.ID)
			placed[n.ID] = true
		}
	}
	return order
}

// Predecessor returns the node id supplying nodeID's input: the source of
// the last listed edge targeting it. One predecessor per node; fan-in is not
// supported by this model.
func Predecessor(edges []Edge, nodeID string) (string, bool) {
	pred := ""
	for _, e := range edges {
		if e.Target == nodeID {
			pred = e.Source
		}
	}
	return pred, pred != ""
}
