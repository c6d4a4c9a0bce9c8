package canvas

// TopoOrder linearizes nodes so that every edge points from an earlier to a
// later position, using Kahn's algorithm. In-degrees only count edges whose
// both endpoints are in nodes. The FIFO queue is seeded with all
// zero-in-degree nodes in the order they appear in nodes, and a popped
// node's successors are visited in edge declaration order, so the result is
// fully determined by the input.
//
// Cycles do not fail the call: nodes trapped in a cycle never reach
// in-degree zero and are simply absent from the result, which is then
// shorter than len(nodes). The caller decides whether to warn.
func TopoOrder(nodes []Node, edges []Edge) []string {
	present := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		present[n.ID] = struct{}{}
	}

	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := present[e.Source]; !ok {
			continue
		}
		if _, ok := present[e.Target]; !ok {
			continue
		}
		inDegree[e.Target]++
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, e := range edges {
			if e.Source != id {
				continue
			}
			if _, ok := present[e.Target]; !ok {
				continue
			}
			inDegree[e.Target]--
			if inDegree[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}
	return order
}

// Predecessors builds the upstream index: for every edge, source is appended
// to the predecessor list of target, in edge declaration order. Only edges
// whose endpoints are both in nodes contribute.
func Predecessors(nodes []Node, edges []Edge) map[string][]string {
	present := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		present[n.ID] = struct{}{}
	}
	preds := make(map[string][]string)
	for _, e := range edges {
		if _, ok := present[e.Source]; !ok {
			continue
		}
		if _, ok := present[e.Target]; !ok {
			continue
		}
		preds[e.Target] = append(preds[e.Target], e.Source)
	}
	return preds
}
