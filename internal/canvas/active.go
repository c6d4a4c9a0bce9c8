package canvas

// Subgraph is a derived node/edge set. The JSON shape matches the graph
// snapshot accepted by the scheduler service's create endpoint.
type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Active derives the subgraph that actually participates in execution and
// scheduling: the nodes that appear as an endpoint of at least one edge,
// plus the edges whose both endpoints survive. Orphan nodes are excluded by
// policy. Insertion order of the graph is preserved. O(V+E).
func (g *Graph) Active() Subgraph {
	connected := make(map[string]struct{}, len(g.nodes))
	for _, e := range g.edges {
		connected[e.Source] = struct{}{}
		connected[e.Target] = struct{}{}
	}

	var sub Subgraph
	for _, n := range g.nodes {
		if _, ok := connected[n.ID]; ok {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	kept := make(map[string]struct{}, len(sub.Nodes))
	for _, n := range sub.Nodes {
		kept[n.ID] = struct{}{}
	}
	for _, e := range g.edges {
		if _, okS := kept[e.Source]; !okS {
			continue
		}
		if _, okT := kept[e.Target]; !okT {
			continue
		}
		sub.Edges = append(sub.Edges, e)
	}
	return sub
}

// Empty reports whether the subgraph has no nodes.
func (s Subgraph) Empty() bool {
	return len(s.Nodes) == 0
}

// Clone returns a value copy of the subgraph, including a deep copy of every
// node's args blob. Schedule snapshots rely on this: later canvas edits must
// not reach into an existing schedule.
func (s Subgraph) Clone() Subgraph {
	out := Subgraph{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	copy(out.Edges, s.Edges)
	for i, n := range s.Nodes {
		out.Nodes[i] = n
		if n.Args != nil {
			out.Nodes[i].Args = cloneValue(n.Args).(map[string]any)
		}
	}
	return out
}

// cloneValue deep-copies the JSON-shaped values that node args hold.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = cloneValue(e)
		}
		return l
	default:
		return v
	}
}
