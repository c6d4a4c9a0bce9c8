package canvas

import (
	"context"

	"github.com/vk/pipecanvas/internal/ctxlog"
)

// Position is a node's placement on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one processing step on the canvas. Type names a remote-executable
// operation; Args is an opaque, executor-defined configuration blob.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Args     map[string]any `json:"args"`
	Position Position       `json:"position"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ReleaseFunc is called with a node's id when the node is removed, so that
// any live per-node resource (such as a registered preview overlay) can be
// released before the node is dropped.
type ReleaseFunc func(nodeID string)

// Graph is the full node/edge collection as edited by the user. It is not
// required to be acyclic or fully connected. Mutations that would violate an
// invariant (duplicate edge, self-loop, dangling endpoint) are silently
// rejected rather than raised as errors: harmless canvas actions never
// punish the user.
type Graph struct {
	nodes []Node
	edges []Edge

	nodeIndex map[string]int
	edgePairs map[[2]string]struct{}

	release ReleaseFunc
}

// New creates an empty graph. release may be nil when no per-node resources
// exist (tests, headless loading).
func New(release ReleaseFunc) *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgePairs: make(map[[2]string]struct{}),
		release:   release,
	}
}

// AddNode appends a node to the canvas. Adding a node whose id already
// exists is a no-op.
func (g *Graph) AddNode(ctx context.Context, n Node) {
	if _, ok := g.nodeIndex[n.ID]; ok {
		ctxlog.FromContext(ctx).Debug("Ignoring duplicate node.", "nodeID", n.ID)
		return
	}
	g.nodeIndex[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddEdge connects source to target. The call is a silent no-op when either
// endpoint is missing, when source equals target, or when the ordered pair
// is already connected.
func (g *Graph) AddEdge(ctx context.Context, e Edge) {
	logger := ctxlog.FromContext(ctx)
	if e.Source == e.Target {
		logger.Debug("Ignoring self-loop edge.", "nodeID", e.Source)
		return
	}
	if _, ok := g.nodeIndex[e.Source]; !ok {
		logger.Debug("Ignoring edge with missing source.", "source", e.Source)
		return
	}
	if _, ok := g.nodeIndex[e.Target]; !ok {
		logger.Debug("Ignoring edge with missing target.", "target", e.Target)
		return
	}
	pair := [2]string{e.Source, e.Target}
	if _, ok := g.edgePairs[pair]; ok {
		logger.Debug("Ignoring duplicate edge.", "source", e.Source, "target", e.Target)
		return
	}
	g.edgePairs[pair] = struct{}{}
	g.edges = append(g.edges, e)
}

// DeleteNode removes the node and every edge where it is source or target.
// Any live preview resource held by the node is released first. Deleting an
// unknown id is a no-op.
func (g *Graph) DeleteNode(ctx context.Context, id string) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return
	}
	if g.release != nil {
		g.release(id)
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	delete(g.nodeIndex, id)
	for i := idx; i < len(g.nodes); i++ {
		g.nodeIndex[g.nodes[i].ID] = i
	}

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edgePairs, [2]string{e.Source, e.Target})
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	ctxlog.FromContext(ctx).Debug("Node deleted.", "nodeID", id, "remaining_nodes", len(g.nodes))
}

// DeleteEdge removes a single edge by id. Unknown ids are a no-op.
func (g *Graph) DeleteEdge(ctx context.Context, id string) {
	for i, e := range g.edges {
		if e.ID == id {
			delete(g.edgePairs, [2]string{e.Source, e.Target})
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

// Node returns the node with the given id, if present.
func (g *Graph) Node(id string) (Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}
