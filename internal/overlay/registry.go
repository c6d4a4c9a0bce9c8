// Package overlay tracks the map-preview layers registered for canvas nodes.
//
// The registry enforces the one-layer-per-node policy: registering a second
// preview for a node releases the prior layer before the new one is added,
// so navigation and re-runs never accumulate duplicate layers. Node deletion
// and session teardown drain the registry through the same release path.
package overlay

import (
	"sync"
)

// Layer is a live preview resource bound to one node. Release frees whatever
// the layer holds (tile source, vector buffer) and must be safe to call once.
type Layer interface {
	Release()
}

// Registry is a thread-safe node-id → layer map.
type Registry struct {
	mu     sync.Mutex
	layers map[string]Layer
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{layers: make(map[string]Layer)}
}

// Register binds a layer to a node id. An existing layer for the same id is
// released first.
func (r *Registry) Register(nodeID string, layer Layer) {
	r.mu.Lock()
	prior, had := r.layers[nodeID]
	r.layers[nodeID] = layer
	r.mu.Unlock()

	if had {
		prior.Release()
	}
}

// Remove releases and drops the layer for a node id, if one exists.
func (r *Registry) Remove(nodeID string) {
	r.mu.Lock()
	layer, ok := r.layers[nodeID]
	delete(r.layers, nodeID)
	r.mu.Unlock()

	if ok {
		layer.Release()
	}
}

// Get returns the layer bound to a node id, if any.
func (r *Registry) Get(nodeID string) (Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	layer, ok := r.layers[nodeID]
	return layer, ok
}

// Len reports the number of live layers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.layers)
}

// ReleaseAll releases every layer and empties the registry. Used on session
// teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	drained := r.layers
	r.layers = make(map[string]Layer)
	r.mu.Unlock()

	for _, layer := range drained {
		layer.Release()
	}
}
