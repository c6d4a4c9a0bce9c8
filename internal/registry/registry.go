// Package registry holds the catalogs a session exposes to its UI surfaces:
// the node types advertised by the executor, and the toolbar/menu
// contributions added by plugins. Contribution lists are append-only.
package registry

import (
	"github.com/vk/pipecanvas/internal/executor"
)

// Contribution is one toolbar or menu entry contributed by a plugin.
//
// When is reserved for a future conditional-visibility expression; nothing
// evaluates it today and no expression language is defined for it.
type Contribution struct {
	ID      string
	Label   string
	Command string
	When    string
}

// Registry holds the catalogs for a single session.
type Registry struct {
	nodeTypes map[string]executor.NodeType
	typeOrder []string

	toolbar []Contribution
	menu    []Contribution
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		nodeTypes: make(map[string]executor.NodeType),
	}
}

// PopulateNodeTypes records the executor's node type catalog, keeping the
// order the service reported. Re-populating replaces the catalog.
func (r *Registry) PopulateNodeTypes(types []executor.NodeType) {
	r.nodeTypes = make(map[string]executor.NodeType, len(types))
	r.typeOrder = r.typeOrder[:0]
	for _, t := range types {
		if _, ok := r.nodeTypes[t.Name]; ok {
			continue
		}
		r.nodeTypes[t.Name] = t
		r.typeOrder = append(r.typeOrder, t.Name)
	}
}

// NodeType looks up a node type by name.
func (r *Registry) NodeType(name string) (executor.NodeType, bool) {
	t, ok := r.nodeTypes[name]
	return t, ok
}

// NodeTypes returns the catalog in service order.
func (r *Registry) NodeTypes() []executor.NodeType {
	out := make([]executor.NodeType, 0, len(r.typeOrder))
	for _, name := range r.typeOrder {
		out = append(out, r.nodeTypes[name])
	}
	return out
}

// DefaultArgs returns a copy of the default args for a node type, or an
// empty map for unknown types. The copy keeps canvas edits from leaking
// back into the catalog.
func (r *Registry) DefaultArgs(name string) map[string]any {
	out := make(map[string]any)
	t, ok := r.nodeTypes[name]
	if !ok {
		return out
	}
	for k, v := range t.DefaultArgs {
		out[k] = v
	}
	return out
}

// AddToolbar appends a toolbar contribution.
func (r *Registry) AddToolbar(c Contribution) {
	r.toolbar = append(r.toolbar, c)
}

// AddMenu appends a menu contribution.
func (r *Registry) AddMenu(c Contribution) {
	r.menu = append(r.menu, c)
}

// Toolbar returns the toolbar contributions in registration order.
func (r *Registry) Toolbar() []Contribution {
	out := make([]Contribution, len(r.toolbar))
	copy(out, r.toolbar)
	return out
}

// Menu returns the menu contributions in registration order.
func (r *Registry) Menu() []Contribution {
	out := make([]Contribution, len(r.menu))
	copy(out, r.menu)
	return out
}
