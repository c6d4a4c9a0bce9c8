// Package gridfile loads pipeline definitions authored as HCL files into a
// canvas graph, so pipelines can be run or scheduled from the CLI without
// the canvas UI. A definition is a flat list of node and edge blocks:
//
//	node "acquire" {
//	  type = "vector.input"
//	  args = { path = "/data/parcels.geojson" }
//	  position {
//	    x = 40
//	    y = 120
//	  }
//	}
//
//	edge {
//	  source = "acquire"
//	  target = "render"
//	}
package gridfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/pipecanvas/internal/canvas"
	"github.com/vk/pipecanvas/internal/ctxlog"
	"github.com/vk/pipecanvas/internal/registry"
)

// positionHCL mirrors the optional position block of a node.
type positionHCL struct {
	X float64 `hcl:"x,optional"`
	Y float64 `hcl:"y,optional"`
}

// nodeHCL mirrors a node block. Args stays an expression so any object
// shape the executor understands can be written inline.
type nodeHCL struct {
	ID       string         `hcl:"id,label"`
	Type     string         `hcl:"type"`
	Args     hcl.Expression `hcl:"args,optional"`
	Position *positionHCL   `hcl:"position,block"`
}

// edgeHCL mirrors an edge block. The id is optional; one is generated when
// omitted.
type edgeHCL struct {
	ID     string `hcl:"id,optional"`
	Source string `hcl:"source"`
	Target string `hcl:"target"`
}

// fileRoot decodes the top-level blocks of one grid file.
type fileRoot struct {
	Nodes  []*nodeHCL `hcl:"node,block"`
	Edges  []*edgeHCL `hcl:"edge,block"`
	Remain hcl.Body   `hcl:",remain"`
}

// Loader parses grid files into canvas graphs. When a registry is supplied,
// a node type's default args fill in any key the file left unset.
type Loader struct {
	defaults *registry.Registry
}

// NewLoader creates a loader. defaults may be nil.
func NewLoader(defaults *registry.Registry) *Loader {
	return &Loader{defaults: defaults}
}

// Load reads path (a single .hcl file or a directory of them, walked in
// lexical order) and assembles the canvas graph. Node order follows file
// order, which fixes the execution order for ties.
func (l *Loader) Load(ctx context.Context, path string) (*canvas.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findGridFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found at %s", path)
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	parser := hclparse.NewParser()
	graph := canvas.New(nil)

	// Two passes so edges may reference nodes declared in a later file.
	var roots []*fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse grid file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode grid file %s: %w", file, diags)
		}
		roots = append(roots, &root)
	}

	for _, root := range roots {
		for _, n := range root.Nodes {
			args, err := l.resolveArgs(n)
			if err != nil {
				return nil, err
			}
			node := canvas.Node{ID: n.ID, Type: n.Type, Args: args}
			if n.Position != nil {
				node.Position = canvas.Position{X: n.Position.X, Y: n.Position.Y}
			}
			graph.AddNode(ctx, node)
		}
	}
	for _, root := range roots {
		for _, e := range root.Edges {
			id := e.ID
			if id == "" {
				id = uuid.NewString()
			}
			graph.AddEdge(ctx, canvas.Edge{ID: id, Source: e.Source, Target: e.Target})
		}
	}

	logger.Debug("Grid loaded.", "nodes", len(graph.Nodes()), "edges", len(graph.Edges()))
	return graph, nil
}

// resolveArgs evaluates the node's args expression and layers it over the
// node type's default args.
func (l *Loader) resolveArgs(n *nodeHCL) (map[string]any, error) {
	args := make(map[string]any)
	if l.defaults != nil {
		args = l.defaults.DefaultArgs(n.Type)
	}

	if n.Args == nil {
		return args, nil
	}
	val, diags := n.Args.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate args for node %q: %w", n.ID, diags)
	}
	if val.IsNull() {
		return args, nil
	}
	authored, err := ctyToArgs(val)
	if err != nil {
		return nil, fmt.Errorf("args for node %q: %w", n.ID, err)
	}
	for k, v := range authored {
		args[k] = v
	}
	return args, nil
}

// ctyToArgs converts an evaluated args expression to the executor's
// JSON-shaped map through cty's JSON encoding.
func ctyToArgs(val cty.Value) (map[string]any, error) {
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("args must be an object, got %s", val.Type().FriendlyName())
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode args: %w", err)
	}
	return out, nil
}

// findGridFiles resolves path to a flat, lexically ordered list of .hcl files.
func findGridFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
