package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vk/pipecanvas/internal/canvas"
	"github.com/vk/pipecanvas/internal/ctxlog"
	"github.com/vk/pipecanvas/internal/executor"
)

// ErrAlreadyRunning is returned when Run is called while a run is in flight.
// Only one run may exist at a time; callers should gate on Running().
var ErrAlreadyRunning = errors.New("a pipeline run is already in progress")

// Outputs maps node ids to the JSON value each node produced during one run.
// Nodes that failed or were skipped have no entry.
type Outputs map[string]any

// Runner executes active subgraphs against a remote executor, one node at a
// time. The zero value is not usable; construct with New.
type Runner struct {
	exec    executor.Client
	sink    Sink
	running atomic.Bool
}

// New creates a runner that executes nodes through exec and streams log
// entries to sink.
func New(exec executor.Client, sink Sink) *Runner {
	return &Runner{exec: exec, sink: sink}
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run executes the subgraph and returns the outputs of every node that
// succeeded. The run itself only errors when it could not start; per-node
// failures are converted to log entries and do not abort the walk.
func (r *Runner) Run(ctx context.Context, sub canvas.Subgraph) (Outputs, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	logger := ctxlog.FromContext(ctx)
	outputs := make(Outputs)

	if sub.Empty() {
		r.sink.Append(Entry{NodeID: SystemNode, OK: true, Text: "nothing to run: no connected nodes"})
		logger.Info("Run skipped, subgraph is empty.")
		return outputs, nil
	}

	order := canvas.TopoOrder(sub.Nodes, sub.Edges)
	if len(order) < len(sub.Nodes) {
		r.sink.Append(Entry{NodeID: SystemNode, OK: false, Text: "cycle detected; running partial order"})
		logger.Warn("Cycle detected in active subgraph.", "ordered", len(order), "active", len(sub.Nodes))
	}

	nodeByID := make(map[string]canvas.Node, len(sub.Nodes))
	for _, n := range sub.Nodes {
		nodeByID[n.ID] = n
	}
	preds := canvas.Predecessors(sub.Nodes, sub.Edges)

	logger.Info("▶️ Starting pipeline run.", "steps", len(order))
	for _, id := range order {
		r.runNode(ctx, nodeByID[id], preds[id], outputs)
	}
	logger.Info("🏁 Pipeline run finished.", "succeeded", len(outputs), "attempted", len(order))

	return outputs, nil
}

// runNode executes a single node and records its outcome. Predecessors that
// produced no output (failed, or skipped inside a cycle) contribute no input
// entry.
func (r *Runner) runNode(ctx context.Context, n canvas.Node, preds []string, outputs Outputs) {
	logger := ctxlog.FromContext(ctx).With("nodeID", n.ID)

	inputs := make(map[string]any)
	for _, pred := range preds {
		if out, ok := outputs[pred]; ok {
			inputs[pred] = out
		}
	}

	resp, err := r.exec.RunNode(ctx, executor.RunRequest{
		NodeID: n.ID,
		Type:   n.Type,
		Args:   n.Args,
		Inputs: inputs,
	})
	if err != nil {
		logger.Error("Node execution failed.", "error", err)
		r.sink.Append(Entry{NodeID: n.ID, OK: false, Text: err.Error()})
		return
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "executor reported failure without a message"
		}
		logger.Error("Executor rejected node.", "error", msg)
		r.sink.Append(Entry{NodeID: n.ID, OK: false, Text: msg})
		return
	}

	outputs[n.ID] = resp.Output

	for _, line := range resp.Logs {
		r.appendLines(n.ID, line)
	}
	r.appendLines(n.ID, resp.Stdout)
	r.sink.Append(Entry{NodeID: n.ID, OK: true, Text: summarize(resp.Output)})
	logger.Info("✅ Node finished.")
}

// appendLines splits text on line boundaries and emits each non-blank line
// as a successful entry for the node.
func (r *Runner) appendLines(nodeID, text string) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.sink.Append(Entry{NodeID: nodeID, OK: true, Text: line})
	}
}

// summarize renders a node output for the log stream: the conventional
// textual field when the executor provided one, otherwise compact JSON.
func summarize(output any) string {
	if m, ok := output.(map[string]any); ok {
		if text, ok := m["text"].(string); ok {
			return text
		}
	}
	rendered, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(rendered)
}
