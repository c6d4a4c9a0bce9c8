package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipecanvas/internal/canvas"
	"github.com/vk/pipecanvas/internal/executor"
)

// fakeExec scripts executor responses per node id and records every request
// in call order.
type fakeExec struct {
	mu      sync.Mutex
	calls   []executor.RunRequest
	respond func(req executor.RunRequest) (*executor.RunResponse, error)
	block   chan struct{}
}

func (f *fakeExec) RunNode(ctx context.Context, req executor.RunRequest) (*executor.RunResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return &executor.RunResponse{OK: true, Output: map[string]any{"text": "done " + req.NodeID}}, nil
}

func (f *fakeExec) NodeTypes(ctx context.Context) ([]executor.NodeType, error) {
	return nil, nil
}

func (f *fakeExec) calledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.calls))
	for i, c := range f.calls {
		ids[i] = c.NodeID
	}
	return ids
}

// recorder collects log entries in order.
type recorder struct {
	entries []Entry
}

func (r *recorder) Append(e Entry) { r.entries = append(r.entries, e) }

func (r *recorder) byNode(id string) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.NodeID == id {
			out = append(out, e)
		}
	}
	return out
}

func chain(ids ...string) canvas.Subgraph {
	var sub canvas.Subgraph
	for _, id := range ids {
		sub.Nodes = append(sub.Nodes, canvas.Node{ID: id, Type: "hello"})
	}
	for i := 1; i < len(ids); i++ {
		sub.Edges = append(sub.Edges, canvas.Edge{ID: "e" + ids[i], Source: ids[i-1], Target: ids[i]})
	}
	return sub
}

func TestRunExecutesInTopologicalOrder(t *testing.T) {
	exec := &fakeExec{}
	sink := &recorder{}
	r := New(exec, sink)

	outputs, err := r.Run(context.Background(), chain("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, exec.calledIDs())
	assert.Len(t, outputs, 3)
	assert.False(t, r.Running())
}

func TestRunWiresUpstreamOutputsIntoInputs(t *testing.T) {
	exec := &fakeExec{}
	r := New(exec, &recorder{})

	sub := chain("a", "b")
	_, err := r.Run(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, exec.calls, 2)
	assert.Empty(t, exec.calls[0].Inputs)
	got, ok := exec.calls[1].Inputs["a"]
	require.True(t, ok, "b must receive a's output keyed by predecessor id")
	assert.Equal(t, "done a", got.(map[string]any)["text"])
}

func TestFailedNodeDoesNotAbortTheRun(t *testing.T) {
	// a -> b -> c with b failing: c still runs, with no entry for b.
	exec := &fakeExec{
		respond: func(req executor.RunRequest) (*executor.RunResponse, error) {
			if req.NodeID == "b" {
				return nil, errors.New("connection reset")
			}
			return &executor.RunResponse{OK: true, Output: map[string]any{"text": "done " + req.NodeID}}, nil
		},
	}
	sink := &recorder{}
	r := New(exec, sink)

	outputs, err := r.Run(context.Background(), chain("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, exec.calledIDs())
	assert.Contains(t, outputs, "a")
	assert.NotContains(t, outputs, "b")
	assert.Contains(t, outputs, "c")
	assert.Empty(t, exec.calls[2].Inputs, "c's failed predecessor contributes no input entry")

	bEntries := sink.byNode("b")
	require.Len(t, bEntries, 1)
	assert.False(t, bEntries[0].OK)
	assert.Contains(t, bEntries[0].Text, "connection reset")
}

func TestExecutorRejectionIsAFailureLine(t *testing.T) {
	exec := &fakeExec{
		respond: func(req executor.RunRequest) (*executor.RunResponse, error) {
			return &executor.RunResponse{OK: false, Error: "unknown node type 'nope'"}, nil
		},
	}
	sink := &recorder{}
	r := New(exec, sink)

	outputs, err := r.Run(context.Background(), chain("a", "b"))
	require.NoError(t, err)
	assert.Empty(t, outputs)

	for _, e := range sink.entries {
		assert.False(t, e.OK)
		assert.Contains(t, e.Text, "unknown node type")
	}
}

func TestEmptySubgraphIsANoOp(t *testing.T) {
	exec := &fakeExec{}
	sink := &recorder{}
	r := New(exec, sink)

	outputs, err := r.Run(context.Background(), canvas.Subgraph{})
	require.NoError(t, err)
	assert.Empty(t, outputs)
	assert.Empty(t, exec.calls)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, SystemNode, sink.entries[0].NodeID)
	assert.True(t, sink.entries[0].OK)
}

func TestCycleEmitsWarningAndRunsPartialOrder(t *testing.T) {
	sub := chain("start", "a", "b")
	// Close the a <-> b loop; only start remains orderable.
	sub.Edges = append(sub.Edges, canvas.Edge{ID: "back", Source: "b", Target: "a"})

	exec := &fakeExec{}
	sink := &recorder{}
	r := New(exec, sink)

	outputs, err := r.Run(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, []string{"start"}, exec.calledIDs())
	assert.Len(t, outputs, 1)

	warnings := sink.byNode(SystemNode)
	require.Len(t, warnings, 1)
	assert.False(t, warnings[0].OK)
	assert.Contains(t, warnings[0].Text, "cycle detected")
}

func TestLogAndStdoutLinesAreSplitAndBlanksSuppressed(t *testing.T) {
	exec := &fakeExec{
		respond: func(req executor.RunRequest) (*executor.RunResponse, error) {
			return &executor.RunResponse{
				OK:     true,
				Output: map[string]any{"value": 42.0},
				Logs:   []string{"first\n\nsecond", ""},
				Stdout: "out1\nout2\n",
			}, nil
		},
	}
	sink := &recorder{}
	r := New(exec, sink)

	_, err := r.Run(context.Background(), chain("a", "b"))
	require.NoError(t, err)

	entries := sink.byNode("a")
	require.Len(t, entries, 5)
	assert.Equal(t, "first", entries[0].Text)
	assert.Equal(t, "second", entries[1].Text)
	assert.Equal(t, "out1", entries[2].Text)
	assert.Equal(t, "out2", entries[3].Text)
	// No textual field on the output, so the summary is a JSON rendering.
	assert.Equal(t, `{"value":42}`, entries[4].Text)
}

func TestSummaryPrefersTextualField(t *testing.T) {
	exec := &fakeExec{}
	sink := &recorder{}
	r := New(exec, sink)

	_, err := r.Run(context.Background(), chain("a", "b"))
	require.NoError(t, err)

	entries := sink.byNode("a")
	require.Len(t, entries, 1)
	assert.Equal(t, "done a", entries[0].Text)
}

func TestOnlyOneRunInFlight(t *testing.T) {
	exec := &fakeExec{block: make(chan struct{})}
	r := New(exec, &recorder{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), chain("a", "b"))
		done <- err
	}()

	require.Eventually(t, r.Running, time.Second, time.Millisecond)

	_, err := r.Run(context.Background(), chain("x", "y"))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(exec.block)
	require.NoError(t, <-done)
	assert.False(t, r.Running())
}
