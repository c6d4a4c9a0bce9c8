// Package testutil provides shared fakes for tests: a thread-safe log
// buffer, a scripted in-memory executor, and an httptest-backed scheduler
// service.
package testutil

import (
	"bytes"
	"context"
	"sync"

	"github.com/vk/pipecanvas/internal/executor"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// FakeExecutor is a scripted in-process executor.Client. When Respond is
// nil every node succeeds with a {"text": "done <id>"} output.
type FakeExecutor struct {
	mu      sync.Mutex
	calls   []executor.RunRequest
	Respond func(req executor.RunRequest) (*executor.RunResponse, error)
	Types   []executor.NodeType
}

// RunNode implements executor.Client.
func (f *FakeExecutor) RunNode(ctx context.Context, req executor.RunRequest) (*executor.RunResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.Respond != nil {
		return f.Respond(req)
	}
	return &executor.RunResponse{OK: true, Output: map[string]any{"text": "done " + req.NodeID}}, nil
}

// NodeTypes implements executor.Client.
func (f *FakeExecutor) NodeTypes(ctx context.Context) ([]executor.NodeType, error) {
	return f.Types, nil
}

// Calls returns a copy of the recorded run requests, in order.
func (f *FakeExecutor) Calls() []executor.RunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]executor.RunRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

// CalledIDs returns the node ids of the recorded requests, in order.
func (f *FakeExecutor) CalledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.calls))
	for i, c := range f.calls {
		ids[i] = c.NodeID
	}
	return ids
}
