// Package executor is the HTTP client for the Node Executor Service, the
// external collaborator that performs the actual computation of a single
// node given its args and upstream inputs.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/pipecanvas/internal/ctxlog"
)

// RunRequest is the payload for executing one node.
type RunRequest struct {
	NodeID string         `json:"nodeId"`
	Type   string         `json:"type"`
	Args   map[string]any `json:"args"`
	Inputs map[string]any `json:"inputs"`
}

// RunResponse is the executor's reply. The service reports handler failures
// as ok:false with HTTP 200, so OK must be checked even on a clean exchange.
type RunResponse struct {
	OK     bool     `json:"ok"`
	Output any      `json:"output,omitempty"`
	Logs   []string `json:"logs,omitempty"`
	Stdout string   `json:"stdout,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// NodeType describes one remotely executable operation, as advertised by the
// service's catalog endpoint.
type NodeType struct {
	Name        string         `json:"name"`
	DefaultArgs map[string]any `json:"default_args"`
}

// nodeTypesResponse matches the catalog endpoint's envelope.
type nodeTypesResponse struct {
	Types []NodeType `json:"types"`
}

// Client is the narrow surface the pipeline runner and session depend on.
type Client interface {
	RunNode(ctx context.Context, req RunRequest) (*RunResponse, error)
	NodeTypes(ctx context.Context) ([]NodeType, error)
}

// HTTPClient talks to a Node Executor Service over HTTP with JSON bodies.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the executor at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// RunNode executes one node remotely. A returned error covers transport
// failure, a non-2xx status, or an unparseable body; an ok:false response is
// returned as-is for the caller to interpret.
func (c *HTTPClient) RunNode(ctx context.Context, runReq RunRequest) (*RunResponse, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executing node remotely.", "nodeID", runReq.NodeID, "type", runReq.Type)

	body, err := json.Marshal(runReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run_node", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("executor returned %s", resp.Status)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out RunResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, fmt.Errorf("failed to decode executor response: %w", err)
	}
	return &out, nil
}

// NodeTypes fetches the catalog of operations the executor can run.
func (c *HTTPClient) NodeTypes(ctx context.Context) ([]NodeType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/node_types", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("executor returned %s", resp.Status)
	}

	var out nodeTypesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode node type catalog: %w", err)
	}
	return out.Types, nil
}
