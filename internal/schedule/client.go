package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	resty "resty.dev/v3"

	"github.com/vk/pipecanvas/internal/ctxlog"
)

// Client is the REST client for the scheduler service. Create failures are
// returned to the caller because they represent a rejected user action;
// pause/resume/run-now/delete are best-effort and surface nothing beyond a
// warning log, so the UI can simply refresh its view of the server state.
type Client struct {
	http *resty.Client
}

// NewClient creates a scheduler client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Create validates the spec locally, snapshots the graph by value, and asks
// the service to create the schedule. Invalid specs never reach the network.
func (c *Client) Create(ctx context.Context, spec Spec) (*Schedule, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}

	body := createRequest{Mode: spec.Mode, Graph: spec.Graph.Clone()}
	switch spec.Mode {
	case ModeOnce:
		// The wall-clock input is resolved to an absolute UTC instant here,
		// so the service never sees a naive local timestamp.
		runAt := spec.RunAt.UTC().Format(time.RFC3339)
		body.RunAt = &runAt
	case ModeInterval:
		body.Hours = &spec.Hours
		body.Mins = &spec.Minutes
		body.Secs = &spec.Seconds
	case ModeCron:
		cronExpr := spec.Cron
		body.Cron = &cronExpr
	}

	var created Schedule
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString()).
		SetBody(body).
		SetResult(&created).
		Post("/pipeline/schedules")
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scheduler rejected schedule: %s: %s", resp.Status(), resp.String())
	}
	ctxlog.FromContext(ctx).Info("Schedule created.", "jobID", created.ID, "mode", created.Mode)
	return &created, nil
}

// List fetches every schedule the service knows about.
func (c *Client) List(ctx context.Context) ([]Schedule, error) {
	var schedules []Schedule
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&schedules).
		Get("/pipeline/schedules")
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scheduler returned %s", resp.Status())
	}
	return schedules, nil
}

// Delete removes a schedule. Best-effort.
func (c *Client) Delete(ctx context.Context, jobID string) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		Delete("/pipeline/schedules/{id}")
	c.logBestEffort(ctx, "delete", jobID, resp, err)
}

// Pause suspends a schedule's trigger. Best-effort.
func (c *Client) Pause(ctx context.Context, jobID string) {
	c.postAction(ctx, jobID, "pause")
}

// Resume reactivates a paused schedule. Best-effort.
func (c *Client) Resume(ctx context.Context, jobID string) {
	c.postAction(ctx, jobID, "resume")
}

// RunNow triggers an immediate run of a schedule. Best-effort.
func (c *Client) RunNow(ctx context.Context, jobID string) {
	c.postAction(ctx, jobID, "run-now")
}

func (c *Client) postAction(ctx context.Context, jobID, action string) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetPathParam("action", action).
		Post("/pipeline/schedules/{id}/{action}")
	c.logBestEffort(ctx, action, jobID, resp, err)
}

// logBestEffort records a failed best-effort call without propagating it.
func (c *Client) logBestEffort(ctx context.Context, action, jobID string, resp *resty.Response, err error) {
	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Warn("Schedule action failed.", "action", action, "jobID", jobID, "error", err)
		return
	}
	if resp.IsError() {
		logger.Warn("Schedule action rejected.", "action", action, "jobID", jobID, "status", resp.Status())
		return
	}
	logger.Debug("Schedule action applied.", "action", action, "jobID", jobID)
}

// Runs fetches the run history for a job. The service reports newest-first;
// the monitor re-sorts defensively rather than trusting that.
func (c *Client) Runs(ctx context.Context, jobID string) ([]RunSummary, error) {
	var runs []RunSummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetResult(&runs).
		Get("/pipeline/schedules/{id}/runs")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scheduler returned %s", resp.Status())
	}
	return runs, nil
}

// RunDetail fetches one run's record including its ordered log lines.
func (c *Client) RunDetail(ctx context.Context, runID string) (*RunDetail, error) {
	var detail RunDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("runId", runID).
		SetResult(&detail).
		Get("/pipeline/schedules/runs/{runId}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run detail: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scheduler returned %s", resp.Status())
	}
	return &detail, nil
}
