// Package schedule manages server-owned recurring jobs bound to a graph
// snapshot: local validation of schedule specs, the REST client for the
// scheduler service, and a best-effort local preview of the next run time.
package schedule

import (
	"time"

	"github.com/vk/pipecanvas/internal/canvas"
)

// Mode selects how a schedule triggers.
type Mode string

const (
	ModeOnce     Mode = "once"
	ModeInterval Mode = "interval"
	ModeCron     Mode = "cron"
)

// Spec is the locally assembled request for creating a schedule. Exactly one
// trigger group is meaningful per mode: RunAt for once, the three interval
// fields for interval, Cron for cron.
type Spec struct {
	Mode Mode

	RunAt time.Time

	Hours   int
	Minutes int
	Seconds int

	Cron string

	// Graph is the active-subgraph snapshot to bind. Orphan nodes are never
	// scheduled because callers pass canvas.Graph.Active(), not the full graph.
	Graph canvas.Subgraph
}

// Schedule is a server-owned job as reported by the scheduler service.
type Schedule struct {
	ID          string          `json:"id"`
	Mode        Mode            `json:"mode"`
	RunAt       *time.Time      `json:"run_at,omitempty"`
	Hours       int             `json:"hours,omitempty"`
	Minutes     int             `json:"minutes,omitempty"`
	Seconds     int             `json:"seconds,omitempty"`
	Cron        string          `json:"cron,omitempty"`
	Graph       canvas.Subgraph `json:"graph"`
	Paused      bool            `json:"paused,omitempty"`
	NextRunTime *time.Time      `json:"next_run_time,omitempty"`
}

// Status is the lifecycle state of one run of a scheduled job.
type Status string

const (
	StatusRunning Status = "Running"
	StatusSuccess Status = "Success"
	StatusError   Status = "Error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// RunSummary is one entry of a job's run history.
type RunSummary struct {
	ID         string     `json:"id"`
	JobID      string     `json:"job_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     Status     `json:"status"`
}

// RunDetail extends RunSummary with the run's ordered log lines.
type RunDetail struct {
	RunSummary
	Logs []string `json:"logs"`
}

// createRequest is the wire body for the create endpoint. run_at is always
// an absolute RFC 3339 UTC instant, never a naive local string.
type createRequest struct {
	Mode  Mode            `json:"mode"`
	RunAt *string         `json:"run_at,omitempty"`
	Hours *int            `json:"hours,omitempty"`
	Mins  *int            `json:"minutes,omitempty"`
	Secs  *int            `json:"seconds,omitempty"`
	Cron  *string         `json:"cron,omitempty"`
	Graph canvas.Subgraph `json:"graph"`
}
