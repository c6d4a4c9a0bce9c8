// Package session wires the application's single set of mutable registries
// and remote clients into one owned object: the canvas graph, the overlay
// registry, the node-type/contribution catalogs, the pipeline runner for
// immediate execution, the schedule client for deferred execution, and the
// run monitor. Constructed once per application lifetime and torn down
// explicitly, so no package-level globals exist and timers or overlays
// cannot leak past Close.
package session

import (
	"context"

	"github.com/vk/pipecanvas/internal/canvas"
	"github.com/vk/pipecanvas/internal/ctxlog"
	"github.com/vk/pipecanvas/internal/executor"
	"github.com/vk/pipecanvas/internal/monitor"
	"github.com/vk/pipecanvas/internal/overlay"
	"github.com/vk/pipecanvas/internal/registry"
	"github.com/vk/pipecanvas/internal/runner"
	"github.com/vk/pipecanvas/internal/schedule"
)

// Session is the owned controller object for one application lifetime.
type Session struct {
	exec      executor.Client
	schedules *schedule.Client

	graph    *canvas.Graph
	overlays *overlay.Registry
	catalog  *registry.Registry
	runner   *runner.Runner
	monitor  *monitor.Monitor
}

// New assembles a session. sink receives pipeline run log entries; view
// receives run monitor re-renders.
func New(exec executor.Client, schedules *schedule.Client, sink runner.Sink, view monitor.ViewFunc) *Session {
	overlays := overlay.New()
	return &Session{
		exec:      exec,
		schedules: schedules,
		graph:     canvas.New(overlays.Remove),
		overlays:  overlays,
		catalog:   registry.New(),
		runner:    runner.New(exec, sink),
		monitor:   monitor.New(schedules, view),
	}
}

// Graph returns the live canvas graph.
func (s *Session) Graph() *canvas.Graph {
	return s.graph
}

// Overlays returns the preview overlay registry.
func (s *Session) Overlays() *overlay.Registry {
	return s.overlays
}

// Catalog returns the node-type and contribution registry.
func (s *Session) Catalog() *registry.Registry {
	return s.catalog
}

// AdoptGraph replaces the canvas graph, for example with one loaded from a
// grid file. Overlays registered for the outgoing graph are released.
func (s *Session) AdoptGraph(g *canvas.Graph) {
	s.overlays.ReleaseAll()
	s.graph = g
}

// RefreshNodeTypes fetches the executor's catalog into the registry.
func (s *Session) RefreshNodeTypes(ctx context.Context) error {
	types, err := s.exec.NodeTypes(ctx)
	if err != nil {
		return err
	}
	s.catalog.PopulateNodeTypes(types)
	ctxlog.FromContext(ctx).Debug("Node type catalog refreshed.", "count", len(types))
	return nil
}

// RunNow executes the canvas's active subgraph immediately.
func (s *Session) RunNow(ctx context.Context) (runner.Outputs, error) {
	return s.runner.Run(ctx, s.graph.Active())
}

// RunInFlight reports whether a pipeline run is currently executing.
func (s *Session) RunInFlight() bool {
	return s.runner.Running()
}

// CreateSchedule binds the current active subgraph to the given trigger.
// The spec's graph field is always overwritten with the live snapshot;
// orphan nodes are never scheduled.
func (s *Session) CreateSchedule(ctx context.Context, spec schedule.Spec) (*schedule.Schedule, error) {
	spec.Graph = s.graph.Active()
	return s.schedules.Create(ctx, spec)
}

// Schedules lists the server-owned schedules.
func (s *Session) Schedules(ctx context.Context) ([]schedule.Schedule, error) {
	return s.schedules.List(ctx)
}

// PauseSchedule suspends a job. Best-effort.
func (s *Session) PauseSchedule(ctx context.Context, jobID string) {
	s.schedules.Pause(ctx, jobID)
}

// ResumeSchedule reactivates a job. Best-effort.
func (s *Session) ResumeSchedule(ctx context.Context, jobID string) {
	s.schedules.Resume(ctx, jobID)
}

// RunScheduleNow triggers an immediate run of a job. Best-effort.
func (s *Session) RunScheduleNow(ctx context.Context, jobID string) {
	s.schedules.RunNow(ctx, jobID)
}

// DeleteSchedule removes a job. Best-effort.
func (s *Session) DeleteSchedule(ctx context.Context, jobID string) {
	s.schedules.Delete(ctx, jobID)
}

// WatchJob starts polling the latest run of a job.
func (s *Session) WatchJob(ctx context.Context, jobID string) {
	s.monitor.Watch(ctx, jobID)
}

// UnwatchJob stops the active poll, if any.
func (s *Session) UnwatchJob() {
	s.monitor.Unwatch()
}

// Watching reports whether a run poll is active.
func (s *Session) Watching() bool {
	return s.monitor.Watching()
}

// Close tears the session down: the run poll stops and every overlay is
// released. The session must not be used afterwards.
func (s *Session) Close(ctx context.Context) error {
	s.monitor.Unwatch()
	s.overlays.ReleaseAll()
	ctxlog.FromContext(ctx).Debug("Session closed.")
	return nil
}
