package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/pipecanvas/internal/ctxlog"
	"github.com/vk/pipecanvas/internal/schedule"
)

// wallClockLayouts are accepted for the schedule --at flag. Inputs without a
// zone are read in the local zone and resolved to an absolute instant before
// transmission.
var wallClockLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)
	defer a.session.Close(ctx)

	switch a.config.Command {
	case CmdRun:
		return a.runPipeline(ctx)
	case CmdSchedule:
		return a.createSchedule(ctx)
	case CmdSchedules:
		return a.listSchedules(ctx)
	case CmdPause:
		a.session.PauseSchedule(ctx, a.config.JobID)
	case CmdResume:
		a.session.ResumeSchedule(ctx, a.config.JobID)
	case CmdRunNow:
		a.session.RunScheduleNow(ctx, a.config.JobID)
	case CmdDelete:
		a.session.DeleteSchedule(ctx, a.config.JobID)
	case CmdWatch:
		return a.watchJob(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
	return nil
}

// loadGrid refreshes the node type catalog (best effort, defaults only) and
// adopts the grid file's graph into the session.
func (a *App) loadGrid(ctx context.Context) error {
	if err := a.session.RefreshNodeTypes(ctx); err != nil {
		a.logger.Warn("Node type catalog unavailable, continuing without default args.", "error", err)
	}
	graph, err := a.loader.Load(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}
	a.session.AdoptGraph(graph)
	return nil
}

func (a *App) runPipeline(ctx context.Context) error {
	if err := a.loadGrid(ctx); err != nil {
		return err
	}

	outputs, err := a.session.RunNow(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Debug("Run command finished.", "outputs", len(outputs))
	return nil
}

func (a *App) createSchedule(ctx context.Context) error {
	if err := a.loadGrid(ctx); err != nil {
		return err
	}

	spec := schedule.Spec{
		Mode:    schedule.Mode(a.config.Mode),
		Hours:   a.config.Hours,
		Minutes: a.config.Minutes,
		Seconds: a.config.Seconds,
		Cron:    a.config.Cron,
	}
	if a.config.RunAt != "" {
		runAt, err := parseWallClock(a.config.RunAt)
		if err != nil {
			return err
		}
		spec.RunAt = runAt
	}

	created, err := a.session.CreateSchedule(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	fmt.Fprintf(a.outW, "created schedule %s\n", created.ID)
	if next, ok := nextRunOf(created); ok {
		fmt.Fprintf(a.outW, "next run ~ %s\n", next.Local().Format(time.RFC3339))
	}
	return nil
}

func (a *App) listSchedules(ctx context.Context) error {
	schedules, err := a.session.Schedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}
	if len(schedules) == 0 {
		fmt.Fprintln(a.outW, "no schedules")
		return nil
	}
	for _, s := range schedules {
		state := "active"
		if s.Paused {
			state = "paused"
		}
		line := fmt.Sprintf("%s  %s  %s  %s", s.ID, s.Mode, triggerSummary(s), state)
		if next, ok := nextRunOf(&s); ok {
			line += "  next ~ " + next.Local().Format(time.RFC3339)
		}
		fmt.Fprintln(a.outW, line)
	}
	return nil
}

// watchJob polls the job's latest run and blocks until the monitor reaches
// a stop condition or the context ends.
func (a *App) watchJob(ctx context.Context) error {
	a.session.WatchJob(ctx, a.config.JobID)
	defer a.session.UnwatchJob()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !a.session.Watching() {
				return nil
			}
		}
	}
}

// parseWallClock resolves the --at input to an instant. Zone-less layouts
// are interpreted in the local zone.
func parseWallClock(input string) (time.Time, error) {
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse run time %q", input)
}

// nextRunOf prefers the server-reported next run time and falls back to a
// local preview.
func nextRunOf(s *schedule.Schedule) (time.Time, bool) {
	if s.NextRunTime != nil {
		return *s.NextRunTime, true
	}
	spec := schedule.Spec{Mode: s.Mode, Hours: s.Hours, Minutes: s.Minutes, Seconds: s.Seconds, Cron: s.Cron}
	if s.RunAt != nil {
		spec.RunAt = *s.RunAt
	}
	return schedule.NextRunPreview(spec, time.Now())
}

// triggerSummary renders the trigger part of a schedule listing line.
func triggerSummary(s schedule.Schedule) string {
	switch s.Mode {
	case schedule.ModeOnce:
		if s.RunAt != nil {
			return s.RunAt.Local().Format(time.RFC3339)
		}
		return "-"
	case schedule.ModeInterval:
		return fmt.Sprintf("every %02dh%02dm%02ds", s.Hours, s.Minutes, s.Seconds)
	case schedule.ModeCron:
		return s.Cron
	}
	return "-"
}
