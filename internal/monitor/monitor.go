// Package monitor polls the scheduler service's run history for one job and
// re-renders the latest run's log stream until that run reaches a terminal
// state. Polling is a small state machine (watching/stopped) so the
// single-poll-in-flight and stop-on-terminal invariants hold by
// construction rather than by accident.
package monitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vk/pipecanvas/internal/ctxlog"
	"github.com/vk/pipecanvas/internal/schedule"
)

// DefaultInterval is the fixed poll period.
const DefaultInterval = time.Second

// RunHistory is the read surface of the scheduler client the monitor needs.
type RunHistory interface {
	Runs(ctx context.Context, jobID string) ([]schedule.RunSummary, error)
	RunDetail(ctx context.Context, runID string) (*schedule.RunDetail, error)
}

// Lane mirrors the watched run's status onto every rendered line: "run"
// while the run is in flight, "ok" after success, "err" after failure.
type Lane string

const (
	LaneRun Lane = "run"
	LaneOK  Lane = "ok"
	LaneErr Lane = "err"
)

// Line is one rendered log line. Error is the line's own severity,
// independent of the lane: a Running record can carry error-severity lines.
type Line struct {
	Text  string
	Lane  Lane
	Error bool
}

// ViewFunc receives a full re-render of the log view on every poll tick.
type ViewFunc func(jobID string, lines []Line)

// failureMarkers flag a line as error severity, matched case-insensitively.
var failureMarkers = []string{"error", "failed", "exception", "traceback"}

// Monitor watches the latest run of one job at a time.
type Monitor struct {
	history  RunHistory
	view     ViewFunc
	interval time.Duration

	mu      sync.Mutex
	current *watchState
}

type watchState struct {
	cancel context.CancelFunc
}

// New creates a monitor rendering through view at the default poll period.
func New(history RunHistory, view ViewFunc) *Monitor {
	return &Monitor{history: history, view: view, interval: DefaultInterval}
}

// Watch begins polling jobID. A watch already in progress is stopped first;
// a monitor never has more than one active poll timer.
func (m *Monitor) Watch(ctx context.Context, jobID string) {
	pollCtx, cancel := context.WithCancel(ctx)
	ws := &watchState{cancel: cancel}

	m.mu.Lock()
	if m.current != nil {
		m.current.cancel()
	}
	m.current = ws
	m.mu.Unlock()

	go m.poll(pollCtx, ws, jobID)
}

// Unwatch stops the active poll, if any. Safe to call repeatedly; wired into
// view teardown so timers never leak across navigation.
func (m *Monitor) Unwatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.cancel()
		m.current = nil
	}
}

// Watching reports whether a poll is active.
func (m *Monitor) Watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// stopSelf ends a poll from inside its own goroutine, leaving a newer watch
// untouched.
func (m *Monitor) stopSelf(ws *watchState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws.cancel()
	if m.current == ws {
		m.current = nil
	}
}

// poll drives the tick loop. The first tick fires immediately; afterwards
// ticks that would overlap in-flight work are skipped, never queued.
func (m *Monitor) poll(ctx context.Context, ws *watchState, jobID string) {
	logger := ctxlog.FromContext(ctx).With("jobID", jobID)
	logger.Debug("Run monitor started.")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if done := m.tick(ctx, jobID); done {
			m.stopSelf(ws)
			logger.Debug("Run monitor reached a stop condition.")
			return
		}
		// Drop any tick that accumulated while the work above ran.
		select {
		case <-ticker.C:
		default:
		}

		select {
		case <-ctx.Done():
			logger.Debug("Run monitor cancelled.")
			return
		case <-ticker.C:
		}
	}
}

// tick performs one poll cycle and reports whether polling should stop.
func (m *Monitor) tick(ctx context.Context, jobID string) bool {
	runs, err := m.history.Runs(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.view(jobID, []Line{{Text: "failed to fetch run history", Lane: LaneErr, Error: true}})
		return false
	}

	if len(runs) == 0 {
		m.view(jobID, []Line{{Text: "no runs recorded for this job yet", Lane: LaneRun}})
		return true
	}

	// The service promises newest-first, but the head matters too much to
	// take that on faith.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	newest := runs[0]

	detail, err := m.history.RunDetail(ctx, newest.ID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.view(jobID, []Line{{Text: "failed to fetch run detail", Lane: LaneErr, Error: true}})
		return false
	}

	lane := laneFor(detail.Status)
	lines := make([]Line, len(detail.Logs))
	for i, text := range detail.Logs {
		lines[i] = Line{Text: text, Lane: lane, Error: errorSeverity(text)}
	}
	m.view(jobID, lines)

	return detail.Status.Terminal()
}

func laneFor(status schedule.Status) Lane {
	switch status {
	case schedule.StatusSuccess:
		return LaneOK
	case schedule.StatusError:
		return LaneErr
	default:
		return LaneRun
	}
}

// errorSeverity classifies a single line by its text alone.
func errorSeverity(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range failureMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
