package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipecanvas/internal/schedule"
)

// fakeHistory scripts run-history responses per poll tick.
type fakeHistory struct {
	mu     sync.Mutex
	calls  int
	runs   func(call int) ([]schedule.RunSummary, error)
	detail func(runID string) (*schedule.RunDetail, error)

	detailIDs []string
}

func (f *fakeHistory) Runs(ctx context.Context, jobID string) ([]schedule.RunSummary, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.runs(call)
}

func (f *fakeHistory) RunDetail(ctx context.Context, runID string) (*schedule.RunDetail, error) {
	f.mu.Lock()
	f.detailIDs = append(f.detailIDs, runID)
	f.mu.Unlock()
	if f.detail != nil {
		return f.detail(runID)
	}
	return &schedule.RunDetail{
		RunSummary: schedule.RunSummary{ID: runID, Status: schedule.StatusSuccess},
		Logs:       []string{"[a] done"},
	}, nil
}

func (f *fakeHistory) runsCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeHistory) detailCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.detailIDs))
	copy(out, f.detailIDs)
	return out
}

// viewRecorder captures every re-render.
type viewRecorder struct {
	mu      sync.Mutex
	renders [][]Line
}

func (v *viewRecorder) render(jobID string, lines []Line) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, lines)
}

func (v *viewRecorder) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *viewRecorder) last() []Line {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return nil
	}
	return v.renders[len(v.renders)-1]
}

func newTestMonitor(h RunHistory, v ViewFunc) *Monitor {
	m := New(h, v)
	m.interval = 2 * time.Millisecond
	return m
}

func waitStopped(t *testing.T, m *Monitor) {
	t.Helper()
	require.Eventually(t, func() bool { return !m.Watching() }, time.Second, time.Millisecond)
}

func runList(status schedule.Status) []schedule.RunSummary {
	return []schedule.RunSummary{{ID: "run-1", JobID: "job-1", StartedAt: time.Now(), Status: status}}
}

func TestTerminalStatusStopsPolling(t *testing.T) {
	history := &fakeHistory{runs: func(int) ([]schedule.RunSummary, error) {
		return runList(schedule.StatusSuccess), nil
	}}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	waitStopped(t, m)

	assert.Equal(t, 1, history.runsCallCount(), "terminal status observed on the first fetch must end polling")
	require.Equal(t, 1, view.count())
	assert.Equal(t, LaneOK, view.last()[0].Lane)
}

func TestPollsUntilRunFinishes(t *testing.T) {
	history := &fakeHistory{
		runs: func(call int) ([]schedule.RunSummary, error) {
			if call < 3 {
				return runList(schedule.StatusRunning), nil
			}
			return runList(schedule.StatusError), nil
		},
	}
	// The detail status follows the summary on the final call.
	calls := 0
	history.detail = func(runID string) (*schedule.RunDetail, error) {
		calls++
		status := schedule.StatusRunning
		if calls >= 3 {
			status = schedule.StatusError
		}
		return &schedule.RunDetail{
			RunSummary: schedule.RunSummary{ID: runID, Status: status},
			Logs:       []string{"[a] working"},
		}, nil
	}

	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)
	m.Watch(context.Background(), "job-1")
	waitStopped(t, m)

	assert.GreaterOrEqual(t, view.count(), 3)
	assert.Equal(t, LaneErr, view.last()[0].Lane)
}

func TestEmptyRunListPlaceholderStopsWithoutError(t *testing.T) {
	history := &fakeHistory{runs: func(int) ([]schedule.RunSummary, error) {
		return nil, nil
	}}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	waitStopped(t, m)

	assert.Equal(t, 1, history.runsCallCount())
	require.Equal(t, 1, view.count())
	line := view.last()[0]
	assert.Contains(t, line.Text, "no runs")
	assert.False(t, line.Error)
	assert.Empty(t, history.detailCalls())
}

func TestFetchFailureRendersLineAndKeepsPolling(t *testing.T) {
	history := &fakeHistory{runs: func(call int) ([]schedule.RunSummary, error) {
		if call == 1 {
			return nil, errors.New("connection refused")
		}
		return runList(schedule.StatusSuccess), nil
	}}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	waitStopped(t, m)

	require.GreaterOrEqual(t, view.count(), 2)
	v := view.renders[0]
	require.Len(t, v, 1)
	assert.Contains(t, v[0].Text, "failed to fetch")
	assert.True(t, v[0].Error)
	assert.Equal(t, LaneOK, view.last()[0].Lane, "polling must recover after a transport failure")
}

func TestNewestRunChosenRegardlessOfListOrder(t *testing.T) {
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	history := &fakeHistory{runs: func(int) ([]schedule.RunSummary, error) {
		// Oldest-first on purpose: the monitor may not trust service order.
		return []schedule.RunSummary{
			{ID: "run-old", StartedAt: base, Status: schedule.StatusSuccess},
			{ID: "run-mid", StartedAt: base.Add(time.Hour), Status: schedule.StatusSuccess},
			{ID: "run-new", StartedAt: base.Add(2 * time.Hour), Status: schedule.StatusSuccess},
		}, nil
	}}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	waitStopped(t, m)

	require.NotEmpty(t, history.detailCalls())
	assert.Equal(t, "run-new", history.detailCalls()[0])
}

func TestLineSeverityIsIndependentOfLane(t *testing.T) {
	history := &fakeHistory{
		runs: func(call int) ([]schedule.RunSummary, error) {
			if call == 1 {
				return runList(schedule.StatusRunning), nil
			}
			return runList(schedule.StatusSuccess), nil
		},
		detail: func(runID string) (*schedule.RunDetail, error) {
			return &schedule.RunDetail{
				RunSummary: schedule.RunSummary{ID: runID, Status: schedule.StatusRunning},
				Logs:       []string{"[a] done", "[b] ERROR: no such file"},
			}, nil
		},
	}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	require.Eventually(t, func() bool { return view.count() >= 1 }, time.Second, time.Millisecond)
	m.Unwatch()

	lines := view.renders[0]
	require.Len(t, lines, 2)
	assert.Equal(t, LaneRun, lines[0].Lane)
	assert.False(t, lines[0].Error)
	assert.Equal(t, LaneRun, lines[1].Lane, "lane follows the record status even for error-severity lines")
	assert.True(t, lines[1].Error)
}

func TestUnwatchStopsPolling(t *testing.T) {
	history := &fakeHistory{
		runs: func(int) ([]schedule.RunSummary, error) { return runList(schedule.StatusRunning), nil },
		detail: func(runID string) (*schedule.RunDetail, error) {
			return &schedule.RunDetail{
				RunSummary: schedule.RunSummary{ID: runID, Status: schedule.StatusRunning},
				Logs:       []string{"[a] working"},
			}, nil
		},
	}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	require.Eventually(t, func() bool { return view.count() >= 2 }, time.Second, time.Millisecond)

	m.Unwatch()
	assert.False(t, m.Watching())

	settled := history.runsCallCount()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, history.runsCallCount(), settled+1, "at most the in-flight tick may complete after Unwatch")

	// A second Unwatch is harmless.
	m.Unwatch()
}

func TestWatchReplacesActiveWatch(t *testing.T) {
	history := &fakeHistory{
		runs: func(int) ([]schedule.RunSummary, error) { return runList(schedule.StatusRunning), nil },
		detail: func(runID string) (*schedule.RunDetail, error) {
			return &schedule.RunDetail{
				RunSummary: schedule.RunSummary{ID: runID, Status: schedule.StatusRunning},
			}, nil
		},
	}
	view := &viewRecorder{}
	m := newTestMonitor(history, view.render)

	m.Watch(context.Background(), "job-1")
	m.Watch(context.Background(), "job-2")
	assert.True(t, m.Watching())

	m.Unwatch()
	waitStopped(t, m)
}
