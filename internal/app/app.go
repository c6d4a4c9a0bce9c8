// Package app assembles and drives the application: logger, session wiring,
// and the command dispatch for running, scheduling and watching pipelines.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pipecanvas/internal/executor"
	"github.com/vk/pipecanvas/internal/gridfile"
	"github.com/vk/pipecanvas/internal/monitor"
	"github.com/vk/pipecanvas/internal/runner"
	"github.com/vk/pipecanvas/internal/schedule"
	"github.com/vk/pipecanvas/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	session *session.Session
	loader  *gridfile.Loader
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and session.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{outW: outW, logger: logger, config: cfg}

	execClient := executor.NewHTTPClient(cfg.ExecutorURL)
	schedClient := schedule.NewClient(cfg.SchedulerURL)
	a.session = session.New(execClient, schedClient, runner.SinkFunc(a.printEntry), a.renderRunView)
	a.loader = gridfile.NewLoader(a.session.Catalog())
	logger.Debug("Session wired.", "executor", cfg.ExecutorURL, "scheduler", cfg.SchedulerURL)

	return a
}

// Session returns the app's session. This is primarily for testing.
func (a *App) Session() *session.Session {
	return a.session
}

// printEntry renders one pipeline run log entry to the output stream.
func (a *App) printEntry(e runner.Entry) {
	if e.OK {
		fmt.Fprintf(a.outW, "  [%s] %s\n", e.NodeID, e.Text)
		return
	}
	fmt.Fprintf(a.outW, "  [%s] ✗ %s\n", e.NodeID, e.Text)
}

// renderRunView prints a full re-render of the watched run's log view.
func (a *App) renderRunView(jobID string, lines []monitor.Line) {
	fmt.Fprintf(a.outW, "── %s ──\n", jobID)
	for _, line := range lines {
		marker := " "
		if line.Error {
			marker = "✗"
		}
		fmt.Fprintf(a.outW, "%s [%s] %s\n", marker, line.Lane, line.Text)
	}
}
