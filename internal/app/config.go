package app

import (
	"errors"
	"fmt"
)

// Commands understood by the application.
const (
	CmdRun       = "run"
	CmdSchedule  = "schedule"
	CmdSchedules = "schedules"
	CmdPause     = "pause"
	CmdResume    = "resume"
	CmdRunNow    = "run-now"
	CmdDelete    = "delete"
	CmdWatch     = "watch"
)

// Config holds everything an App instance needs to run one command.
type Config struct {
	Command  string
	GridPath string // hcl file or directory, for run/schedule
	JobID    string // for the schedule job commands and watch

	ExecutorURL  string
	SchedulerURL string

	// Trigger fields for the schedule command.
	Mode    string
	RunAt   string // wall-clock input, resolved to an absolute instant later
	Hours   int
	Minutes int
	Seconds int
	Cron    string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CmdRun, CmdSchedule:
		if cfg.GridPath == "" {
			return nil, errors.New("a grid path is required")
		}
	case CmdSchedules:
		// No arguments beyond the service URLs.
	case CmdPause, CmdResume, CmdRunNow, CmdDelete, CmdWatch:
		if cfg.JobID == "" {
			return nil, errors.New("a job id is required")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.ExecutorURL == "" {
		return nil, errors.New("ExecutorURL is a required configuration field and cannot be empty")
	}
	if cfg.SchedulerURL == "" {
		return nil, errors.New("SchedulerURL is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
