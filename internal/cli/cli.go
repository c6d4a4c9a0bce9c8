package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/pipecanvas/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageText = `
PipeCanvas - run, schedule and watch node pipelines against an executor service.

Usage:
  pipecanvas <command> [options]

Commands:
  run        Execute a grid file's pipeline immediately.
  schedule   Bind a grid file's pipeline to a once/interval/cron trigger.
  schedules  List the scheduler's jobs.
  pause      Pause a scheduled job.
  resume     Resume a paused job.
  run-now    Trigger an immediate run of a scheduled job.
  delete     Delete a scheduled job.
  watch      Follow the latest run of a job until it finishes.

Options:
`

// Parse processes command-line arguments. It returns a populated app config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pipecanvas", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	jobFlag := flagSet.String("job", "", "Schedule job id, for the job commands and watch.")
	executorFlag := flagSet.String("executor", "http://localhost:8000", "Base URL of the node executor service.")
	schedulerFlag := flagSet.String("scheduler", "http://localhost:8000", "Base URL of the scheduler service.")
	modeFlag := flagSet.String("mode", "once", "Schedule trigger mode. Options: 'once', 'interval' or 'cron'.")
	atFlag := flagSet.String("at", "", "Run time for once mode. RFC 3339 or 'YYYY-MM-DD HH:MM' local time.")
	hoursFlag := flagSet.Int("hours", 0, "Interval hours component.")
	minutesFlag := flagSet.Int("minutes", 0, "Interval minutes component.")
	secondsFlag := flagSet.Int("seconds", 0, "Interval seconds component.")
	cronFlag := flagSet.String("cron", "", "Cron expression for cron mode.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	command := args[0]
	if command == "-h" || command == "--help" || command == "help" {
		flagSet.Usage()
		return nil, true, nil
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	jobID := *jobFlag
	if jobID == "" && flagSet.NArg() > 0 {
		jobID = flagSet.Arg(0)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:      command,
		GridPath:     path,
		JobID:        jobID,
		ExecutorURL:  *executorFlag,
		SchedulerURL: *schedulerFlag,
		Mode:         strings.ToLower(*modeFlag),
		RunAt:        *atFlag,
		Hours:        *hoursFlag,
		Minutes:      *minutesFlag,
		Seconds:      *secondsFlag,
		Cron:         *cronFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
