package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/rnaflow/internal/app"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
	ExitMissing = 3
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

const usage = `
rnaflow - RNA-seq analysis pipeline.

Usage:
  rnaflow [run] [options] RUN_FILE
  rnaflow check [options] RUN_FILE
  rnaflow scheduler [options]

Commands:
  run        Run the pipeline described by RUN_FILE (default).
  check      Report every missing tool and R package, then exit.
  scheduler  Serve the central scheduler for distributed runs.

Options:
`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	command := app.CommandRun
	if len(args) > 0 {
		switch args[0] {
		case app.CommandRun, app.CommandCheck, app.CommandScheduler:
			command = args[0]
			args = args[1:]
		}
	}
	slog.Debug("CLI parser started.", "command", command)

	flagSet := flag.NewFlagSet("rnaflow "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the HCL run file.")
	cFlag := flagSet.String("c", "", "Path to the HCL run file (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	jobsFlag := flagSet.Int("jobs", 0, "Number of tasks run at once by parallel stages. 0 keeps the run file's value.")
	stagesFlag := flagSet.String("stages", "", "Comma-separated stages to run, e.g. 'create_db,map_reads'. Empty runs the whole plan.")
	schedulerURLFlag := flagSet.String("scheduler-url", "", "Central scheduler URL. Enables distributed execution.")
	addrFlag := flagSet.String("addr", app.DefaultSchedulerAddr, "Listen address of the central scheduler.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" && command != app.CommandScheduler {
		slog.Debug("No run file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		Command:         command,
		ConfigPath:      path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Jobs:            *jobsFlag,
		Stages:          *stagesFlag,
		SchedulerURL:    *schedulerURLFlag,
		Addr:            *addrFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
