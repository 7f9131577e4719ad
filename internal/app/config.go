package app

import (
	"errors"
	"fmt"
)

// Commands understood by App.Run.
const (
	CommandRun       = "run"
	CommandCheck     = "check"
	CommandScheduler = "scheduler"
)

// DefaultSchedulerAddr is where `rnaflow scheduler` listens by default.
const DefaultSchedulerAddr = ":8082"

// Config holds the process-level settings of one invocation.
type Config struct {
	Command    string
	ConfigPath string // HCL run file

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Overrides of the run file. Zero values leave the file's settings.
	Jobs         int
	Stages       string
	SchedulerURL string

	// Addr is the scheduler listen address.
	Addr string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandRun
	}
	switch cfg.Command {
	case CommandRun, CommandCheck:
		if cfg.ConfigPath == "" {
			return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
		}
	case CommandScheduler:
		if cfg.Addr == "" {
			cfg.Addr = DefaultSchedulerAddr
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d out of range", cfg.HealthcheckPort)
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	return &cfg, nil
}
