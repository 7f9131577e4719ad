package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/deps"
	"github.com/vk/rnaflow/internal/engine"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/publish"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config

	run      config.RunConfig
	launcher launcher.Launcher
	builder  engine.Builder
	checker  *deps.Checker
	store    publish.Store
	status   *statusBoard

	httpServer *http.Server
}

// Option customizes an App, mostly for tests.
type Option func(*App)

// WithLauncher replaces the process launcher.
func WithLauncher(l launcher.Launcher) Option {
	return func(a *App) { a.launcher = l }
}

// WithBuilder replaces the execution engine.
func WithBuilder(b engine.Builder) Option {
	return func(a *App) { a.builder = b }
}

// WithPublishStore replaces the object store results are published to.
func WithPublishStore(s publish.Store) Option {
	return func(a *App) { a.store = s }
}

// NewApp builds an App with its own logger. For run and check it loads the
// run file through loader and applies the command-line overrides.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		config: appConfig,
		status: newStatusBoard(),
	}
	logger.Debug("Logger configured successfully.")

	if appConfig.Command != CommandScheduler {
		rc, err := loader.Load(a.ctx, appConfig.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if rc, err = applyOverrides(rc, appConfig); err != nil {
			return nil, err
		}
		a.run = rc
		logger.Debug("Run configuration loaded.", "path", appConfig.ConfigPath, "samples", len(rc.Samples()))
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.launcher == nil {
		a.launcher = launcher.NewExec(a.run.BinPaths()...)
	}
	if a.builder == nil {
		a.builder = engine.New()
	}
	a.checker = &deps.Checker{Launcher: a.launcher, Out: outW}
	return a, nil
}

// applyOverrides rebuilds rc with the command-line settings that override the
// run file.
func applyOverrides(rc config.RunConfig, c *Config) (config.RunConfig, error) {
	if c.Jobs == 0 && c.SchedulerURL == "" {
		return rc, nil
	}
	spec := rc.Spec()
	if c.Jobs > 0 {
		spec.Jobs = c.Jobs
	}
	if c.SchedulerURL != "" {
		spec.Scheduler = config.SchedulerDistributed
		spec.SchedulerURL = c.SchedulerURL
	}
	return config.New(spec)
}

// RunConfig returns the loaded run configuration.
func (a *App) RunConfig() config.RunConfig { return a.run }
