package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/rnaflow/internal/central"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/deps"
	"github.com/vk/rnaflow/internal/manifest"
	"github.com/vk/rnaflow/internal/pipeline"
	"github.com/vk/rnaflow/internal/publish"
	"github.com/vk/rnaflow/internal/tasks"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer a.closeHealthCheckServer()
	}

	switch a.config.Command {
	case CommandCheck:
		return a.check(ctx)
	case CommandScheduler:
		return a.scheduler(ctx)
	}
	return a.pipeline(ctx)
}

func (a *App) checkDeps(ctx context.Context) error {
	if err := a.checker.CheckAll(ctx, deps.RequirementsFor(a.run)); err != nil {
		a.checker.Report(err)
		return err
	}
	return nil
}

func (a *App) check(ctx context.Context) error {
	if err := a.checkDeps(ctx); err != nil {
		return err
	}
	a.logger.Info("✅ All dependencies are installed.")
	return nil
}

func (a *App) scheduler(ctx context.Context) error {
	srv := central.NewServer(ctx, central.NewLedger())
	return srv.ListenAndServe(ctx, a.config.Addr)
}

func (a *App) pipeline(ctx context.Context) error {
	if err := a.checkDeps(ctx); err != nil {
		return err
	}
	if a.run.HasExpDesign() {
		if _, err := tasks.LoadDesign(a.run.ExpDesign(), a.run.SampleNames()); err != nil {
			return fmt.Errorf("invalid experimental design: %w", err)
		}
	}
	stages, err := pipeline.ParseStages(a.config.Stages)
	if err != nil {
		return err
	}

	rec := manifest.NewRecorder(a.run)
	a.status.setRunID(rec.RunID())
	driver := pipeline.New(a.run, a.launcher, a.builder,
		pipeline.WithObserver(rec),
		pipeline.WithObserver(a.status),
	)

	a.logger.Info("🚀 Starting run.",
		"run_id", rec.RunID(),
		"aligner", a.run.Aligner().String(),
		"kingdom", a.run.Kingdom().String(),
		"samples", len(a.run.Samples()),
		"jobs", a.run.Jobs(),
	)
	start := time.Now()

	runErr := driver.RunPlan(ctx, stages...)
	if err := rec.Finish(); err != nil {
		a.logger.Warn("Failed to write run manifest.", "path", rec.Path(), "error", err)
	}
	if runErr != nil {
		return runErr
	}

	if err := a.publish(ctx, rec.RunID()); err != nil {
		return err
	}
	a.logger.Info("🏁 Run finished.", "run_id", rec.RunID(), "duration", time.Since(start))
	return nil
}

func (a *App) publish(ctx context.Context, runID string) error {
	target := a.run.Publish()
	if target == nil {
		return nil
	}
	p := &publish.Publisher{Store: a.store, Target: *target}
	if p.Store == nil {
		store, err := publish.NewMinioStore(*target)
		if err != nil {
			return err
		}
		p.Store = store
	}
	if _, err := p.Publish(ctx, a.run, runID); err != nil {
		return fmt.Errorf("publishing results: %w", err)
	}
	return nil
}
