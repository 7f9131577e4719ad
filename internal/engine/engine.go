package engine

import (
	"context"
	"fmt"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/localsession"
	"github.com/vk/rnaflow/internal/remotesession"
	"github.com/vk/rnaflow/internal/session"
	"github.com/vk/rnaflow/internal/task"
)

// Builder runs a set of root tasks to completion.
type Builder interface {
	Build(ctx context.Context, roots []task.Task, opts Options) error
}

// Options controls a single build.
type Options struct {
	// Workers is the number of tasks allowed to run at once.
	Workers int
	// SchedulerURL selects centrally coordinated execution when non-empty.
	SchedulerURL string
}

// Engine implements Builder on top of session factories.
type Engine struct {
	Local  session.SessionFactory
	Remote func(url string) session.SessionFactory
}

// New returns an Engine using the in-process and central scheduler backends.
func New() *Engine {
	return &Engine{
		Local: &localsession.SessionFactory{},
		Remote: func(url string) session.SessionFactory {
			return &remotesession.SessionFactory{URL: url}
		},
	}
}

// Build runs roots and their dependencies.
func (e *Engine) Build(ctx context.Context, roots []task.Task, opts Options) error {
	logger := ctxlog.FromContext(ctx)
	if len(roots) == 0 {
		logger.Debug("Nothing to build.")
		return nil
	}

	factory := e.Local
	if opts.SchedulerURL != "" {
		factory = e.Remote(opts.SchedulerURL)
	}

	sess, err := factory.NewSession(ctx, roots, opts.Workers)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Warn("Failed to close session.", "error", err)
		}
	}()

	exec, err := sess.GetExecutor()
	if err != nil {
		return fmt.Errorf("failed to get executor: %w", err)
	}
	return exec.Execute(ctx)
}
