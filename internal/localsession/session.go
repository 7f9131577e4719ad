// Package localsession provides the session.Session and
// session.SessionFactory implementations for in-process execution.
package localsession

import (
	"context"
	"fmt"

	"github.com/vk/rnaflow/internal/builder"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/executor"
	"github.com/vk/rnaflow/internal/graph"
	"github.com/vk/rnaflow/internal/inmemorystore"
	"github.com/vk/rnaflow/internal/inmemorytopology"
	"github.com/vk/rnaflow/internal/localexecutor"
	"github.com/vk/rnaflow/internal/scheduler"
	"github.com/vk/rnaflow/internal/session"
	"github.com/vk/rnaflow/internal/task"
)

// SessionFactory implements session.SessionFactory for local runs. Options
// are passed through to every executor it creates.
type SessionFactory struct {
	Options []localexecutor.Option
}

// NewSession builds the task graph and wires a local executor over it.
func (f *SessionFactory) NewSession(ctx context.Context, roots []task.Task, workers int) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.SessionFactory.NewSession called", "roots", len(roots), "workers", workers)

	topoStore := inmemorytopology.New()
	nodeStore := inmemorystore.New()
	count, err := builder.Populate(ctx, topoStore, roots)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}
	logger.Debug("Task graph built.", "nodes", count)

	g := graph.New(topoStore, nodeStore)
	sched := scheduler.New(ctx, g)
	exec := localexecutor.New(sched, g, workers, f.Options...)

	return &Session{executor: exec}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	executor executor.Executor
}

// GetExecutor returns the executor wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Close is a no-op for local sessions.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("localsession.Session.Close called")
	return nil
}
