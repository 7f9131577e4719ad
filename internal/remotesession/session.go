// Package remotesession runs tasks in-process while coordinating ownership
// through a central scheduler, so several rnaflow processes can share one
// work directory without running the same task twice.
package remotesession

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/vk/rnaflow/internal/central"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/executor"
	"github.com/vk/rnaflow/internal/localexecutor"
	"github.com/vk/rnaflow/internal/localsession"
	"github.com/vk/rnaflow/internal/session"
	"github.com/vk/rnaflow/internal/task"
)

// SessionFactory implements session.SessionFactory against a central
// scheduler at URL.
type SessionFactory struct {
	URL string
	// Worker identifies this process to the scheduler. Defaults to
	// "<hostname>-<uuid>".
	Worker string
}

// NewSession dials the central scheduler and wires a claiming executor.
func (f *SessionFactory) NewSession(ctx context.Context, roots []task.Task, workers int) (session.Session, error) {
	worker := f.Worker
	if worker == "" {
		host, _ := os.Hostname()
		worker = fmt.Sprintf("%s-%s", host, uuid.NewString())
	}
	ctxlog.FromContext(ctx).Debug("remotesession.SessionFactory.NewSession called", "url", f.URL, "worker", worker)

	client, err := central.Dial(ctx, f.URL, worker)
	if err != nil {
		return nil, err
	}

	local := &localsession.SessionFactory{Options: []localexecutor.Option{localexecutor.WithClaimer(client)}}
	inner, err := local.NewSession(ctx, roots, workers)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &Session{inner: inner, client: client}, nil
}

// Session implements session.Session for centrally coordinated runs.
type Session struct {
	inner  session.Session
	client *central.Client
}

// GetExecutor returns the claiming executor.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.inner.GetExecutor()
}

// Close disconnects from the central scheduler.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Disconnecting from central scheduler.")
	s.client.Close()
	return s.inner.Close(ctx)
}
