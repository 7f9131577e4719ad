// Package session defines the interfaces for creating and managing an
// execution session. It hides whether tasks are coordinated locally or
// through a central scheduler.
package session

import (
	"context"

	"github.com/vk/rnaflow/internal/executor"
	"github.com/vk/rnaflow/internal/task"
)

// SessionFactory creates an execution Session for a set of root tasks.
type SessionFactory interface {
	NewSession(ctx context.Context, roots []task.Task, workers int) (Session, error)
}

// Session represents a single build and manages its lifecycle.
type Session interface {
	GetExecutor() (executor.Executor, error)
	// Close releases any resources held by the session.
	Close(ctx context.Context) error
}
