// Package executor defines the interfaces of the DAG execution engine.
package executor

import "context"

// Executor runs a populated graph to completion.
type Executor interface {
	Execute(ctx context.Context) error
}

// Outcome records how a completed node reached the Completed state.
type Outcome string

const (
	// Ran means the task was executed in this build.
	Ran Outcome = "ran"
	// UpToDate means the task's outputs already existed.
	UpToDate Outcome = "up-to-date"
	// DoneElsewhere means another worker completed the task.
	DoneElsewhere Outcome = "done-elsewhere"
)

// Grant is the answer to a claim.
type Grant int

const (
	// Granted means the caller owns the task and must run it.
	Granted Grant = iota
	// AlreadyDone means another worker finished the task.
	AlreadyDone
)

// Claimer coordinates task ownership across processes. Acquire blocks until
// the caller owns the task or the task has been completed by someone else.
// Release reports the outcome; a nil error marks the task done.
type Claimer interface {
	Acquire(ctx context.Context, taskID string) (Grant, error)
	Release(ctx context.Context, taskID string, runErr error) error
}
