// Package task defines the unit of work submitted to the engine.
package task

import (
	"context"
	"os"
)

// Task is one schedulable unit: a stage applied to one sample, or a whole-run
// step such as compiling the updated annotation.
type Task interface {
	// ID is the node address of the task, e.g. `map_star.migun`.
	ID() string
	// Requires lists the tasks that must complete before this one runs.
	Requires() []Task
	// Outputs lists the files whose existence marks the task as complete.
	Outputs() []string
	// Run performs the work.
	Run(ctx context.Context) error
}

// Complete reports whether every declared output exists. A task that declares
// no outputs is never complete.
func Complete(t Task) bool {
	outs := t.Outputs()
	if len(outs) == 0 {
		return false
	}
	for _, p := range outs {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Func adapts a function into a Task. It is mostly useful in tests and for
// small glue steps.
type Func struct {
	Name    string
	Deps    []Task
	Targets []string
	Fn      func(ctx context.Context) error
}

func (f *Func) ID() string        { return f.Name }
func (f *Func) Requires() []Task  { return f.Deps }
func (f *Func) Outputs() []string { return f.Targets }

// Run calls Fn. A nil Fn does nothing.
func (f *Func) Run(ctx context.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}
