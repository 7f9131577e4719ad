package scheduler

import (
	"context"

	"github.com/vk/rnaflow/internal/node"
)

// Scheduler analyzes the dependency graph and node state to determine which
// nodes are ready for execution.
//
// The executor consumes ReadyNodes() and reports every outcome through
// Complete or Fail:
//
//	for n := range sched.ReadyNodes() {
//	    if err := run(n); err != nil {
//	        sched.Fail(ctx, n, err)
//	        continue
//	    }
//	    sched.Complete(ctx, n, outcome)
//	}
type Scheduler interface {
	// ReadyNodes streams nodes whose dependencies have all completed. The
	// channel is closed once every node is Completed, Failed, or Skipped.
	ReadyNodes() <-chan *node.Node

	// Complete marks n as Completed and releases its dependents.
	Complete(ctx context.Context, n *node.Node, output any)

	// Fail marks n as Failed and skips everything downstream of it.
	Fail(ctx context.Context, n *node.Node, err error)
}
