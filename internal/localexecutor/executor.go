// Package localexecutor provides the in-process implementation of
// executor.Executor: a fixed pool of workers consuming the scheduler's ready
// nodes.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/executor"
	"github.com/vk/rnaflow/internal/graph"
	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/scheduler"
	"github.com/vk/rnaflow/internal/task"
)

// Executor implements executor.Executor for local execution.
type Executor struct {
	sched      scheduler.Scheduler
	g          graph.Graph
	numWorkers int
	claimer    executor.Claimer
}

// Option configures an Executor.
type Option func(*Executor)

// WithClaimer makes every task acquire ownership before it runs.
func WithClaimer(c executor.Claimer) Option {
	return func(e *Executor) { e.claimer = c }
}

// New creates a new local executor. numWorkers below 1 is treated as 1.
func New(sched scheduler.Scheduler, g graph.Graph, numWorkers int, opts ...Option) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &Executor{sched: sched, g: g, numWorkers: numWorkers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the graph and returns the root-cause error if any node failed.
// A failure does not stop independent branches: their outputs stay on disk
// and are reused by the next build.
func (e *Executor) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var wg sync.WaitGroup
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	logger.Debug("All workers finished.")

	var failedNodes []string
	var rootCauseError error
	for _, n := range e.g.AllNodes(ctx) {
		status, _ := e.g.NodeStatus(ctx, n.ID)
		if status != node.StatusFailed {
			continue
		}
		nodeErr := e.g.ErrorOf(ctx, n.ID)
		logger.Error("Node failed execution.", "nodeID", n.ID.String(), "error", nodeErr)
		failedNodes = append(failedNodes, n.ID.String())
		// Cancellation is a symptom; prefer a real tool failure as the cause.
		if rootCauseError == nil || (errors.Is(rootCauseError, context.Canceled) && !errors.Is(nodeErr, context.Canceled)) {
			rootCauseError = nodeErr
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range e.sched.ReadyNodes() {
		workerLogger := logger.With("workerID", workerID, "task", n.ID.String())

		if ctx.Err() != nil {
			workerLogger.Warn("Context canceled, not starting task.")
			e.sched.Fail(ctx, n, ctx.Err())
			continue
		}

		outcome, err := e.runNode(ctxlog.WithLogger(ctx, workerLogger), n)
		if err != nil {
			workerLogger.Error("Task failed.", "error", err)
			e.sched.Fail(ctx, n, err)
			continue
		}
		e.sched.Complete(ctx, n, outcome)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (e *Executor) runNode(ctx context.Context, n *node.Node) (executor.Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	if task.Complete(n.Task) {
		logger.Info("⏭️ Task already complete")
		return executor.UpToDate, nil
	}

	if e.claimer != nil {
		grant, err := e.claimer.Acquire(ctx, n.Task.ID())
		if err != nil {
			return "", fmt.Errorf("claiming %s: %w", n.Task.ID(), err)
		}
		if grant == executor.AlreadyDone {
			logger.Info("⏭️ Task completed by another worker")
			return executor.DoneElsewhere, nil
		}
	}

	if err := e.g.MarkRunning(ctx, n.ID); err != nil {
		return "", err
	}
	logger.Info("▶️ Starting task")
	runErr := n.Task.Run(ctx)

	if e.claimer != nil {
		if err := e.claimer.Release(ctx, n.Task.ID(), runErr); err != nil {
			logger.Warn("Failed to report task outcome to central scheduler.", "error", err)
		}
	}
	if runErr != nil {
		return "", runErr
	}
	logger.Info("✅ Finished task")
	return executor.Ran, nil
}
