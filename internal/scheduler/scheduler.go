package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/graph"
	"github.com/vk/rnaflow/internal/node"
)

// DefaultScheduler is the reference implementation of Scheduler. It relies on
// each node's dependency counter, which the builder initializes.
type DefaultScheduler struct {
	g         graph.Graph
	ready     chan *node.Node
	remaining atomic.Int64
	closeOnce sync.Once
}

// New creates a scheduler for g and queues all root nodes. The graph must be
// fully populated before New is called.
func New(ctx context.Context, g graph.Graph) *DefaultScheduler {
	logger := ctxlog.FromContext(ctx)
	nodes := g.AllNodes(ctx)

	s := &DefaultScheduler{
		g: g,
		// Every node is sent at most once, so sends never block.
		ready: make(chan *node.Node, len(nodes)),
	}
	s.remaining.Store(int64(len(nodes)))

	if len(nodes) == 0 {
		s.close()
		return s
	}

	roots := 0
	for _, n := range nodes {
		if n.DepCount() == 0 {
			logger.Debug("Found root node.", "nodeID", n.ID.String())
			s.ready <- n
			roots++
		}
	}
	logger.Debug("Found all root nodes.", "count", roots)
	return s
}

// ReadyNodes implements the Scheduler interface.
func (s *DefaultScheduler) ReadyNodes() <-chan *node.Node {
	return s.ready
}

// Complete implements the Scheduler interface.
func (s *DefaultScheduler) Complete(ctx context.Context, n *node.Node, output any) {
	logger := ctxlog.FromContext(ctx)
	if !n.Settle(func() { s.g.MarkCompleted(ctx, n.ID, output) }) {
		return
	}

	dependents, err := s.g.DependentsOf(ctx, n.ID)
	if err != nil {
		logger.Error("Failed to resolve dependents.", "nodeID", n.ID.String(), "error", err)
	}
	for _, dependent := range dependents {
		if dependent.DecrementDepCount() == 0 {
			logger.Debug("Unlocking dependent node.", "dependentID", dependent.ID.String())
			s.ready <- dependent
		}
	}
	s.finish()
}

// Fail implements the Scheduler interface.
func (s *DefaultScheduler) Fail(ctx context.Context, n *node.Node, err error) {
	if !n.Settle(func() { s.g.MarkFailed(ctx, n.ID, err) }) {
		return
	}
	s.skipDependents(ctx, n)
	s.finish()
}

// skipDependents recursively marks all downstream nodes as skipped.
func (s *DefaultScheduler) skipDependents(ctx context.Context, failed *node.Node) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := s.g.DependentsOf(ctx, failed.ID)
	if err != nil {
		logger.Error("Failed to resolve dependents.", "nodeID", failed.ID.String(), "error", err)
		return
	}
	for _, dependent := range dependents {
		reason := fmt.Errorf("skipped due to upstream failure of '%s'", failed.ID.String())
		skipped := dependent.Settle(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.ID.String(), "dependency", failed.ID.String())
			s.g.MarkSkipped(ctx, dependent.ID, reason)
		})
		if skipped {
			s.skipDependents(ctx, dependent)
			s.finish()
		}
	}
}

func (s *DefaultScheduler) finish() {
	if s.remaining.Add(-1) == 0 {
		s.close()
	}
}

func (s *DefaultScheduler) close() {
	s.closeOnce.Do(func() { close(s.ready) })
}
