package node

import (
	"sync"
	"sync/atomic"

	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/task"
)

// Status is the execution state of a node, kept in the node store.
type Status int

const (
	// StatusPending means the node waits for its dependencies.
	StatusPending Status = iota
	// StatusRunning means a worker is executing the node.
	StatusRunning
	// StatusCompleted means the node finished successfully, or its outputs
	// already existed.
	StatusCompleted
	// StatusFailed means the task returned an error.
	StatusFailed
	// StatusSkipped means an upstream node failed.
	StatusSkipped
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Node is a single vertex in the execution graph wrapping one task.
type Node struct {
	// ID is the structured identifier of the node.
	ID nodeid.Address
	// Task is the work to perform.
	Task task.Task

	// depCount is the number of dependencies not yet completed.
	depCount atomic.Int32
	// settleOnce guarantees a node reaches a terminal state exactly once.
	settleOnce sync.Once
}

// New wraps a task into a node.
func New(id nodeid.Address, t task.Task) *Node {
	return &Node{ID: id, Task: t}
}

// SetDepCount sets the number of unmet dependencies.
func (n *Node) SetDepCount(count int32) {
	n.depCount.Store(count)
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// Settle runs f exactly once per node and reports whether this call ran it.
func (n *Node) Settle(f func()) bool {
	var ran bool
	n.settleOnce.Do(func() {
		f()
		ran = true
	})
	return ran
}
