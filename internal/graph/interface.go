package graph

import (
	"context"

	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
)

// Graph is a unified interface for interacting with the execution DAG.
//
// Implementations MUST be thread-safe: workers update and query it in parallel.
type Graph interface {
	// Node retrieves a node by its address.
	Node(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// DependenciesOf returns the nodes the given node directly depends on.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// DependentsOf returns the nodes that directly depend on the given node.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error)

	// NodeStatus returns the current status of a node.
	NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool)

	// AllNodes returns every node in the topology, sorted by ID.
	AllNodes(ctx context.Context) []*node.Node

	// MarkRunning transitions a node Pending → Running.
	MarkRunning(ctx context.Context, id nodeid.Address) error

	// MarkCompleted transitions a node to Completed and records its output.
	MarkCompleted(ctx context.Context, id nodeid.Address, output any) error

	// MarkFailed transitions a node Running → Failed and records the error.
	MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error

	// MarkSkipped transitions a node Pending → Skipped and records why.
	MarkSkipped(ctx context.Context, id nodeid.Address, reason error) error

	// ErrorOf returns the error recorded for a failed or skipped node.
	ErrorOf(ctx context.Context, id nodeid.Address) error

	// OutputOf returns the output recorded for a completed node.
	OutputOf(ctx context.Context, id nodeid.Address) any
}
