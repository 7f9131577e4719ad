// Package topologystore defines the interface for storing and retrieving the
// static structure of the task graph.
//
// The topology holds which tasks exist and which task waits on which. It is
// populated once by the builder before a build starts and is read-only while
// workers run. Mutable execution state lives in nodestore.
package topologystore

import (
	"context"

	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
)

// Store manages the static topology of a directed acyclic graph.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// AddNode registers a node. Adding the same ID twice is a no-op.
	AddNode(ctx context.Context, n *node.Node) error

	// AddDependency records that 'to' depends on 'from', so 'from' must
	// complete before 'to' can start. Both nodes must already exist.
	AddDependency(ctx context.Context, from, to nodeid.Address) error

	// GetNode retrieves a single node by its address.
	GetNode(ctx context.Context, id nodeid.Address) (*node.Node, bool)

	// AllNodes returns every node, sorted by ID.
	AllNodes(ctx context.Context) []*node.Node

	// DependenciesOf returns the nodes that id directly depends on.
	DependenciesOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)

	// DependentsOf returns the nodes that directly depend on id.
	DependentsOf(ctx context.Context, id nodeid.Address) ([]nodeid.Address, error)
}
