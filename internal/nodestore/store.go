// Package nodestore defines the interface for the mutable execution state of
// nodes during a build: status, outcome, and error.
//
// Nodes move Pending → Running → Completed | Failed, or Pending → Skipped when
// an upstream node fails. Nodes whose outputs already exist go straight from
// Pending to Completed.
package nodestore

import (
	"context"

	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
)

// Store manages the mutable execution state of nodes.
//
// Implementations MUST be safe for concurrent use; workers update state for
// different nodes in parallel.
type Store interface {
	// SetStatus updates the execution status of a node.
	SetStatus(ctx context.Context, id nodeid.Address, status node.Status) error

	// GetStatus returns the status of a node, StatusPending if never set.
	GetStatus(ctx context.Context, id nodeid.Address) (node.Status, error)

	// SetOutput records what a completed node produced. The executor stores an
	// Outcome describing whether the task ran or was already complete.
	SetOutput(ctx context.Context, id nodeid.Address, output any) error

	// GetOutput returns the recorded output, or nil.
	GetOutput(ctx context.Context, id nodeid.Address) (any, error)

	// SetError records the failure of a node.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns the recorded failure, or nil.
	GetError(ctx context.Context, id nodeid.Address) (error, error)
}
