package graph

import (
	"context"
	"fmt"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/nodestore"
	"github.com/vk/rnaflow/internal/topologystore"
)

// Manager composes a topology store and a node store into a Graph.
type Manager struct {
	topology topologystore.Store
	state    nodestore.Store
}

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) *Manager {
	return &Manager{topology: ts, state: ns}
}

// Topology exposes the underlying topology store for population by the builder.
func (m *Manager) Topology() topologystore.Store {
	return m.topology
}

func (m *Manager) Node(ctx context.Context, id nodeid.Address) (*node.Node, bool) {
	return m.topology.GetNode(ctx, id)
}

func (m *Manager) DependenciesOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependenciesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) DependentsOf(ctx context.Context, id nodeid.Address) ([]*node.Node, error) {
	ids, err := m.topology.DependentsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(ctx, ids)
}

func (m *Manager) resolve(ctx context.Context, ids []nodeid.Address) ([]*node.Node, error) {
	nodes := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := m.topology.GetNode(ctx, id)
		if !ok {
			return nil, fmt.Errorf("node '%s' not found in topology", id.String())
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (m *Manager) NodeStatus(ctx context.Context, id nodeid.Address) (node.Status, bool) {
	if _, ok := m.topology.GetNode(ctx, id); !ok {
		return node.StatusPending, false
	}
	status, err := m.state.GetStatus(ctx, id)
	if err != nil {
		return node.StatusPending, false
	}
	return status, true
}

func (m *Manager) AllNodes(ctx context.Context) []*node.Node {
	return m.topology.AllNodes(ctx)
}

func (m *Manager) MarkRunning(ctx context.Context, id nodeid.Address) error {
	ctxlog.FromContext(ctx).Debug("Node running.", "nodeID", id.String())
	return m.state.SetStatus(ctx, id, node.StatusRunning)
}

func (m *Manager) MarkCompleted(ctx context.Context, id nodeid.Address, output any) error {
	if err := m.state.SetOutput(ctx, id, output); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, node.StatusCompleted)
}

func (m *Manager) MarkFailed(ctx context.Context, id nodeid.Address, nodeErr error) error {
	if err := m.state.SetError(ctx, id, nodeErr); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, node.StatusFailed)
}

func (m *Manager) MarkSkipped(ctx context.Context, id nodeid.Address, reason error) error {
	if err := m.state.SetError(ctx, id, reason); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, node.StatusSkipped)
}

// ErrorOf returns the error recorded for a node, if any.
func (m *Manager) ErrorOf(ctx context.Context, id nodeid.Address) error {
	err, _ := m.state.GetError(ctx, id)
	return err
}

// OutputOf returns the output recorded for a node, if any.
func (m *Manager) OutputOf(ctx context.Context, id nodeid.Address) any {
	out, _ := m.state.GetOutput(ctx, id)
	return out
}
