package builder

import (
	"context"
	"fmt"

	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/task"
	"github.com/vk/rnaflow/internal/topologystore"
)

type discovered struct {
	node *node.Node
	deps []string
}

// Populate adds every task reachable from roots to the topology store and
// returns the number of nodes created.
func Populate(ctx context.Context, ts topologystore.Store, roots []task.Task) (int, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Populate: starting graph construction.", "roots", len(roots))

	found := make(map[string]*discovered)
	var order []string
	visiting := make(map[string]bool)

	var visit func(t task.Task) error
	visit = func(t task.Task) error {
		id := t.ID()
		if visiting[id] {
			return fmt.Errorf("cycle detected involving '%s'", id)
		}
		if _, ok := found[id]; ok {
			return nil
		}
		addr, err := nodeid.Parse(id)
		if err != nil {
			return fmt.Errorf("task %q has an invalid id: %w", id, err)
		}

		d := &discovered{node: node.New(*addr, t)}
		if task.Complete(t) {
			// Upstream of finished work is never expanded.
			found[id] = d
			order = append(order, id)
			return nil
		}

		visiting[id] = true
		for _, req := range t.Requires() {
			if err := visit(req); err != nil {
				return err
			}
			d.deps = append(d.deps, req.ID())
		}
		delete(visiting, id)

		found[id] = d
		order = append(order, id)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return 0, fmt.Errorf("error validating dependency graph: %w", err)
		}
	}
	logger.Debug("Populate: node discovery complete.", "node_count", len(order))

	for _, id := range order {
		if err := ts.AddNode(ctx, found[id].node); err != nil {
			return 0, err
		}
	}

	for _, id := range order {
		d := found[id]
		seen := make(map[string]struct{}, len(d.deps))
		for _, dep := range d.deps {
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			if err := ts.AddDependency(ctx, found[dep].node.ID, d.node.ID); err != nil {
				return 0, err
			}
		}
		d.node.SetDepCount(int32(len(seen)))
	}
	logger.Debug("Populate: graph construction successful.")

	return len(order), nil
}
