package inmemorytopology

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/topologystore"
)

// adjacency maps a task key to the set of task keys it points at.
type adjacency map[string]map[string]struct{}

func (a adjacency) link(from, to string) {
	if a[from] == nil {
		a[from] = make(map[string]struct{})
	}
	a[from][to] = struct{}{}
}

func (a adjacency) sorted(key string) []string {
	out := make([]string, 0, len(a[key]))
	for k := range a[key] {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Store keeps the task graph of a single build in memory.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*node.Node
	upstream adjacency // task -> tasks whose outputs it consumes
	waiters  adjacency // task -> tasks blocked on it
}

// New returns an empty topology.
func New() topologystore.Store {
	return &Store{
		tasks:    make(map[string]*node.Node),
		upstream: make(adjacency),
		waiters:  make(adjacency),
	}
}

func (s *Store) AddNode(_ context.Context, n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := n.ID.String()
	if _, ok := s.tasks[key]; !ok {
		s.tasks[key] = n
	}
	return nil
}

func (s *Store) AddDependency(_ context.Context, from, to nodeid.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []nodeid.Address{from, to} {
		if _, ok := s.tasks[id.String()]; !ok {
			return fmt.Errorf("task %q is not part of the graph", id.String())
		}
	}
	s.upstream.link(to.String(), from.String())
	s.waiters.link(from.String(), to.String())
	return nil
}

func (s *Store) GetNode(_ context.Context, id nodeid.Address) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.tasks[id.String()]
	return n, ok
}

func (s *Store) AllNodes(_ context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*node.Node, len(keys))
	for i, k := range keys {
		out[i] = s.tasks[k]
	}
	return out
}

func (s *Store) DependenciesOf(_ context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.neighbours(id, s.upstream)
}

func (s *Store) DependentsOf(_ context.Context, id nodeid.Address) ([]nodeid.Address, error) {
	return s.neighbours(id, s.waiters)
}

func (s *Store) neighbours(id nodeid.Address, adj adjacency) ([]nodeid.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := id.String()
	if _, ok := s.tasks[key]; !ok {
		return nil, fmt.Errorf("task %q is not part of the graph", key)
	}
	keys := adj.sorted(key)
	out := make([]nodeid.Address, len(keys))
	for i, k := range keys {
		out[i] = s.tasks[k].ID
	}
	return out, nil
}
