package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/nodestore"
)

// entry is everything recorded about one node.
type entry struct {
	status node.Status
	output any
	err    error
}

// Store is an in-memory nodestore.Store keyed by the node address string.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*entry
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{nodes: make(map[string]*entry)}
}

func (s *Store) update(id nodeid.Address, fn func(e *entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	e, ok := s.nodes[key]
	if !ok {
		e = &entry{status: node.StatusPending}
		s.nodes[key] = e
	}
	fn(e)
}

func (s *Store) lookup(id nodeid.Address) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[id.String()]
	if !ok {
		return entry{status: node.StatusPending}, false
	}
	return *e, true
}

// SetStatus updates the execution status of a node.
func (s *Store) SetStatus(_ context.Context, id nodeid.Address, status node.Status) error {
	s.update(id, func(e *entry) { e.status = status })
	return nil
}

// GetStatus returns StatusPending for nodes never touched.
func (s *Store) GetStatus(_ context.Context, id nodeid.Address) (node.Status, error) {
	e, _ := s.lookup(id)
	return e.status, nil
}

func (s *Store) SetOutput(_ context.Context, id nodeid.Address, output any) error {
	s.update(id, func(e *entry) { e.output = output })
	return nil
}

func (s *Store) GetOutput(_ context.Context, id nodeid.Address) (any, error) {
	e, _ := s.lookup(id)
	return e.output, nil
}

func (s *Store) SetError(_ context.Context, id nodeid.Address, nodeErr error) error {
	s.update(id, func(e *entry) { e.err = nodeErr })
	return nil
}

func (s *Store) GetError(_ context.Context, id nodeid.Address) (error, error) {
	e, _ := s.lookup(id)
	return e.err, nil
}
