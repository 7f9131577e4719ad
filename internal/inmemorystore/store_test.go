package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("map_star.migun")

	status, err := s.GetStatus(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusPending, status)

	require.NoError(t, s.SetStatus(ctx, *addr, node.StatusRunning))

	status, err = s.GetStatus(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusRunning, status)
}

func TestSetAndGetOutputAndError(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("summarize_map")

	output, err := s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Nil(t, output)

	require.NoError(t, s.SetOutput(ctx, *addr, "ran"))
	output, err = s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, "ran", output)

	nodeErr, err := s.GetError(ctx, *addr)
	require.NoError(t, err)
	assert.Nil(t, nodeErr)

	want := errors.New("STAR exited with status 1")
	require.NoError(t, s.SetError(ctx, *addr, want))
	nodeErr, err = s.GetError(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, want, nodeErr)
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			addr := nodeid.MustParse(fmt.Sprintf("map.sample%d", i))
			s.SetStatus(ctx, *addr, node.StatusCompleted)
			s.SetOutput(ctx, *addr, i)
			s.SetError(ctx, *addr, fmt.Errorf("error for node %d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		addr := nodeid.MustParse(fmt.Sprintf("map.sample%d", i))

		status, err := s.GetStatus(ctx, *addr)
		assert.NoError(t, err)
		assert.Equal(t, node.StatusCompleted, status)

		output, err := s.GetOutput(ctx, *addr)
		assert.NoError(t, err)
		assert.Equal(t, i, output)

		nodeErr, err := s.GetError(ctx, *addr)
		assert.NoError(t, err)
		assert.EqualError(t, nodeErr, fmt.Sprintf("error for node %d", i))
	}
}
