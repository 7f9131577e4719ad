package localexecutor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rnaflow/internal/builder"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/executor"
	"github.com/vk/rnaflow/internal/graph"
	"github.com/vk/rnaflow/internal/inmemorystore"
	"github.com/vk/rnaflow/internal/inmemorytopology"
	"github.com/vk/rnaflow/internal/node"
	"github.com/vk/rnaflow/internal/nodeid"
	"github.com/vk/rnaflow/internal/scheduler"
	"github.com/vk/rnaflow/internal/task"
	"github.com/vk/rnaflow/internal/testutil"
)

func run(t *testing.T, ctx context.Context, workers int, opts []Option, roots ...task.Task) (*graph.Manager, error) {
	t.Helper()
	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	_, err := builder.Populate(ctx, g.Topology(), roots)
	require.NoError(t, err)
	return g, New(scheduler.New(ctx, g), g, workers, opts...).Execute(ctx)
}

func TestExecute_FanOutFanIn(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	index := &task.Func{Name: "index", Fn: record("index")}
	var maps []task.Task
	for _, s := range []string{"a", "b", "c"} {
		maps = append(maps, &task.Func{Name: "map." + s, Deps: []task.Task{index}, Fn: record("map." + s)})
	}
	summary := &task.Func{Name: "summary", Deps: maps, Fn: record("summary")}

	_, err := run(t, ctx, 3, nil, summary)
	require.NoError(t, err)
	require.Len(t, order, 5)
	assert.Equal(t, "index", order[0])
	assert.Equal(t, "summary", order[4])
}

func TestExecute_SkipsTasksWithExistingOutputs(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	done := filepath.Join(dir, "a.bam")
	require.NoError(t, os.WriteFile(done, []byte("bam"), 0644))

	var runs atomic.Int32
	count := func(context.Context) error { runs.Add(1); return nil }
	mapA := &task.Func{Name: "map.a", Targets: []string{done}, Fn: count}
	mapB := &task.Func{Name: "map.b", Targets: []string{filepath.Join(dir, "b.bam")}, Fn: count}

	g, err := run(t, ctx, 2, nil, mapA, mapB)
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, executor.UpToDate, g.OutputOf(ctx, *nodeid.MustParse("map.a")))
	assert.Equal(t, executor.Ran, g.OutputOf(ctx, *nodeid.MustParse("map.b")))
}

func TestExecute_FailureKeepsIndependentBranches(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())

	var ranB atomic.Bool
	bad := &task.Func{Name: "map.a", Fn: func(context.Context) error { return errors.New("STAR exited with status 1") }}
	good := &task.Func{Name: "map.b", Fn: func(context.Context) error { ranB.Store(true); return nil }}
	downstream := &task.Func{Name: "summary", Deps: []task.Task{bad, good}}

	g, err := run(t, ctx, 1, nil, downstream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed for map.a")
	assert.Contains(t, err.Error(), "STAR exited with status 1")
	assert.True(t, ranB.Load())

	status, _ := g.NodeStatus(ctx, *nodeid.MustParse("summary"))
	assert.Equal(t, node.StatusSkipped, status)
}

type fakeClaimer struct {
	mu       sync.Mutex
	done     map[string]bool
	released map[string]error
}

func (f *fakeClaimer) Acquire(ctx context.Context, id string) (executor.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done[id] {
		return executor.AlreadyDone, nil
	}
	return executor.Granted, nil
}

func (f *fakeClaimer) Release(ctx context.Context, id string, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[id] = runErr
	return nil
}

func TestExecute_WithClaimer(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	claimer := &fakeClaimer{done: map[string]bool{"map.a": true}, released: map[string]error{}}

	var runs atomic.Int32
	count := func(context.Context) error { runs.Add(1); return nil }
	g, err := run(t, ctx, 2, []Option{WithClaimer(claimer)},
		&task.Func{Name: "map.a", Fn: count},
		&task.Func{Name: "map.b", Fn: count},
	)
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, executor.DoneElsewhere, g.OutputOf(ctx, *nodeid.MustParse("map.a")))
	assert.Contains(t, claimer.released, "map.b")
	assert.NotContains(t, claimer.released, "map.a")
}

func TestExecute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(ctxlog.Discard(context.Background()))
	cancel()

	_, err := run(t, ctx, 1, nil, &task.Func{Name: "index"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_RespectsWorkerLimit(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	s := testutil.NewSleeper(30 * time.Millisecond)

	var roots []task.Task
	for _, smp := range []string{"a", "b", "c", "d", "e", "f"} {
		roots = append(roots, s.Task("map."+smp))
	}
	_, err := run(t, ctx, 2, nil, roots...)
	require.NoError(t, err)
	assert.LessOrEqual(t, s.MaxConcurrent(), 2)
	assert.GreaterOrEqual(t, s.MaxConcurrent(), 1)
}
