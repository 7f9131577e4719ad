package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vk/rnaflow/internal/task"
)

// ExecutionRecord holds the start and end times of one task run.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Sleeper builds tasks that sleep and record when they ran. Tests use it to
// check how many tasks an executor runs at once.
type Sleeper struct {
	Duration time.Duration

	mu    sync.Mutex
	times map[string]ExecutionRecord
}

// NewSleeper returns a Sleeper whose tasks run for d.
func NewSleeper(d time.Duration) *Sleeper {
	return &Sleeper{Duration: d, times: make(map[string]ExecutionRecord)}
}

// Task returns a sleeping task named id.
func (s *Sleeper) Task(id string, deps ...task.Task) task.Task {
	return &task.Func{
		Name: id,
		Deps: deps,
		Fn: func(ctx context.Context) error {
			start := time.Now()
			select {
			case <-time.After(s.Duration):
			case <-ctx.Done():
				return ctx.Err()
			}
			s.mu.Lock()
			s.times[id] = ExecutionRecord{Start: start, End: time.Now()}
			s.mu.Unlock()
			return nil
		},
	}
}

// Record returns the run times of id.
func (s *Sleeper) Record(id string) (ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.times[id]
	return r, ok
}

// MaxConcurrent returns the largest number of recorded runs that overlapped.
func (s *Sleeper) MaxConcurrent() int {
	s.mu.Lock()
	type edge struct {
		at    time.Time
		delta int
	}
	var edges []edge
	for _, r := range s.times {
		edges = append(edges, edge{r.Start, 1}, edge{r.End, -1})
	}
	s.mu.Unlock()

	// Ends sort before starts at the same instant.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})
	cur, best := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > best {
			best = cur
		}
	}
	return best
}
