package central

import (
	"sort"
	"sync"
	"time"
)

// State is the central view of one task.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Entry is one task record in the ledger.
type Entry struct {
	Task    string    `json:"task"`
	State   State     `json:"state"`
	Worker  string    `json:"worker,omitempty"`
	Error   string    `json:"error,omitempty"`
	Updated time.Time `json:"updated"`

	// workers denied while the task was running; they learn about
	// completion instead of running it again.
	waiters map[string]struct{}
}

// ClaimResult is the answer to a claim.
type ClaimResult struct {
	Granted bool
	State   State
	Owner   string
}

// Ledger tracks task ownership. It is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Entry), now: time.Now}
}

// Claim grants taskID to worker unless another worker is running it.
//
// Workers only claim tasks whose outputs they cannot see, so a done task is
// granted again to a fresh claimant. A worker that was turned away while the
// task ran gets the done state once instead.
func (l *Ledger) Claim(taskID, worker string) ClaimResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[taskID]
	if !ok {
		e = &Entry{Task: taskID}
		l.entries[taskID] = e
	}
	switch e.State {
	case StateRunning:
		if e.Worker == worker {
			return ClaimResult{Granted: true, State: StateRunning, Owner: worker}
		}
		if e.waiters == nil {
			e.waiters = make(map[string]struct{})
		}
		e.waiters[worker] = struct{}{}
		return ClaimResult{Granted: false, State: StateRunning, Owner: e.Worker}
	case StateDone:
		if _, waited := e.waiters[worker]; waited {
			delete(e.waiters, worker)
			return ClaimResult{Granted: false, State: StateDone, Owner: e.Worker}
		}
	}

	delete(e.waiters, worker)
	e.State = StateRunning
	e.Worker = worker
	e.Error = ""
	e.Updated = l.now()
	return ClaimResult{Granted: true, State: StateRunning, Owner: worker}
}

// Done marks taskID completed. Reports from a worker that does not own a
// running task are ignored.
func (l *Ledger) Done(taskID, worker string) bool {
	return l.settle(taskID, worker, StateDone, "")
}

// Failed marks taskID failed so it can be claimed again.
func (l *Ledger) Failed(taskID, worker, reason string) bool {
	return l.settle(taskID, worker, StateFailed, reason)
}

func (l *Ledger) settle(taskID, worker string, state State, reason string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[taskID]
	if !ok || e.State != StateRunning || e.Worker != worker {
		return false
	}
	e.State = state
	e.Error = reason
	e.Updated = l.now()
	return true
}

// ReleaseWorker returns every task still running under worker to pending.
// It is called when a worker disconnects.
func (l *Ledger) ReleaseWorker(worker string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var released []string
	for id, e := range l.entries {
		delete(e.waiters, worker)
		if e.State == StateRunning && e.Worker == worker {
			e.State = StatePending
			e.Worker = ""
			e.Updated = l.now()
			released = append(released, id)
		}
	}
	sort.Strings(released)
	return released
}

// Snapshot returns a copy of all entries sorted by task ID.
func (l *Ledger) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		c := *e
		c.waiters = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task < out[j].Task })
	return out
}
