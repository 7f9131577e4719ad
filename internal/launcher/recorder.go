package launcher

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Launcher that records commands instead of
// running them. Tests use it in place of real tools.
type Recorder struct {
	// Available lists the executables LookPath reports as installed. A nil
	// map means every executable is available.
	Available map[string]bool
	// OnRun, when set, is called for every command and may simulate the
	// tool by writing its outputs. Its error is returned from Run.
	OnRun func(cmd Command) error

	mu       sync.Mutex
	commands []Command
}

// NewRecorder returns a Recorder that reports only names as installed.
func NewRecorder(names ...string) *Recorder {
	r := &Recorder{Available: make(map[string]bool)}
	for _, n := range names {
		r.Available[n] = true
	}
	return r
}

// LookPath implements Launcher.
func (r *Recorder) LookPath(name string) (string, error) {
	if r.Available != nil && !r.Available[name] {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return "/fake/bin/" + name, nil
}

// Run implements Launcher.
func (r *Recorder) Run(ctx context.Context, cmd Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if r.OnRun != nil {
		return r.OnRun(cmd)
	}
	return nil
}

// Commands returns every recorded command in call order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Names returns the executable name of every recorded command.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.commands))
	for i, c := range r.commands {
		names[i] = c.Name
	}
	return names
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
