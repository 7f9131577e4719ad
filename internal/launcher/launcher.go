package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vk/rnaflow/internal/ctxlog"
)

// ErrNotFound is returned when an executable is not on the search path.
var ErrNotFound = errors.New("executable not found in search path")

// Command is a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Stdout, when set, receives the tool's standard output. Otherwise it is
	// discarded.
	Stdout string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	s := strings.Join(parts, " ")
	if c.Stdout != "" {
		s += " > " + c.Stdout
	}
	return s
}

// Launcher resolves and runs external tools.
type Launcher interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, cmd Command) error
}

// Exec implements Launcher with os/exec.
type Exec struct {
	searchPath []string
	env        []string
}

// NewExec returns a launcher searching extra first and then the PATH of the
// current process.
func NewExec(extra ...string) *Exec {
	var dirs []string
	for _, d := range extra {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	dirs = append(dirs, filepath.SplitList(os.Getenv("PATH"))...)

	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "PATH=") {
			env = append(env, kv)
		}
	}
	env = append(env, "PATH="+strings.Join(dirs, string(os.PathListSeparator)))

	return &Exec{searchPath: dirs, env: env}
}

// SearchPath returns the directories searched by LookPath, in order.
func (e *Exec) SearchPath() []string {
	return append([]string(nil), e.searchPath...)
}

// LookPath finds name on the launcher's search path.
func (e *Exec) LookPath(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	for _, dir := range e.searchPath {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, name)
		if isExecutable(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

func isExecutable(p string) bool {
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

// Run executes cmd and waits for it. A non-zero exit is returned as an error
// carrying the tail of the tool's stderr. Canceling ctx kills the child.
func (e *Exec) Run(ctx context.Context, cmd Command) error {
	logger := ctxlog.FromContext(ctx)

	path, err := e.LookPath(cmd.Name)
	if err != nil {
		return err
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = e.env

	stderr := newTailBuffer(4096)
	c.Stderr = stderr

	if cmd.Stdout != "" {
		f, err := os.Create(cmd.Stdout)
		if err != nil {
			return fmt.Errorf("failed to create output file for %s: %w", cmd.Name, err)
		}
		defer f.Close()
		c.Stdout = f
	} else {
		c.Stdout = io.Discard
	}

	logger.Debug("Running external tool.", "command", cmd.String())
	if err := c.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		logger.Debug("External tool failed.", "command", cmd.Name, "stderr", tail)
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", cmd.Name, ctx.Err())
		}
		if tail != "" {
			return fmt.Errorf("%s failed: %w: %s", cmd.Name, err, tail)
		}
		return fmt.Errorf("%s failed: %w", cmd.Name, err)
	}
	return nil
}

// tailBuffer keeps only the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
