package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/fsutil"
	"github.com/vk/rnaflow/internal/launcher"
)

// Env is what every task constructor needs: the run configuration and the
// launcher used to start tools.
type Env struct {
	Cfg      config.RunConfig
	Launcher launcher.Launcher
}

func (e Env) cpus() string { return strconv.Itoa(e.Cfg.CPUs()) }

// run executes cmds in order, stopping at the first failure.
func (e Env) run(ctx context.Context, cmds ...launcher.Command) error {
	logger := ctxlog.FromContext(ctx)
	for _, cmd := range cmds {
		logger.Debug("Launching tool.", "tool", cmd.Name)
		if err := e.Launcher.Run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// id joins address segments.
func id(parts ...string) string { return strings.Join(parts, ".") }

// ensureParents creates the parent directory of every path.
func ensureParents(paths ...string) error {
	dirs := make([]string, len(paths))
	for i, p := range paths {
		dirs[i] = filepath.Dir(p)
	}
	if err := fsutil.EnsureDirs(dirs...); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// writeAtomic writes via a temporary sibling file so a partial output is
// never mistaken for a completion marker.
func writeAtomic(path string, write func(f *os.File) error) error {
	if err := ensureParents(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
