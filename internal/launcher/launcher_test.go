package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rnaflow/internal/ctxlog"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

func TestExec_LookPathPrefersExtraDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "rnaflow-fake-tool", "exit 0")

	e := NewExec(dir)
	p, err := e.LookPath("rnaflow-fake-tool")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rnaflow-fake-tool"), p)
	assert.Equal(t, dir, e.SearchPath()[0])

	_, err = e.LookPath("rnaflow-definitely-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExec_LookPathIgnoresNonExecutable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes"), []byte("x"), 0o644))

	_, err := NewExec(dir).LookPath("notes")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExec_RunRedirectsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	writeScript(t, dir, "say", `echo "$1"`)

	out := filepath.Join(dir, "out.txt")
	err := NewExec(dir).Run(ctx, Command{Name: "say", Args: []string{"hello"}, Stdout: out})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestExec_RunFailureCarriesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	writeScript(t, dir, "broken", `echo "index not found" >&2; exit 4`)

	err := NewExec(dir).Run(ctx, Command{Name: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken failed")
	assert.Contains(t, err.Error(), "index not found")
}

func TestExec_ChildSeesSearchPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	writeScript(t, dir, "printpath", `echo "$PATH"`)
	before := os.Getenv("PATH")

	out := filepath.Join(dir, "path.txt")
	require.NoError(t, NewExec(dir).Run(ctx, Command{Name: "printpath", Stdout: out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), dir+string(os.PathListSeparator))
	assert.Equal(t, before, os.Getenv("PATH"))
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(4)
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder("samtools")

	_, err := r.LookPath("samtools")
	assert.NoError(t, err)
	_, err = r.LookPath("STAR")
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("boom")
	r.OnRun = func(cmd Command) error {
		if cmd.Name == "STAR" {
			return boom
		}
		return nil
	}
	require.NoError(t, r.Run(ctx, Command{Name: "samtools", Args: []string{"index", "a.bam"}}))
	assert.ErrorIs(t, r.Run(ctx, Command{Name: "STAR"}), boom)
	assert.Equal(t, []string{"samtools", "STAR"}, r.Names())
	assert.Equal(t, "samtools index a.bam", r.Commands()[0].String())

	r.Reset()
	assert.Empty(t, r.Commands())
}
