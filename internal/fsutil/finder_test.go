package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesBySuffix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureDirs(filepath.Join(root, "lane1")))
	for _, f := range []string{"a_R1.fastq", "lane1/b_R1.fastq.gz", "a_R2.fastq", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), nil, 0o644))
	}

	files, err := FindFilesBySuffix(root, "_R1.fastq", "_R1.fastq.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a_R1.fastq"),
		filepath.Join(root, "lane1", "b_R1.fastq.gz"),
	}, files)

	_, err = FindFilesBySuffix(filepath.Join(root, "missing"), ".fastq")
	assert.Error(t, err)

	assert.Panics(t, func() { FindFilesBySuffix(root) })
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "nope")))
}
