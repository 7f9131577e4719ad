package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/fsutil"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

// hisatIndexMarker is the first index file. hisat2-build switches to the
// .ht2l suffix for large genomes.
func hisatIndexMarker(prefix string) string {
	if large := prefix + ".1.ht2l"; fileExists(large) {
		return large
	}
	return prefix + ".1.ht2"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HisatIndex builds the HISAT2 index of the reference FASTA at the
// configured prefix.
func HisatIndex(env Env) task.Task {
	prefix := env.Cfg.HisatIndex()
	return &task.Func{
		Name:    "hisat_index",
		Targets: []string{hisatIndexMarker(prefix)},
		Fn: func(ctx context.Context) error {
			if err := ensureParents(prefix); err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{
				Name: "hisat2-build",
				Args: []string{"-p", env.cpus(), env.Cfg.FASTA(), prefix},
			})
		},
	}
}

// STARIndex generates the STAR genome directory from the reference FASTA and
// annotation.
func STARIndex(env Env) task.Task {
	dir := env.Cfg.StarDBDir()
	return &task.Func{
		Name:    "star_index",
		Targets: []string{filepath.Join(dir, "SAindex")},
		Fn: func(ctx context.Context) error {
			if err := fsutil.EnsureDirs(dir); err != nil {
				return err
			}
			args := []string{
				"--runMode", "genomeGenerate",
				"--runThreadN", env.cpus(),
				"--genomeDir", dir,
				"--genomeFastaFiles", env.Cfg.FASTA(),
				"--sjdbGTFfile", env.Cfg.GFF(),
			}
			if isGFF3(env.Cfg.GFF()) {
				args = append(args, "--sjdbGTFtagExonParentTranscript", "Parent")
			}
			return env.run(ctx, launcher.Command{Name: "STAR", Args: args})
		},
	}
}

// Index returns the index task of the configured aligner.
func Index(env Env) task.Task {
	if env.Cfg.Aligner() == config.AlignerSTAR {
		return STARIndex(env)
	}
	return HisatIndex(env)
}

func isGFF3(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".gff" || ext == ".gff3"
}
