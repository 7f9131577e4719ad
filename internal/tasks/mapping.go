package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/fsutil"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

// HisatMap aligns one sample with hisat2 and writes a sorted, indexed BAM.
func HisatMap(env Env, smp config.Sample) task.Task {
	bam := env.Cfg.AlignmentPath(smp.Name)
	sam := strings.TrimSuffix(bam, ".bam") + ".sam"
	reads, qc := mappingInput(env, smp)

	return &task.Func{
		Name:    id("map_hisat", smp.Name),
		Deps:    append([]task.Task{HisatIndex(env)}, qc...),
		Targets: []string{bam},
		Fn: func(ctx context.Context) error {
			if err := ensureParents(bam); err != nil {
				return err
			}
			defer os.Remove(sam)

			var r1, r2, unpaired []string
			for _, rp := range reads {
				if rp.Paired() {
					r1 = append(r1, rp.R1)
					r2 = append(r2, rp.R2)
				} else {
					unpaired = append(unpaired, rp.R1)
				}
			}
			args := []string{"-p", env.cpus(), "-x", env.Cfg.HisatIndex()}
			if len(r1) > 0 {
				args = append(args, "-1", strings.Join(r1, ","), "-2", strings.Join(r2, ","))
			}
			if len(unpaired) > 0 {
				args = append(args, "-U", strings.Join(unpaired, ","))
			}
			args = append(args, "-S", sam)

			// samtools writes the final name only on success.
			tmp := bam + ".tmp.bam"
			err := env.run(ctx,
				launcher.Command{Name: "hisat2", Args: args},
				launcher.Command{Name: "samtools", Args: []string{"sort", "-@", env.cpus(), "-o", tmp, sam}},
			)
			if err != nil {
				os.Remove(tmp)
				return fmt.Errorf("mapping %s: %w", smp.Name, err)
			}
			if err := os.Rename(tmp, bam); err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{Name: "samtools", Args: []string{"index", bam}})
		},
	}
}

// STARMap aligns one sample with STAR, producing
// <mapdir>/<sample>_Aligned.sortedByCoord.out.bam.
func STARMap(env Env, smp config.Sample) task.Task {
	bam := env.Cfg.AlignmentPath(smp.Name)
	reads, qc := mappingInput(env, smp)

	return &task.Func{
		Name:    id("map_star", smp.Name),
		Deps:    append([]task.Task{STARIndex(env)}, qc...),
		Targets: []string{bam},
		Fn: func(ctx context.Context) error {
			paired := reads[0].Paired()
			var r1, r2 []string
			for _, rp := range reads {
				if rp.Paired() != paired {
					return errors.New("STAR cannot mix paired and single-end reads in one sample")
				}
				r1 = append(r1, rp.R1)
				r2 = append(r2, rp.R2)
			}
			if err := fsutil.EnsureDirs(env.Cfg.MapDir()); err != nil {
				return err
			}

			args := []string{
				"--runThreadN", env.cpus(),
				"--genomeDir", env.Cfg.StarDBDir(),
				"--readFilesIn", strings.Join(r1, ","),
			}
			if paired {
				args = append(args, strings.Join(r2, ","))
			}
			if strings.HasSuffix(r1[0], ".gz") {
				args = append(args, "--readFilesCommand", "zcat")
			}
			args = append(args,
				"--outSAMtype", "BAM", "SortedByCoordinate",
				"--outFileNamePrefix", filepath.Join(env.Cfg.MapDir(), smp.Name+"_"),
			)
			if err := env.run(ctx, launcher.Command{Name: "STAR", Args: args}); err != nil {
				return fmt.Errorf("mapping %s: %w", smp.Name, err)
			}
			return nil
		},
	}
}

// Map returns the mapping task of smp for the configured aligner.
func Map(env Env, smp config.Sample) task.Task {
	if env.Cfg.Aligner() == config.AlignerSTAR {
		return STARMap(env, smp)
	}
	return HisatMap(env, smp)
}

// MapAll returns one mapping task per sample, in sample order.
func MapAll(env Env) []task.Task {
	samples := env.Cfg.Samples()
	out := make([]task.Task, len(samples))
	for i, smp := range samples {
		out[i] = Map(env, smp)
	}
	return out
}
