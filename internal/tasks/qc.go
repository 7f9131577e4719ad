package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

func qcPrefix(cfg config.RunConfig, sample string, i int) (dir, prefix string) {
	return filepath.Join(cfg.QCDir(), sample), sample + "_" + strconv.Itoa(i)
}

// trimmedReads returns where FaQC writes the trimmed version of each read
// pair of sample.
func trimmedReads(cfg config.RunConfig, smp config.Sample) []config.ReadPair {
	out := make([]config.ReadPair, len(smp.Reads))
	for i, rp := range smp.Reads {
		dir, prefix := qcPrefix(cfg, smp.Name, i)
		if rp.Paired() {
			out[i] = config.ReadPair{
				R1: filepath.Join(dir, prefix+".1.trimmed.fastq"),
				R2: filepath.Join(dir, prefix+".2.trimmed.fastq"),
			}
		} else {
			out[i] = config.ReadPair{R1: filepath.Join(dir, prefix+".unpaired.trimmed.fastq")}
		}
	}
	return out
}

// FaQC trims and filters the reads of one sample.
func FaQC(env Env, smp config.Sample) task.Task {
	trimmed := trimmedReads(env.Cfg, smp)
	var targets []string
	for _, rp := range trimmed {
		targets = append(targets, rp.R1)
		if rp.R2 != "" {
			targets = append(targets, rp.R2)
		}
	}
	return &task.Func{
		Name:    id("faqc", smp.Name),
		Targets: targets,
		Fn: func(ctx context.Context) error {
			var cmds []launcher.Command
			for i, rp := range smp.Reads {
				dir, prefix := qcPrefix(env.Cfg, smp.Name, i)
				args := []string{"-d", dir, "-p", prefix, "-t", env.cpus(), "-mode", "BWA_plus", "-min_L", "60", "-q", "15"}
				if rp.Paired() {
					args = append(args, "-1", rp.R1, "-2", rp.R2)
				} else {
					args = append(args, "-u", rp.R1)
				}
				cmds = append(cmds, launcher.Command{Name: "FaQC.pl", Args: args})
			}
			if err := ensureParents(targets...); err != nil {
				return err
			}
			if err := env.run(ctx, cmds...); err != nil {
				return fmt.Errorf("quality control of %s: %w", smp.Name, err)
			}
			return nil
		},
	}
}

// mappingInput returns the reads to align for smp and the tasks producing
// them.
func mappingInput(env Env, smp config.Sample) ([]config.ReadPair, []task.Task) {
	if !env.Cfg.QC() {
		return smp.Reads, nil
	}
	return trimmedReads(env.Cfg, smp), []task.Task{FaQC(env, smp)}
}
